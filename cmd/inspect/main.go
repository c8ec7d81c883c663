package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/logging"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/state"
)

var (
	dbPath  string
	jsonOut bool

	rootCmd = &cobra.Command{
		Use:          "inspect",
		Short:        "Inspect the thermcheck run chain",
		SilenceUsage: true,
	}
)

// #region main

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", envOr("THERMCHECK_DB", "thermcheck.db"), "path to the run database")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")

	runsCmd.Flags().StringVar(&runsCheck, "check", "", "only runs of this check type")
	runsCmd.Flags().IntVar(&runsLast, "last", 20, "show N most recent runs")
	showCmd.Flags().BoolVar(&showReport, "report", false, "print the stored report")

	rootCmd.AddCommand(runsCmd, showCmd, chainCmd, rollbackCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func withStore(fn func(store *state.Store, w io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := state.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()
		return fn(store, cmd.OutOrStdout(), args)
	}
}

// #endregion main

// #region list-mode

var (
	runsCheck string
	runsLast  int

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "List recent runs, newest first",
		RunE:  withStore(runList),
	}
)

type listRow struct {
	RunID      string  `json:"run_id"`
	ParentID   string  `json:"parent_id,omitempty"`
	Check      string  `json:"check"`
	Load       string  `json:"load"`
	Mode       string  `json:"mode"`
	Start      float64 `json:"tstart"`
	Stop       float64 `json:"tstop"`
	Terminal   float64 `json:"terminal_value"`
	Violations int     `json:"violations"`
	Verdict    string  `json:"verdict"`
	CreatedAt  string  `json:"created_at"`
}

func toRow(r state.RunRecord) listRow {
	return listRow{
		RunID:      r.RunID,
		ParentID:   r.ParentID,
		Check:      r.Check,
		Load:       r.LoadName,
		Mode:       string(r.Mode),
		Start:      r.Start,
		Stop:       r.Stop,
		Terminal:   r.TerminalState[r.MSID],
		Violations: r.Violations,
		Verdict:    r.Verdict,
		CreatedAt:  r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func runList(store *state.Store, w io.Writer, _ []string) error {
	runs, err := store.ListRuns(runsCheck, runsLast)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}
	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[i] = toRow(r)
	}
	if jsonOut {
		return writeJSON(w, rows)
	}
	printTable(w, rows)
	return nil
}

func printTable(w io.Writer, rows []listRow) {
	fmt.Fprintf(w, "%-10s %-10s %-6s %-10s %-10s %8s %5s %-7s %s\n",
		"RUN", "PARENT", "CHECK", "LOAD", "MODE", "TERMINAL", "VIOL", "VERDICT", "CREATED")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range rows {
		fmt.Fprintf(w, "%-10s %-10s %-6s %-10s %-10s %8.2f %5d %-7s %s\n",
			short(r.RunID), short(r.ParentID), r.Check, r.Load, r.Mode, r.Terminal, r.Violations, r.Verdict, r.CreatedAt)
	}
}

// #endregion list-mode

// #region detail-mode

var (
	showReport bool

	showCmd = &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's terminal state, or its stored report",
		Args:  cobra.ExactArgs(1),
		RunE:  withStore(runShow),
	}

	chainCmd = &cobra.Command{
		Use:   "chain <run-id>",
		Short: "Walk parent pointers from a run back to the start of its chain",
		Args:  cobra.ExactArgs(1),
		RunE:  withStore(runChain),
	}
)

func runShow(store *state.Store, w io.Writer, args []string) error {
	if showReport {
		report, err := logging.ReportJSON(store.DB(), args[0])
		if err != nil {
			return err
		}
		if report == "" {
			return fmt.Errorf("no report logged for run %s", args[0])
		}
		fmt.Fprint(w, report)
		return nil
	}

	rec, err := store.GetRun(args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, rec)
	}
	row := toRow(rec)
	fmt.Fprintf(w, "run:      %s\nparent:   %s\ncheck:    %s (%s)\nload:     %s\nmode:     %s\nwindow:   %.1f .. %.1f\nverdict:  %s (%d violation interval(s))\n",
		row.RunID, orDash(row.ParentID), row.Check, rec.MSID, orDash(row.Load), row.Mode, row.Start, row.Stop, orDash(row.Verdict), row.Violations)
	fmt.Fprintf(w, "terminal state at %.1f:\n", rec.TerminalTime)
	for _, name := range sortedKeys(rec.TerminalState) {
		fmt.Fprintf(w, "  %-12s %8.3f\n", name, rec.TerminalState[name])
	}
	return nil
}

func runChain(store *state.Store, w io.Writer, args []string) error {
	chain, err := store.Chain(args[0])
	if err != nil {
		return err
	}
	rows := make([]listRow, len(chain))
	for i, r := range chain {
		rows[i] = toRow(r)
	}
	if jsonOut {
		return writeJSON(w, rows)
	}
	printTable(w, rows)
	return nil
}

// #endregion detail-mode

// #region rollback

var rollbackCmd = &cobra.Command{
	Use:   "rollback <check> <run-id>",
	Short: "Make an earlier run the chain head of a check, e.g. after a load is replaced",
	Args:  cobra.ExactArgs(2),
	RunE: withStore(func(store *state.Store, w io.Writer, args []string) error {
		if err := store.Rollback(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s head -> %s\n", args[0], args[1])
		return nil
	}),
}

// #endregion rollback

// #region helpers

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
