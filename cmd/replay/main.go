package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/config"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/replay"
)

var (
	fixturePath string
	configPath  string
	jsonOut     bool

	rootCmd = &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded load chain and verify continuity and expected violations",
		Long: `replay feeds each load of a fixture through the check engine in prediction
mode using the fixture's recorded model output. It exits non-zero when a load
fails, a seed does not match the previous load's final temperature, or a
result differs from the fixture's expectations.`,
		SilenceUsage: true,
		RunE:         runReplay,
	}
)

// #region main

func main() {
	rootCmd.Flags().StringVar(&fixturePath, "fixture", "", "path to fixture JSON")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to thermcheck.yaml (built-in checks when empty)")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "output results as JSON")
	_ = rootCmd.MarkFlagRequired("fixture")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// #endregion main

// #region fixture-mode

func runReplay(cmd *cobra.Command, _ []string) error {
	fixture, err := replay.LoadFixture(fixturePath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cc, ok := cfg.Check(fixture.Check)
	if !ok {
		return fmt.Errorf("fixture check %q is not configured", fixture.Check)
	}
	c, err := config.BuildCheck(cc, nil)
	if err != nil {
		return err
	}

	results, err := replay.Replay(cmd.Context(), fixture, c)
	if err != nil {
		return err
	}
	summary := replay.Summarize(results)

	out := cmd.OutOrStdout()
	if jsonOut {
		if err := writeJSON(out, results, summary); err != nil {
			return err
		}
	} else {
		if fixture.Description != "" {
			fmt.Fprintf(out, "Fixture: %s\n\n", fixture.Description)
		}
		printResults(out, results)
		printSummary(out, summary)
	}

	if summary.Errors > 0 || summary.Mismatches > 0 || summary.ChainBroken > 0 {
		return fmt.Errorf("replay failed: %d error(s), %d mismatch(es), %d broken link(s)",
			summary.Errors, summary.Mismatches, summary.ChainBroken)
	}
	return nil
}

// #endregion fixture-mode

// #region output

type jsonResult struct {
	Load       string         `json:"load"`
	RunID      string         `json:"run_id,omitempty"`
	Verdict    string         `json:"verdict,omitempty"`
	SeedSource string         `json:"seed_source,omitempty"`
	SeedValue  float64        `json:"seed_value"`
	Continuity bool           `json:"continuity_ok"`
	Violations map[string]int `json:"violations,omitempty"`
	Mismatches []string       `json:"mismatches,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func writeJSON(w io.Writer, results []replay.Result, summary replay.Summary) error {
	rows := make([]jsonResult, len(results))
	for i, r := range results {
		rows[i] = jsonResult{
			Load:       r.Load,
			RunID:      r.RunID,
			Verdict:    r.Verdict,
			SeedSource: string(r.Seed.Source),
			SeedValue:  r.Seed.Value,
			Continuity: r.ContinuityOK,
			Violations: r.Violations,
			Mismatches: r.Mismatches,
		}
		if r.Err != nil {
			rows[i].Error = r.Err.Error()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{"results": rows, "summary": summary})
}

func printResults(w io.Writer, results []replay.Result) {
	fmt.Fprintf(w, "%-12s %-8s %-10s %8s %-6s %s\n", "LOAD", "VERDICT", "SEED", "VALUE", "CHAIN", "NOTES")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, r := range results {
		chain := "ok"
		if !r.ContinuityOK {
			chain = "BROKEN"
		}
		notes := strings.Join(r.Mismatches, "; ")
		if r.Err != nil {
			notes = "error: " + r.Err.Error()
		}
		fmt.Fprintf(w, "%-12s %-8s %-10s %8.2f %-6s %s\n",
			r.Load, r.Verdict, r.Seed.Source, r.Seed.Value, chain, notes)
	}
}

func printSummary(w io.Writer, s replay.Summary) {
	fmt.Fprintf(w, "\nLoads: %d  Passed: %d  Flagged: %d  Errors: %d  Mismatches: %d  Broken links: %d\n",
		s.TotalLoads, s.Passed, s.Flagged, s.Errors, s.Mismatches, s.ChainBroken)
}

// #endregion output
