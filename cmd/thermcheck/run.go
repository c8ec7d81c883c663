package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/check"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/config"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/logging"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/metrics"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/predictor"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/report"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/state"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/telemetry"
)

var (
	runChecks   []string
	runSchedule string
	runMode     string
	runOut      string
	runMetrics  string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run one or more check types over a load schedule",
		RunE:  runChecksCmd,
	}
)

// #region schedule

// schedule is the load description read from --schedule.
type schedule struct {
	LoadName  string                   `json:"load_name"`
	LoadStart float64                  `json:"load_start"`
	Start     float64                  `json:"tstart"`
	Stop      float64                  `json:"tstop"`
	States    []predictor.CommandState `json:"states"`
}

func loadSchedule(path string) (schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schedule{}, fmt.Errorf("read schedule: %w", err)
	}
	var s schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return schedule{}, fmt.Errorf("parse schedule %s: %w", path, err)
	}
	if s.Stop <= s.Start {
		return schedule{}, fmt.Errorf("schedule %s: tstop must be after tstart", path)
	}
	return s, nil
}

// #endregion schedule

// #region run

func runChecksCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	sched, err := loadSchedule(runSchedule)
	if err != nil {
		return err
	}
	var mode continuity.Mode
	if runMode != "auto" {
		if mode, err = continuity.ParseMode(runMode); err != nil {
			return err
		}
	}

	checks, err := cfg.BuildAll(nil)
	if err != nil {
		return err
	}
	names, err := selectChecks(checks, runChecks)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := predictor.NewClient(cfg.Predictor.Addr)
	if err != nil {
		return err
	}
	defer client.Close()
	dctx, cancel := context.WithTimeout(ctx, rpcTimeout(cfg))
	components, err := client.Describe(dctx)
	cancel()
	if err != nil {
		return err
	}
	logger.Info("thermal model connected", zap.String("addr", cfg.Predictor.Addr), zap.Strings("components", components))

	var tlm telemetry.Source
	if mode != continuity.ModePrediction && cfg.Telemetry.URL != "" {
		influx, err := telemetry.NewInflux(cfg.Telemetry, logger)
		if err != nil {
			return err
		}
		defer influx.Close()
		tlm = influx
	}

	store, err := state.NewStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := metrics.NewRecorder()
	reports := make(map[string]*report.Report, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		c := checks[name]
		g.Go(func() error {
			engine, err := check.NewEngine(c, client, check.Options{
				Telemetry: tlm,
				Store:     store,
				Metrics:   rec,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			rctx, cancel := context.WithTimeout(gctx, rpcTimeout(cfg))
			defer cancel()
			rep, err := engine.Run(rctx, check.Request{
				LoadName:  sched.LoadName,
				Mode:      mode,
				LoadStart: sched.LoadStart,
				Start:     sched.Start,
				Stop:      sched.Stop,
				States:    sched.States,
			})
			if err != nil {
				return fmt.Errorf("check %s: %w", c.Name, err)
			}
			mu.Lock()
			reports[c.Name] = rep
			mu.Unlock()
			return nil
		})
	}
	waitErr := g.Wait()
	if err := exportMetrics(runMetrics, rec); err != nil {
		if waitErr == nil {
			return err
		}
		logger.Warn("metrics not written", zap.Error(err))
	}
	if waitErr != nil {
		return waitErr
	}

	flagged := 0
	out := cmd.OutOrStdout()
	for _, name := range names {
		rep := reports[name]
		printSummary(out, rep)
		if rep.Gate != nil && rep.Gate.Action == "flag" {
			flagged++
		}
		if runOut != "" {
			if err := writeReport(runOut, rep); err != nil {
				return err
			}
		}
	}
	if flagged > 0 {
		return fmt.Errorf("%d check(s) flagged load %s", flagged, sched.LoadName)
	}
	return nil
}

func selectChecks(built map[string]config.Check, requested []string) ([]string, error) {
	if len(requested) == 0 {
		names := make([]string, 0, len(built))
		for name := range built {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}
	for _, name := range requested {
		if _, ok := built[name]; !ok {
			return nil, fmt.Errorf("unknown check %q", name)
		}
	}
	return requested, nil
}

// exportMetrics writes the run's metrics when a path was given. Failed runs
// are exported too.
func exportMetrics(path string, rec *metrics.Recorder) error {
	if path == "" {
		return nil
	}
	return rec.WriteTextfile(path)
}

func rpcTimeout(cfg *config.File) time.Duration {
	if cfg.Predictor.Timeout <= 0 {
		return time.Minute
	}
	return cfg.Predictor.Timeout
}

// #endregion run

// #region output

func printSummary(w io.Writer, rep *report.Report) {
	verdict := "-"
	if rep.Gate != nil {
		verdict = rep.Gate.Action
	}
	fmt.Fprintf(w, "%s  %s  mode=%s  run=%s  verdict=%s\n",
		rep.Metadata.Check, rep.Metadata.LoadName, rep.Metadata.Mode, shortID(rep.Metadata.RunID), verdict)
	for _, r := range rep.Records {
		fmt.Fprintf(w, "  %-28s %-4s %7.2f  %d interval(s)\n", r.Label, r.Kind, r.Threshold, len(r.Intervals))
		for _, iv := range r.Intervals {
			fmt.Fprintf(w, "      %s .. %s  extreme %.2f\n",
				telemetry.ToTime(iv.Start).Format("2006:002:15:04:05"),
				telemetry.ToTime(iv.Stop).Format("2006:002:15:04:05"),
				iv.Extreme)
		}
	}
	if rep.Validation != nil {
		fmt.Fprintf(w, "  validation: %s\n", rep.Validation.Reason)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeReport(dir string, rep *report.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, rep.Metadata.Check+".json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	return rep.WriteJSON(f)
}

// #endregion output
