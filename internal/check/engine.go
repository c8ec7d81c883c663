package check

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/config"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/eval"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/gate"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/limits"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/logging"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/metrics"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/predictor"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/report"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/rules"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/state"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/telemetry"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/violation"
)

// #region engine-struct
// Engine runs one check type against loads. It is safe to reuse across
// runs but not to call concurrently for the same check when a store is
// attached, since runs of a check form a chain.
type Engine struct {
	check     config.Check
	predictor predictor.Predictor
	telemetry telemetry.Source
	resolver  *continuity.Resolver
	harness   *eval.EvalHarness
	gate      *gate.Gate
	store     *state.Store
	metrics   *metrics.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// #endregion engine-struct

// #region constructor
// NewEngine wires a built check to its predictor.
func NewEngine(c config.Check, pred predictor.Predictor, opts Options) (*Engine, error) {
	if pred == nil {
		return nil, checkerr.Configf(c.Name, "engine needs a predictor")
	}
	if c.Registry == nil {
		return nil, checkerr.Configf(c.Name, "engine needs a limit registry")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("check", c.Name))

	e := &Engine{
		check:     c,
		predictor: pred,
		telemetry: opts.Telemetry,
		gate:      gate.NewGate(c.Gate),
		store:     opts.Store,
		metrics:   opts.Metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	// a nil interface, not a typed nil, when there is no telemetry
	var lookup continuity.TelemetryLookup
	if opts.Telemetry != nil {
		lookup = opts.Telemetry
	}
	e.resolver = continuity.NewResolver(lookup, logger)
	if c.Validation != nil {
		e.harness = eval.NewEvalHarness(c.Eval, c.Validation)
	}
	return e, nil
}

// Check returns the check type this engine runs.
func (e *Engine) Check() config.Check { return e.check }

// #endregion constructor

// #region run
// Run predicts the load, evaluates every limit and returns the report. When a
// store is attached the run is persisted and becomes the chain head. Errors
// are returned as they occur; nothing is retried.
func (e *Engine) Run(ctx context.Context, req Request) (rep *report.Report, err error) {
	started := time.Now()
	mode := e.mode(ctx, req)
	defer func() {
		outcome := "error"
		if err == nil && rep.Gate != nil {
			outcome = rep.Gate.Action
		}
		e.metrics.ObserveRun(e.check.Name, string(mode), outcome, time.Since(started))
	}()

	if _, err := continuity.ParseMode(string(mode)); err != nil {
		return nil, checkerr.Configf(e.check.Name, "%v", err)
	}
	if req.Stop < req.Start {
		return nil, checkerr.Configf(e.check.Name, "stop %.1f is before start %.1f", req.Stop, req.Start)
	}

	runID, prior, parentID, err := e.prior(req, mode)
	if err != nil {
		return nil, err
	}

	seed, seeded, err := e.resolver.SeedBoundary(ctx, e.predictor, e.check.PseudoNode, e.check.MSID, mode, prior, req.Start)
	if err != nil {
		return nil, err
	}
	if !seeded || seed.Source != continuity.SourcePriorRun {
		parentID = ""
	}

	predReq := predictor.Request{
		Check:  e.check.Name,
		MSID:   e.check.MSID,
		Start:  req.Start,
		Stop:   req.Stop,
		States: req.States,
	}
	if seeded && seed.Defined() {
		predReq.Seeds = map[string]continuity.Seed{e.check.PseudoNode: seed}
	}
	pred, err := e.predictor.Predict(ctx, predReq)
	if err != nil {
		return nil, err
	}
	monitored, ok := pred.Component(e.check.MSID)
	if !ok {
		return nil, checkerr.Unavailablef(e.check.MSID, req.Start, "prediction has no component %s", e.check.MSID)
	}

	records, err := e.evaluate(monitored, pred, req.LoadStart)
	if err != nil {
		return nil, err
	}

	var opts []report.Option
	var validation *eval.EvalResult
	if mode == continuity.ModeValidation {
		res, err := e.validate(ctx, pred, req)
		if err != nil {
			return nil, err
		}
		if res != nil {
			validation = res
			opts = append(opts, report.WithValidation(*res))
		}
	}
	decision := e.gate.Evaluate(records, validation)
	opts = append(opts, report.WithGate(decision))

	terminal, terminalTime := pred.TerminalState()
	meta := report.Metadata{
		RunID:     runID,
		Check:     e.check.Name,
		MSID:      e.check.MSID,
		LoadName:  req.LoadName,
		Mode:      mode,
		LoadStart: req.LoadStart,
		Start:     req.Start,
		Stop:      req.Stop,
		CreatedAt: e.now(),
		Extra:     req.Extra,
	}
	cont := report.Continuity{
		PseudoNode:    e.check.PseudoNode,
		Seeded:        seeded && seed.Defined(),
		Seed:          seed,
		ParentRunID:   parentID,
		TerminalTime:  terminalTime,
		TerminalState: terminal,
	}
	rep, err = report.Assemble(e.check.Registry, records, cont, meta, opts...)
	if err != nil {
		return nil, err
	}

	for _, rec := range rep.Records {
		e.metrics.ObserveViolations(e.check.Name, rec.Name, len(rec.Intervals))
	}
	if err := e.persist(rep); err != nil {
		return nil, err
	}

	e.logger.Info("check complete",
		zap.String("run_id", runID),
		zap.String("load", req.LoadName),
		zap.String("mode", string(mode)),
		zap.Int("violations", rep.Violations()),
		zap.String("verdict", decision.Action))
	return rep, nil
}

// #endregion run

// #region run-steps
func (e *Engine) mode(ctx context.Context, req Request) continuity.Mode {
	if req.Mode != "" {
		return req.Mode
	}
	if cov, ok := e.telemetry.(telemetry.Coverage); ok {
		end := cov.End(ctx, e.check.MSID)
		e.logger.Debug("telemetry coverage", zap.Float64("end", end), zap.Float64("stop", req.Stop))
		return continuity.ChooseMode(req.Stop, end)
	}
	return continuity.ModePrediction
}

// prior picks the run ID and the prediction-mode seed source. An explicit
// prior in the request wins over the chain head.
func (e *Engine) prior(req Request, mode continuity.Mode) (runID string, prior continuity.State, parentID string, err error) {
	runID = uuid.New().String()
	if e.store != nil {
		rec, err := e.store.NewRun(e.check.Name)
		if err != nil {
			return "", nil, "", err
		}
		runID = rec.RunID
		parentID = rec.ParentID
	}
	if mode != continuity.ModePrediction {
		return runID, nil, "", nil
	}
	if req.Prior != nil {
		return runID, req.Prior, "", nil
	}
	if parentID == "" {
		return runID, nil, "", nil
	}
	head, err := e.store.GetRun(parentID)
	if err != nil {
		return "", nil, "", err
	}
	if head.TerminalTime > req.Start {
		e.logger.Warn("chain head ends after this load starts",
			zap.String("parent", head.RunID),
			zap.Float64("terminal_time", head.TerminalTime),
			zap.Float64("start", req.Start))
	}
	return runID, head.TerminalState, head.RunID, nil
}

// evaluate produces the standard record of every unclaimed rule, then the
// custom rules' records.
func (e *Engine) evaluate(monitored series.Series, pred predictor.Prediction, loadStart float64) ([]violation.Record, error) {
	reg := e.check.Registry
	claimed := make(map[string]bool, len(e.check.Rules))
	for _, r := range e.check.Rules {
		claimed[reg.Canonical(r.Limit())] = true
	}

	records := make([]violation.Record, 0, reg.Set().Len()+len(e.check.Rules))
	for _, rule := range reg.Set().Rules() {
		if claimed[rule.Name] {
			continue
		}
		if rule.Kind == limits.KindPercentile && rule.Percentile == 0 {
			e.logger.Debug("percentile rule has no default slot, skipped", zap.String("limit", rule.Name))
			continue
		}
		threshold, err := rule.Threshold(rule.Percentile)
		if err != nil {
			return nil, err
		}
		rec, err := violation.Evaluate(monitored, rule, threshold, nil, loadStart)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	for _, r := range e.check.Rules {
		rec, err := r.Evaluate(rules.Input{
			Series:     monitored,
			Components: pred.Components,
			LoadStart:  loadStart,
			Registry:   reg,
			Active:     records,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// validate pairs every validated component with telemetry over the run
// window. Quantities without telemetry are skipped with a warning; nil is
// returned when nothing can be validated.
func (e *Engine) validate(ctx context.Context, pred predictor.Prediction, req Request) (*eval.EvalResult, error) {
	if e.harness == nil || e.telemetry == nil {
		return nil, nil
	}
	names := make([]string, 0, len(pred.Components))
	for name := range pred.Components {
		if _, err := e.check.Validation.Rule(strings.ToUpper(name)); err == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	pairs := make([]eval.Pair, 0, len(names))
	for _, name := range names {
		tlm, err := e.telemetry.Series(ctx, name, req.Start, req.Stop)
		if errors.Is(err, checkerr.ErrDataUnavailable) {
			e.logger.Warn("no telemetry to validate against", zap.String("msid", name), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, e.harness.PairSeries(pred.Components[name], tlm))
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	res := e.harness.Run(pairs, e.check.MSID)
	return &res, nil
}

func (e *Engine) persist(rep *report.Report) error {
	if e.store == nil {
		return nil
	}
	verdict := ""
	if rep.Gate != nil {
		verdict = rep.Gate.Action
	}
	rec := state.RunRecord{
		RunID:         rep.Metadata.RunID,
		ParentID:      rep.Continuity.ParentRunID,
		Check:         rep.Metadata.Check,
		MSID:          rep.Metadata.MSID,
		LoadName:      rep.Metadata.LoadName,
		Mode:          rep.Metadata.Mode,
		LoadStart:     rep.Metadata.LoadStart,
		Start:         rep.Metadata.Start,
		Stop:          rep.Metadata.Stop,
		TerminalTime:  rep.Continuity.TerminalTime,
		TerminalState: rep.Continuity.TerminalState,
		Violations:    rep.Violations(),
		Verdict:       verdict,
		CreatedAt:     rep.Metadata.CreatedAt,
	}
	if err := e.store.CommitRun(rec); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := rep.WriteJSON(&buf); err != nil {
		return err
	}
	entry := logging.RunLogEntry{
		RunID:      rec.RunID,
		Check:      rec.Check,
		Mode:       string(rec.Mode),
		SeedSource: string(rep.Continuity.Seed.Source),
		GateAction: verdict,
		ReportJSON: buf.String(),
		CreatedAt:  rec.CreatedAt,
	}
	if rep.Gate != nil {
		entry.Reason = rep.Gate.Reason
	}
	if rep.Continuity.Seeded {
		v := rep.Continuity.Seed.Value
		entry.SeedValue = &v
	}
	return logging.LogRun(e.store.DB(), entry)
}

// #endregion run-steps
