package check

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/config"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/logging"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/metrics"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/predictor"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/state"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/telemetry"
)

// #region helpers
func dpaCheck(t *testing.T) config.Check {
	t.Helper()
	cc, ok := config.Default().Check("dpa")
	require.True(t, ok)
	c, err := config.BuildCheck(cc, nil)
	require.NoError(t, err)
	return c
}

func grid(start, stop, step float64) []float64 {
	var out []float64
	for t := start; t <= stop; t += step {
		out = append(out, t)
	}
	return out
}

func fill(times []float64, f func(i int, t float64) float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = f(i, t)
	}
	return out
}

// model returns a predictor whose 1dpamzt starts at the dpa0 seed (or 20)
// and rises 0.1 C per sample, with FEPs always on.
func model() *predictor.Static {
	return &predictor.Static{
		Declared: []string{"dpa0"},
		Func: func(req predictor.Request) (predictor.Prediction, error) {
			times := grid(req.Start, req.Stop, 100)
			base := 20.0
			if s, ok := req.Seeds["dpa0"]; ok {
				base = s.Value
			}
			temps := fill(times, func(i int, _ float64) float64 { return base + 0.1*float64(i) })
			return predictor.Prediction{Components: map[string]series.Series{
				"1dpamzt":   {Name: "1dpamzt", Times: times, Values: temps},
				"dpa0":      {Name: "dpa0", Times: times, Values: temps},
				"fep_count": {Name: "fep_count", Times: times, Values: fill(times, func(int, float64) float64 { return 4 })},
			}}, nil
		},
	}
}

// records is an in-memory Flux result.
type records struct {
	rows []*query.FluxRecord
	pos  int
}

func (r *records) Next() bool {
	r.pos++
	return r.pos <= len(r.rows)
}

func (r *records) Record() *query.FluxRecord { return r.rows[r.pos-1] }
func (r *records) Err() error                { return nil }
func (r *records) Close() error              { return nil }

// influxOver serves s from a stubbed InfluxDB query endpoint. Queries for
// other MSIDs return no rows; last() queries return the newest sample.
func influxOver(s series.Series) *telemetry.Influx {
	q := func(_ context.Context, flux string) (telemetry.ResultSet, error) {
		if !strings.Contains(flux, `r.msid == "`+s.Name+`"`) {
			return &records{}, nil
		}
		var rows []*query.FluxRecord
		for i, t := range s.Times {
			rows = append(rows, query.NewFluxRecord(0, map[string]interface{}{
				"_time":  telemetry.ToTime(t),
				"_value": s.Values[i],
			}))
		}
		if strings.Contains(flux, "last()") {
			rows = rows[len(rows)-1:]
		}
		return &records{rows: rows}, nil
	}
	return telemetry.NewInfluxWithQuery(telemetry.DefaultConfig(), nil, q)
}

func newStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// #endregion helpers

// #region constructor-tests
func TestNewEngine_Errors(t *testing.T) {
	_, err := NewEngine(dpaCheck(t), nil, Options{})
	assert.True(t, errors.Is(err, checkerr.ErrConfiguration))

	_, err = NewEngine(config.Check{Name: "x"}, model(), Options{})
	assert.True(t, errors.Is(err, checkerr.ErrConfiguration))
}

// #endregion constructor-tests

// #region run-tests
func TestRun_SingleFixedLimit(t *testing.T) {
	cc := config.CheckConfig{
		Name: "simple",
		MSID: "1dpamzt",
		Limits: []config.LimitConfig{
			{Name: "planning.warning.high", Kind: "fixed", Direction: "max", Value: 20.0},
		},
	}
	c, err := config.BuildCheck(cc, nil)
	require.NoError(t, err)

	pred := &predictor.Static{Components: map[string]series.Series{
		"1dpamzt": {Name: "1dpamzt", Times: []float64{498, 500, 502, 504, 506}, Values: []float64{19, 21, 22, 18, 19}},
	}}
	e, err := NewEngine(c, pred, Options{})
	require.NoError(t, err)

	rep, err := e.Run(context.Background(), Request{Mode: continuity.ModePrediction, LoadStart: 500, Start: 498, Stop: 506})
	require.NoError(t, err)

	require.Len(t, rep.Records, 1)
	rec := rep.Records[0]
	require.Len(t, rec.Intervals, 1)
	assert.Equal(t, 500.0, rec.Intervals[0].Start)
	assert.Equal(t, 502.0, rec.Intervals[0].Stop)
	assert.Equal(t, 22.0, rec.Intervals[0].Extreme)
	assert.False(t, rep.Continuity.Seeded)
	assert.Nil(t, pred.Requests[0].Seeds)
}

func TestRun_ReportFollowsLimitSetOrder(t *testing.T) {
	e, err := NewEngine(dpaCheck(t), model(), Options{})
	require.NoError(t, err)
	rep, err := e.Run(context.Background(), Request{Mode: continuity.ModePrediction, Start: 0, Stop: 1000})
	require.NoError(t, err)

	var names []string
	for _, r := range rep.Records {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"planning.warning.high", "planning.warning.low", "zero_feps"}, names)
	zf, ok := rep.Record("planning.caution.low")
	require.True(t, ok)
	assert.Equal(t, "Zero FEPs (12.0 C)", zf.Label)
	assert.Len(t, rep.LimitLines, 3)
	require.NotNil(t, rep.Gate)
	assert.Equal(t, "pass", rep.Gate.Action)
}

func TestRun_PredictionChainSeedsFromHead(t *testing.T) {
	store := newStore(t)
	pred := model()
	rec := metrics.NewRecorder()
	e, err := NewEngine(dpaCheck(t), pred, Options{Store: store, Metrics: rec})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := e.Run(ctx, Request{LoadName: "JAN0126A", Mode: continuity.ModePrediction, Start: 0, Stop: 1000})
	require.NoError(t, err)
	assert.False(t, first.Continuity.Seeded, "first run has no prior state")
	assert.Equal(t, continuity.SourceNone, first.Continuity.Seed.Source)
	assert.InDelta(t, 21.0, first.Continuity.TerminalState["1dpamzt"], 1e-9)
	assert.Equal(t, 1000.0, first.Continuity.TerminalTime)

	second, err := e.Run(ctx, Request{LoadName: "JAN0826A", Mode: continuity.ModePrediction, Start: 1000, Stop: 2000})
	require.NoError(t, err)
	assert.True(t, second.Continuity.Seeded)
	assert.Equal(t, continuity.SourcePriorRun, second.Continuity.Seed.Source)
	assert.Equal(t, first.Continuity.TerminalState["1dpamzt"], second.Continuity.Seed.Value)
	assert.Equal(t, first.Metadata.RunID, second.Continuity.ParentRunID)

	require.Len(t, pred.Requests, 2)
	assert.Equal(t, first.Continuity.TerminalState["1dpamzt"], pred.Requests[1].Seeds["dpa0"].Value)

	head, err := store.Head("dpa")
	require.NoError(t, err)
	assert.Equal(t, second.Metadata.RunID, head.RunID)
	assert.Equal(t, first.Metadata.RunID, head.ParentID)

	stored, err := logging.ReportJSON(store.DB(), second.Metadata.RunID)
	require.NoError(t, err)
	assert.Contains(t, stored, `"violations"`)

	expected := `
# HELP thermcheck_runs_total Check runs by check, mode and outcome.
# TYPE thermcheck_runs_total counter
thermcheck_runs_total{check="dpa",mode="prediction",outcome="pass"} 2
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "thermcheck_runs_total"))
}

func TestRun_ExplicitPriorWins(t *testing.T) {
	store := newStore(t)
	pred := model()
	e, err := NewEngine(dpaCheck(t), pred, Options{Store: store})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.Run(ctx, Request{Mode: continuity.ModePrediction, Start: 0, Stop: 1000})
	require.NoError(t, err)

	rep, err := e.Run(ctx, Request{Mode: continuity.ModePrediction, Start: 1000, Stop: 2000, Prior: continuity.State{"1dpamzt": 12.5}})
	require.NoError(t, err)
	assert.Equal(t, 12.5, rep.Continuity.Seed.Value)
	assert.Empty(t, rep.Continuity.ParentRunID)
}

func TestRun_PriorWithoutQuantity(t *testing.T) {
	e, err := NewEngine(dpaCheck(t), model(), Options{})
	require.NoError(t, err)
	_, err = e.Run(context.Background(), Request{Mode: continuity.ModePrediction, Start: 0, Stop: 1000, Prior: continuity.State{"pitch": 90}})
	assert.True(t, errors.Is(err, checkerr.ErrDataUnavailable))
}

func TestRun_UndeclaredPseudoNodeIsNotSeeded(t *testing.T) {
	pred := model()
	pred.Declared = nil
	e, err := NewEngine(dpaCheck(t), pred, Options{})
	require.NoError(t, err)

	rep, err := e.Run(context.Background(), Request{Mode: continuity.ModePrediction, Start: 0, Stop: 1000, Prior: continuity.State{"1dpamzt": 12.5}})
	require.NoError(t, err)
	assert.False(t, rep.Continuity.Seeded)
	assert.Nil(t, pred.Requests[0].Seeds)
}

func TestRun_MissingMonitoredComponent(t *testing.T) {
	pred := &predictor.Static{Components: map[string]series.Series{
		"pitch": {Name: "pitch", Times: []float64{0}, Values: []float64{90}},
	}}
	e, err := NewEngine(dpaCheck(t), pred, Options{})
	require.NoError(t, err)
	_, err = e.Run(context.Background(), Request{Mode: continuity.ModePrediction, Start: 0, Stop: 10})
	var dua *checkerr.DataUnavailableError
	require.ErrorAs(t, err, &dua)
	assert.Equal(t, "1dpamzt", dua.Channel)
}

func TestRun_ZeroFEPsOnlyWhenFEPsOff(t *testing.T) {
	times := []float64{0, 100, 200, 300, 400}
	pred := &predictor.Static{Components: map[string]series.Series{
		"1dpamzt":   {Name: "1dpamzt", Times: times, Values: []float64{11, 11, 11.5, 13, 11}},
		"fep_count": {Name: "fep_count", Times: times, Values: []float64{0, 3, 0, 0, 0}},
	}}
	e, err := NewEngine(dpaCheck(t), pred, Options{})
	require.NoError(t, err)

	rep, err := e.Run(context.Background(), Request{Mode: continuity.ModePrediction, Start: 0, Stop: 400})
	require.NoError(t, err)

	zf, ok := rep.Record("zero_feps")
	require.True(t, ok)
	require.Len(t, zf.Intervals, 3)
	assert.Equal(t, 0.0, zf.Intervals[0].Start)
	assert.Equal(t, 200.0, zf.Intervals[1].Start)
	assert.Equal(t, 400.0, zf.Intervals[2].Start)
	assert.Equal(t, "pass", rep.Gate.Action, "zero_feps is advisory")
	assert.Equal(t, 1, rep.Gate.Advisories)
}

func TestRun_HardLimitFlagsLoad(t *testing.T) {
	times := []float64{0, 100, 200}
	pred := &predictor.Static{Components: map[string]series.Series{
		"1dpamzt":   {Name: "1dpamzt", Times: times, Values: []float64{36, 38, 36}},
		"fep_count": {Name: "fep_count", Times: times, Values: []float64{4, 4, 4}},
	}}
	e, err := NewEngine(dpaCheck(t), pred, Options{})
	require.NoError(t, err)

	rep, err := e.Run(context.Background(), Request{Mode: continuity.ModePrediction, Start: 0, Stop: 200})
	require.NoError(t, err)
	assert.Equal(t, "flag", rep.Gate.Action)
	assert.Equal(t, []string{"planning.warning.high"}, rep.ViolatedLimits())
}

func TestRun_ValidationSeedsFromTelemetry(t *testing.T) {
	times := grid(0, 3000, 100)
	temps := fill(times, func(i int, _ float64) float64 { return 25 + 0.1*float64(i) })
	archive := telemetry.NewArchive(328, series.Series{Name: "1dpamzt", Times: times, Values: temps})

	pred := model()
	e, err := NewEngine(dpaCheck(t), pred, Options{Telemetry: archive})
	require.NoError(t, err)

	rep, err := e.Run(context.Background(), Request{Start: 0, Stop: 3000})
	require.NoError(t, err)

	assert.Equal(t, continuity.ModeValidation, rep.Metadata.Mode, "telemetry covers the window")
	assert.Equal(t, continuity.SourceTelemetry, rep.Continuity.Seed.Source)
	assert.Equal(t, 25.0, rep.Continuity.Seed.Value)
	require.NotNil(t, rep.Validation)
	assert.True(t, rep.Validation.Passed, rep.Validation.Reason)
}

func TestRun_AutoModeWithInfluxTelemetry(t *testing.T) {
	times := grid(0, 3000, 100)
	temps := fill(times, func(i int, _ float64) float64 { return 25 + 0.1*float64(i) })
	src := influxOver(series.Series{Name: "1dpamzt", Times: times, Values: temps})

	e, err := NewEngine(dpaCheck(t), model(), Options{Telemetry: src})
	require.NoError(t, err)

	rep, err := e.Run(context.Background(), Request{Start: 0, Stop: 3000})
	require.NoError(t, err)
	assert.Equal(t, continuity.ModeValidation, rep.Metadata.Mode, "telemetry covers the window")
	assert.Equal(t, continuity.SourceTelemetry, rep.Continuity.Seed.Source)
	assert.Equal(t, 25.0, rep.Continuity.Seed.Value)
	require.NotNil(t, rep.Validation)

	rep, err = e.Run(context.Background(), Request{Start: 0, Stop: 5000})
	require.NoError(t, err)
	assert.Equal(t, continuity.ModePrediction, rep.Metadata.Mode, "telemetry ends before stop")
}

func TestRun_ValidationWithoutTelemetry(t *testing.T) {
	e, err := NewEngine(dpaCheck(t), model(), Options{})
	require.NoError(t, err)
	_, err = e.Run(context.Background(), Request{Mode: continuity.ModeValidation, Start: 0, Stop: 1000})
	assert.True(t, errors.Is(err, checkerr.ErrDataUnavailable))
}

func TestRun_AutoModeFallsBackToPrediction(t *testing.T) {
	archive := telemetry.NewArchive(328, series.Series{Name: "1dpamzt", Times: []float64{0, 100}, Values: []float64{20, 20}})
	e, err := NewEngine(dpaCheck(t), model(), Options{Telemetry: archive})
	require.NoError(t, err)

	rep, err := e.Run(context.Background(), Request{Start: 0, Stop: 1000})
	require.NoError(t, err)
	assert.Equal(t, continuity.ModePrediction, rep.Metadata.Mode)
	assert.Nil(t, rep.Validation)
}

func TestRun_BadRequest(t *testing.T) {
	rec := metrics.NewRecorder()
	e, err := NewEngine(dpaCheck(t), model(), Options{Metrics: rec})
	require.NoError(t, err)

	_, err = e.Run(context.Background(), Request{Mode: continuity.ModePrediction, Start: 10, Stop: 0})
	assert.True(t, errors.Is(err, checkerr.ErrConfiguration))

	_, err = e.Run(context.Background(), Request{Mode: "forecast", Start: 0, Stop: 10})
	assert.True(t, errors.Is(err, checkerr.ErrConfiguration))
}

func TestRun_PredictorErrorIsReturned(t *testing.T) {
	pred := &predictor.Static{Func: func(predictor.Request) (predictor.Prediction, error) {
		return predictor.Prediction{}, errors.New("model crashed")
	}}
	e, err := NewEngine(dpaCheck(t), pred, Options{})
	require.NoError(t, err)
	_, err = e.Run(context.Background(), Request{Mode: continuity.ModePrediction, Start: 0, Stop: 10})
	assert.EqualError(t, err, "model crashed")
	assert.Len(t, pred.Requests, 1, "no retries")
}

// #endregion run-tests
