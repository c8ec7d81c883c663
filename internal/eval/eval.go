package eval

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/limits"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region eval-harness
// EvalHarness compares predictions with telemetry. Each validated MSID has a
// percentile rule whose slots give the allowed |residual| at that percentile.
type EvalHarness struct {
	config EvalConfig
	limits *limits.Registry
}

// NewEvalHarness creates an eval harness over the validation limits.
func NewEvalHarness(config EvalConfig, validLimits *limits.Registry) *EvalHarness {
	return &EvalHarness{config: config, limits: validLimits}
}

// PairSeries pairs a predicted series with telemetry by nearest sample.
func (h *EvalHarness) PairSeries(predicted, telemetry series.Series) Pair {
	return Pair{
		MSID:      predicted.Name,
		Predicted: predicted.Values,
		Times:     predicted.Times,
		Telemetry: func(t float64) (float64, bool) {
			v, err := telemetry.Nearest(t, h.config.MaxGap)
			return v, err == nil
		},
	}
}

// Run checks every pair whose MSID has a validation rule. Pairs without a
// rule are skipped. primary names the MSID the hist limit applies to.
func (h *EvalHarness) Run(pairs []Pair, primary string) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	for _, p := range pairs {
		rule, err := h.limits.Rule(strings.ToUpper(p.MSID))
		if err != nil {
			continue
		}

		residuals, temps := residualsOf(p)
		if len(residuals) < h.config.MinSamples {
			failReasons = append(failReasons, fmt.Sprintf("%s has %d paired samples (need %d)", p.MSID, len(residuals), h.config.MinSamples))
			metrics = append(metrics, EvalMetric{Name: p.MSID + "_samples", MSID: p.MSID, Value: float64(len(residuals)), Limit: float64(h.config.MinSamples), Blocking: true})
			continue
		}

		sorted := sortedCopy(residuals)
		for _, slot := range rule.Slots() {
			limit, _ := rule.Threshold(slot)
			value := percentile(sorted, slot)
			pass := math.Abs(value) <= limit
			metrics = append(metrics, EvalMetric{
				Name:       fmt.Sprintf("%s_p%g", p.MSID, slot),
				MSID:       p.MSID,
				Percentile: slot,
				Value:      value,
				Limit:      limit,
				Pass:       pass,
				Blocking:   true,
			})
			if !pass {
				failReasons = append(failReasons, fmt.Sprintf("%s p%g residual %.3f exceeds ±%.3f", p.MSID, slot, value, limit))
			}
		}

		// Hist-limit residuals are informational only.
		if strings.EqualFold(p.MSID, primary) && len(h.config.HistLimit) > 0 {
			hot := make([]float64, 0, len(residuals))
			for i, r := range residuals {
				if temps[i] >= h.config.HistLimit[0] {
					hot = append(hot, r)
				}
			}
			if len(hot) > 0 {
				hotSorted := sortedCopy(hot)
				for _, slot := range rule.Slots() {
					limit, _ := rule.Threshold(slot)
					value := percentile(hotSorted, slot)
					metrics = append(metrics, EvalMetric{
						Name:       fmt.Sprintf("%s_hist%g_p%g", p.MSID, h.config.HistLimit[0], slot),
						MSID:       p.MSID,
						Percentile: slot,
						Value:      value,
						Limit:      limit,
						Pass:       math.Abs(value) <= limit,
					})
				}
			}
		}
	}

	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("validation failed: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("validation failed: %d checks: %s", len(failReasons), failReasons[0])
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
// residualsOf returns telemetry - prediction for every paired sample, plus
// the telemetry value used for each residual.
func residualsOf(p Pair) (residuals, temps []float64) {
	for i, t := range p.Times {
		if i >= len(p.Predicted) {
			break
		}
		obs, ok := p.Telemetry(t)
		if !ok {
			continue
		}
		residuals = append(residuals, obs-p.Predicted[i])
		temps = append(temps, obs)
	}
	return residuals, temps
}

func sortedCopy(v []float64) []float64 {
	out := append([]float64(nil), v...)
	sort.Float64s(out)
	return out
}

// percentile interpolates linearly between closest ranks of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// #endregion helpers
