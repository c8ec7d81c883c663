package gate

import (
	"fmt"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/eval"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/violation"
)

// #region gate
// Gate decides whether a load passes review.
type Gate struct {
	config GateConfig
	hard   map[string]bool
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	hard := make(map[string]bool, len(config.HardLimits))
	for _, name := range config.HardLimits {
		hard[name] = true
	}
	return &Gate{config: config, hard: hard}
}

// Evaluate checks hard vetoes first, then counts advisory violations.
// validation may be nil (prediction mode).
func (g *Gate) Evaluate(records []violation.Record, validation *eval.EvalResult) GateDecision {
	var vetoes []VetoSignal
	advisories := 0

	for _, rec := range records {
		if !rec.Violated() {
			continue
		}
		if !g.hard[rec.Name] {
			advisories++
			continue
		}
		ext, _ := rec.Extreme()
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoHardLimit,
			Limit:  rec.Name,
			Reason: fmt.Sprintf("%s: %d interval(s), extreme %.2f vs %.2f", rec.Label, len(rec.Intervals), ext, rec.Threshold),
		})
	}

	if g.config.RequireValidation && validation != nil && !validation.Passed {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoValidation,
			Reason: validation.Reason,
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "flag",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
			Advisories:  advisories,
		}
	}

	reason := "no violations"
	if advisories > 0 {
		reason = fmt.Sprintf("passed with %d advisory limit(s) violated", advisories)
	}
	return GateDecision{
		Action:     "pass",
		Reason:     reason,
		Advisories: advisories,
	}
}

// #endregion gate
