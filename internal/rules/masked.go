package rules

import (
	"fmt"
	"regexp"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/mask"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/violation"
)

// #region masked-limit
// MaskedLimit evaluates a limit only where an auxiliary component satisfies
// a predicate, e.g. the zero-FEPs floor that applies while fep_count == 0.
type MaskedLimit struct {
	limit       string
	channel     string
	pred        mask.Predicate
	labelFormat string
}

// NewMaskedLimit builds a masked limit rule. The first float verb in
// labelFormat (%f, %.1f, %g, ...) receives the resolved threshold; any other
// text, including a bare %, is kept as written.
func NewMaskedLimit(limit, channel string, pred mask.Predicate, labelFormat string) *MaskedLimit {
	return &MaskedLimit{limit: limit, channel: channel, pred: pred, labelFormat: labelFormat}
}

// ZeroFEPs is the DPA check's floor that only applies with all FEPs off.
func ZeroFEPs(limit string) *MaskedLimit {
	return NewMaskedLimit(limit, "fep_count", mask.Equals(0), "Zero FEPs (%.1f C)")
}

// Limit returns the limit name this rule claims.
func (m *MaskedLimit) Limit() string { return m.limit }

// Evaluate computes the mask from the auxiliary component and runs the detector.
func (m *MaskedLimit) Evaluate(in Input) (violation.Record, error) {
	rule, err := in.Registry.Rule(m.limit)
	if err != nil {
		return violation.Record{}, err
	}
	threshold, err := rule.Threshold(rule.Percentile)
	if err != nil {
		return violation.Record{}, err
	}

	aux, ok := in.Components[m.channel]
	if !ok {
		return violation.Record{}, checkerr.Unavailablef(m.channel, in.LoadStart, "prediction has no %s component for mask", m.channel)
	}
	mk, err := mask.ComputeOn(in.Series, aux, m.pred)
	if err != nil {
		return violation.Record{}, err
	}

	intervals, err := violation.Detect(in.Series, threshold, rule.Direction, mk, in.LoadStart)
	if err != nil {
		return violation.Record{}, fmt.Errorf("masked limit %s: %w", rule.Name, err)
	}

	label := violation.DefaultLabel(rule, threshold)
	if m.labelFormat != "" {
		label = formatLabel(m.labelFormat, threshold)
	}

	return violation.Record{
		Name:      rule.Name,
		Label:     label,
		Kind:      rule.Direction.Label(),
		Threshold: threshold,
		Intervals: intervals,
	}, nil
}

var floatVerb = regexp.MustCompile(`%[-+#0]*[0-9]*(?:\.[0-9]+)?[eEfFgG]`)

func formatLabel(format string, threshold float64) string {
	loc := floatVerb.FindStringIndex(format)
	if loc == nil {
		return format
	}
	return format[:loc[0]] + fmt.Sprintf(format[loc[0]:loc[1]], threshold) + format[loc[1]:]
}

// #endregion masked-limit
