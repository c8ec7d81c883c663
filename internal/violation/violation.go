package violation

import (
	"fmt"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/limits"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/mask"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region detect
// Detect returns the maximal runs of samples that breach threshold in
// direction dir, considering only mask-true samples at or after loadStart.
// A nil mask admits every sample. An empty result is not an error.
func Detect(s series.Series, threshold float64, dir limits.Direction, m mask.Mask, loadStart float64) ([]Interval, error) {
	if !dir.Valid() {
		return nil, checkerr.Evaluationf("detect "+s.Name, "unknown direction %q", dir)
	}
	if len(s.Times) != len(s.Values) {
		return nil, checkerr.Evaluationf("detect "+s.Name, "%d times but %d values", len(s.Times), len(s.Values))
	}
	if m != nil && len(m) != len(s.Values) {
		return nil, checkerr.Evaluationf("detect "+s.Name, "mask length %d != series length %d", len(m), len(s.Values))
	}

	intervals := []Interval{}
	open := false
	var cur Interval

	for i, v := range s.Values {
		breach := s.Times[i] >= loadStart &&
			(m == nil || m[i]) &&
			dir.Breaches(v, threshold)

		switch {
		case breach && !open:
			cur = Interval{Start: s.Times[i], Stop: s.Times[i], Extreme: v, StartIndex: i, StopIndex: i}
			open = true
		case breach && open:
			cur.Stop = s.Times[i]
			cur.StopIndex = i
			if dir.MoreExtreme(v, cur.Extreme) {
				cur.Extreme = v
			}
		case !breach && open:
			intervals = append(intervals, cur)
			open = false
		}
	}
	if open {
		intervals = append(intervals, cur)
	}
	return intervals, nil
}

// #endregion detect

// #region evaluate
// Evaluate resolves rule's threshold via threshold and wraps Detect's output
// in a Record labelled for reports.
func Evaluate(s series.Series, rule limits.Rule, threshold float64, m mask.Mask, loadStart float64) (Record, error) {
	intervals, err := Detect(s, threshold, rule.Direction, m, loadStart)
	if err != nil {
		return Record{}, fmt.Errorf("evaluate %s: %w", rule.Name, err)
	}
	return Record{
		Name:      rule.Name,
		Label:     DefaultLabel(rule, threshold),
		Kind:      rule.Direction.Label(),
		Threshold: threshold,
		Intervals: intervals,
	}, nil
}

// DefaultLabel renders "<label> (<threshold> C)" using the rule's display
// label, falling back to its name.
func DefaultLabel(rule limits.Rule, threshold float64) string {
	label := rule.Display.Label
	if label == "" {
		label = rule.Name
	}
	return fmt.Sprintf("%s (%.1f C)", label, threshold)
}

// #endregion evaluate
