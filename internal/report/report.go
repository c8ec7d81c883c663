package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/eval"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/gate"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/limits"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/violation"
)

// #region options
// Option attaches optional sections to an assembled report.
type Option func(*Report)

// WithValidation attaches a model validation result.
func WithValidation(res eval.EvalResult) Option {
	return func(r *Report) { r.Validation = &res }
}

// WithGate attaches the load verdict.
func WithGate(d gate.GateDecision) Option {
	return func(r *Report) { r.Gate = &d }
}

// #endregion options

// #region assemble
// Assemble orders records by the registry's declaration order, appends
// records for names outside the set in the order given, and derives limit
// lines from the set. Duplicate record names are an EvaluationError.
func Assemble(reg *limits.Registry, records []violation.Record, cont Continuity, meta Metadata, opts ...Option) (*Report, error) {
	if reg == nil {
		return nil, checkerr.Evaluationf("assemble", "nil registry")
	}
	set := reg.Set()

	byName := make(map[string]violation.Record, len(records))
	var extras []violation.Record
	for _, rec := range records {
		if _, dup := byName[rec.Name]; dup {
			return nil, checkerr.Evaluationf("assemble", "duplicate record for limit %q", rec.Name)
		}
		byName[rec.Name] = copyRecord(rec)
		if set.Position(rec.Name) < 0 {
			extras = append(extras, byName[rec.Name])
		}
	}

	ordered := make([]violation.Record, 0, len(records))
	for _, name := range set.Names() {
		if rec, ok := byName[name]; ok {
			ordered = append(ordered, rec)
		}
	}
	ordered = append(ordered, extras...)

	r := &Report{
		Metadata:   copyMetadata(meta),
		Records:    ordered,
		Continuity: copyContinuity(cont),
		LimitLines: limitLines(set),
		aliases:    reg.Aliases(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func limitLines(set *limits.Set) []LimitLine {
	lines := make([]LimitLine, 0, set.Len())
	for _, rule := range set.Rules() {
		if rule.Kind == limits.KindPercentile && rule.Percentile == 0 {
			continue
		}
		v, err := rule.Threshold(rule.Percentile)
		if err != nil {
			continue
		}
		label := rule.Display.Label
		if label == "" {
			label = rule.Name
		}
		lines = append(lines, LimitLine{
			Name:      rule.Name,
			Label:     label,
			Value:     v,
			Color:     rule.Display.Color,
			LineStyle: rule.Display.LineStyle,
		})
	}
	return lines
}

// #endregion assemble

// #region accessors
// Record returns the record for name, resolving limits_map aliases.
func (r *Report) Record(name string) (violation.Record, bool) {
	if to, ok := r.aliases[name]; ok {
		name = to
	}
	for _, rec := range r.Records {
		if rec.Name == name {
			return rec, true
		}
	}
	return violation.Record{}, false
}

// Violations returns the total number of intervals across all records.
func (r *Report) Violations() int {
	n := 0
	for _, rec := range r.Records {
		n += len(rec.Intervals)
	}
	return n
}

// ViolatedLimits returns the names of records with at least one interval, in report order.
func (r *Report) ViolatedLimits() []string {
	var names []string
	for _, rec := range r.Records {
		if rec.Violated() {
			names = append(names, rec.Name)
		}
	}
	return names
}

// WriteJSON encodes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// #endregion accessors

// #region copies
func copyRecord(rec violation.Record) violation.Record {
	out := rec
	out.Intervals = append([]violation.Interval{}, rec.Intervals...)
	return out
}

func copyMetadata(m Metadata) Metadata {
	out := m
	if m.Extra != nil {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func copyContinuity(c Continuity) Continuity {
	out := c
	if c.TerminalState != nil {
		out.TerminalState = make(continuity.State, len(c.TerminalState))
		for k, v := range c.TerminalState {
			out.TerminalState[k] = v
		}
	}
	return out
}

// #endregion copies
