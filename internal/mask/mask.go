package mask

import (
	"fmt"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region mask
// Mask is a boolean gate aligned 1:1 with a series' time samples. A true
// entry means the detector may consider that sample.
type Mask []bool

// All returns an all-true mask of length n.
func All(n int) Mask {
	m := make(Mask, n)
	for i := range m {
		m[i] = true
	}
	return m
}

// And combines two masks of equal length.
func (m Mask) And(other Mask) (Mask, error) {
	if len(m) != len(other) {
		return nil, checkerr.Evaluationf("mask and", "length %d != %d", len(m), len(other))
	}
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] && other[i]
	}
	return out, nil
}

// Count returns the number of true entries.
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// #endregion mask

// #region predicate
// Op is a comparison operator used by predicates.
type Op string

const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpLt Op = "lt"
	OpLe Op = "le"
	OpGt Op = "gt"
	OpGe Op = "ge"
)

// Predicate tests one auxiliary value.
type Predicate struct {
	Op    Op
	Value float64
}

// Equals is the common "count == 0" style predicate.
func Equals(v float64) Predicate { return Predicate{Op: OpEq, Value: v} }

// ParseOp validates an operator string from configuration.
func ParseOp(s string) (Op, error) {
	switch op := Op(s); op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return op, nil
	}
	return "", checkerr.Configf("mask", "unknown operator %q", s)
}

// Match applies the predicate to v.
func (p Predicate) Match(v float64) bool {
	switch p.Op {
	case OpEq:
		return v == p.Value
	case OpNe:
		return v != p.Value
	case OpLt:
		return v < p.Value
	case OpLe:
		return v <= p.Value
	case OpGt:
		return v > p.Value
	case OpGe:
		return v >= p.Value
	}
	return false
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %g", p.Op, p.Value)
}

// #endregion predicate

// #region compute
// Compute evaluates pred over every sample of aux. The result is aligned to
// aux's time grid; callers align aux with the prediction grid.
func Compute(aux series.Series, pred Predicate) Mask {
	m := make(Mask, len(aux.Values))
	for i, v := range aux.Values {
		m[i] = pred.Match(v)
	}
	return m
}

// ComputeOn evaluates pred over aux and checks that aux shares grid's time
// samples, returning an EvaluationError when it does not.
func ComputeOn(grid, aux series.Series, pred Predicate) (Mask, error) {
	if !series.SameGrid(grid, aux) {
		return nil, checkerr.Evaluationf("mask "+aux.Name, "time grid differs from %s (%d vs %d samples)", grid.Name, aux.Len(), grid.Len())
	}
	return Compute(aux, pred), nil
}

// #endregion compute
