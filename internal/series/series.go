package series

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
)

// #region series
// Series is a named, time-ordered sequence of samples. Times are seconds on a
// single epoch (CXC seconds for spacecraft data). Treat as immutable once built.
type Series struct {
	Name   string    `json:"name"`
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

// New builds a Series and validates it.
func New(name string, times, values []float64) (Series, error) {
	s := Series{Name: name, Times: times, Values: values}
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Times) }

// Validate checks that times and values line up and times never decrease.
func (s Series) Validate() error {
	if len(s.Times) != len(s.Values) {
		return checkerr.Evaluationf("series "+s.Name, "%d times but %d values", len(s.Times), len(s.Values))
	}
	for i := 1; i < len(s.Times); i++ {
		if s.Times[i] < s.Times[i-1] {
			return checkerr.Evaluationf("series "+s.Name, "time decreases at index %d (%.3f < %.3f)", i, s.Times[i], s.Times[i-1])
		}
	}
	for i, v := range s.Values {
		if math.IsNaN(v) {
			return checkerr.Evaluationf("series "+s.Name, "NaN value at index %d", i)
		}
	}
	return nil
}

// #endregion series

// #region accessors
// Last returns the terminal sample of the series.
func (s Series) Last() (t, v float64, err error) {
	if len(s.Times) == 0 {
		return 0, 0, checkerr.Unavailablef(s.Name, math.NaN(), "series is empty")
	}
	n := len(s.Times) - 1
	return s.Times[n], s.Values[n], nil
}

// Nearest returns the sample closest in time to t. maxGap bounds how far the
// chosen sample may lie from t; maxGap <= 0 disables the bound.
func (s Series) Nearest(t, maxGap float64) (float64, error) {
	n := len(s.Times)
	if n == 0 {
		return 0, checkerr.Unavailablef(s.Name, t, "series is empty")
	}
	i := sort.SearchFloat64s(s.Times, t)
	best := -1
	switch {
	case i == 0:
		best = 0
	case i == n:
		best = n - 1
	default:
		if t-s.Times[i-1] <= s.Times[i]-t {
			best = i - 1
		} else {
			best = i
		}
	}
	if gap := math.Abs(s.Times[best] - t); maxGap > 0 && gap > maxGap {
		return 0, checkerr.Unavailablef(s.Name, t, "nearest sample is %.1fs away (max %.1fs)", gap, maxGap)
	}
	return s.Values[best], nil
}

// SameGrid reports whether two series share an identical time grid.
func SameGrid(a, b Series) bool {
	if len(a.Times) != len(b.Times) {
		return false
	}
	for i := range a.Times {
		if a.Times[i] != b.Times[i] {
			return false
		}
	}
	return true
}

// Window returns the samples with start <= time <= stop.
func (s Series) Window(start, stop float64) Series {
	lo := sort.SearchFloat64s(s.Times, start)
	hi := sort.Search(len(s.Times), func(i int) bool { return s.Times[i] > stop })
	if lo > hi {
		lo = hi
	}
	return Series{Name: s.Name, Times: s.Times[lo:hi], Values: s.Values[lo:hi]}
}

// String summarizes the series for logs.
func (s Series) String() string {
	if len(s.Times) == 0 {
		return fmt.Sprintf("%s[empty]", s.Name)
	}
	return fmt.Sprintf("%s[%d samples %.1f..%.1f]", s.Name, len(s.Times), s.Times[0], s.Times[len(s.Times)-1])
}

// #endregion accessors
