package violation

// #region interval
// Interval is a maximal run of consecutive breaching samples.
type Interval struct {
	Start      float64 `json:"start"`
	Stop       float64 `json:"stop"`
	Extreme    float64 `json:"extreme"` // max for max-limits, min for min-limits
	StartIndex int     `json:"start_index"`
	StopIndex  int     `json:"stop_index"`
}

// Samples returns how many samples the interval covers.
func (iv Interval) Samples() int { return iv.StopIndex - iv.StartIndex + 1 }

// Duration returns Stop - Start in seconds.
func (iv Interval) Duration() float64 { return iv.Stop - iv.Start }

// #endregion interval

// #region record
// Record is the per-limit violation report entry. An empty Intervals slice
// means the limit was checked and never breached.
type Record struct {
	Name      string     `json:"name"`
	Label     string     `json:"label"`
	Kind      string     `json:"type"` // "Min" | "Max"
	Threshold float64    `json:"threshold"`
	Intervals []Interval `json:"values"`
}

// Violated reports whether the record holds at least one interval.
func (r Record) Violated() bool { return len(r.Intervals) > 0 }

// Extreme returns the most extreme value across all intervals.
func (r Record) Extreme() (float64, bool) {
	if len(r.Intervals) == 0 {
		return 0, false
	}
	ext := r.Intervals[0].Extreme
	for _, iv := range r.Intervals[1:] {
		if (r.Kind == "Max" && iv.Extreme > ext) || (r.Kind == "Min" && iv.Extreme < ext) {
			ext = iv.Extreme
		}
	}
	return ext, true
}

// #endregion record
