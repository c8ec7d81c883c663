package limits

// #region kind
// Kind selects how a rule turns into a scalar threshold.
type Kind string

const (
	KindFixed      Kind = "fixed"
	KindPercentile Kind = "percentile"
)

// #endregion kind

// #region direction
// Direction says which side of the threshold is a breach.
type Direction string

const (
	DirectionMin Direction = "min" // breach when value < threshold
	DirectionMax Direction = "max" // breach when value > threshold
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionMin || d == DirectionMax
}

// Breaches reports whether value is on the wrong side of threshold.
func (d Direction) Breaches(value, threshold float64) bool {
	if d == DirectionMax {
		return value > threshold
	}
	return value < threshold
}

// MoreExtreme reports whether a is further into breach territory than b.
func (d Direction) MoreExtreme(a, b float64) bool {
	if d == DirectionMax {
		return a > b
	}
	return a < b
}

// Label is the report spelling of the direction ("Min" / "Max").
func (d Direction) Label() string {
	if d == DirectionMax {
		return "Max"
	}
	return "Min"
}

// #endregion direction

// #region rule
// Breakpoint is one (percentile, value) slot of a percentile rule.
type Breakpoint struct {
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

// Display carries the hints a renderer needs to draw a limit line.
type Display struct {
	Label     string `json:"label,omitempty"`
	Color     string `json:"color,omitempty"`
	LineStyle string `json:"linestyle,omitempty"`
}

// Rule is one named threshold rule.
type Rule struct {
	Name        string       `json:"name"`
	Kind        Kind         `json:"kind"`
	Direction   Direction    `json:"direction"`
	Value       float64      `json:"value,omitempty"`       // fixed rules
	Breakpoints []Breakpoint `json:"breakpoints,omitempty"` // percentile rules
	Percentile  float64      `json:"percentile,omitempty"`  // default slot for percentile rules, 0 = none
	Display     Display      `json:"display"`
}

// #endregion rule
