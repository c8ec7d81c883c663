package eval

// #region eval-config
// EvalConfig holds settings for model validation against telemetry.
type EvalConfig struct {
	MaxGap     float64   // max seconds between a prediction sample and the telemetry sample paired with it
	HistLimit  []float64 // residuals are also summarized for telemetry >= HistLimit[0] (informational)
	MinSamples int       // fewer paired samples than this fails the quantity
}

// DefaultEvalConfig returns defaults matching a 328 s telemetry cadence.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxGap:     328.0,
		HistLimit:  nil,
		MinSamples: 10,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single percentile check.
type EvalMetric struct {
	Name       string  `json:"name"`
	MSID       string  `json:"msid"`
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
	Limit      float64 `json:"limit"`
	Pass       bool    `json:"pass"`
	Blocking   bool    `json:"blocking"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of a validation run.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result

// #region pair
// Pair is one validated quantity: the model prediction and the matching telemetry.
type Pair struct {
	MSID      string
	Predicted []float64
	Times     []float64
	Telemetry func(t float64) (float64, bool)
}

// #endregion pair
