package continuity

import (
	"context"
	"fmt"
)

// #region mode
// Mode selects where the initial boundary value comes from.
type Mode string

const (
	// ModePrediction seeds from the prior run's terminal state.
	ModePrediction Mode = "prediction"
	// ModeValidation seeds from telemetry at the run start.
	ModeValidation Mode = "validation"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModePrediction, ModeValidation:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want prediction or validation)", s)
}

// #endregion mode

// #region seed
// Source records where a seed value came from.
type Source string

const (
	SourceNone      Source = "none"
	SourcePriorRun  Source = "prior_run"
	SourceTelemetry Source = "telemetry"
)

// Seed is the boundary value handed to the predictor's pseudo-node.
type Seed struct {
	Quantity string  `json:"quantity"`
	Source   Source  `json:"source"`
	Value    float64 `json:"value"`
	Time     float64 `json:"time"`
}

// NoSeed signals that the predictor must use its own initial condition.
var NoSeed = Seed{Source: SourceNone}

// Defined reports whether the seed carries a value.
func (s Seed) Defined() bool { return s.Source != SourceNone && s.Source != "" }

// #endregion seed

// #region collaborators
// State is a run's terminal state: component name -> last value.
type State map[string]float64

// TelemetryLookup returns the sampled value of channel nearest to t or a
// DataUnavailableError.
type TelemetryLookup interface {
	Lookup(ctx context.Context, channel string, t float64) (float64, error)
}

// ComponentDeclarer is the predictor capability the resolver queries before
// seeding a boundary component.
type ComponentDeclarer interface {
	DeclaresComponent(name string) bool
}

// #endregion collaborators
