package predictor

import (
	"context"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region schedule
// CommandState is one constant-configuration interval of a load's command
// schedule (pitch, ccd_count, fep_count, clocking, simpos, ...).
type CommandState struct {
	Start  float64            `json:"tstart"`
	Stop   float64            `json:"tstop"`
	Values map[string]float64 `json:"values"`
}

// #endregion schedule

// #region request
// Request asks the thermal model for a prediction over [Start, Stop].
type Request struct {
	Check  string                     `json:"check"`
	MSID   string                     `json:"msid"`
	Start  float64                    `json:"start"`
	Stop   float64                    `json:"stop"`
	States []CommandState             `json:"states"`
	Seeds  map[string]continuity.Seed `json:"seeds,omitempty"` // pseudo-node -> boundary value
}

// #endregion request

// #region prediction
// Prediction maps component names to their predicted series.
type Prediction struct {
	Components map[string]series.Series
}

// Component returns the named series.
func (p Prediction) Component(name string) (series.Series, bool) {
	s, ok := p.Components[name]
	return s, ok
}

// TerminalState returns the last value of every component.
func (p Prediction) TerminalState() (continuity.State, float64) {
	state := make(continuity.State, len(p.Components))
	var last float64
	for name, s := range p.Components {
		t, v, err := s.Last()
		if err != nil {
			continue
		}
		state[name] = v
		if t > last {
			last = t
		}
	}
	return state, last
}

// #endregion prediction

// #region predictor
// Predictor is the external thermal model.
type Predictor interface {
	// DeclaresComponent reports whether the model has a component with this
	// name, e.g. a seedable pseudo-node.
	DeclaresComponent(name string) bool
	Predict(ctx context.Context, req Request) (Prediction, error)
}

// #endregion predictor
