package predictor

import (
	"context"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region static
// Static is an in-memory predictor. With Func set it computes each
// prediction from the request; otherwise it returns Components windowed to
// the request. Requests are recorded for inspection.
type Static struct {
	Declared   []string
	Components map[string]series.Series
	Func       func(req Request) (Prediction, error)

	Requests []Request
}

// DeclaresComponent reports whether name is in Declared or Components.
func (s *Static) DeclaresComponent(name string) bool {
	for _, d := range s.Declared {
		if d == name {
			return true
		}
	}
	_, ok := s.Components[name]
	return ok
}

// Predict returns the canned or computed prediction.
func (s *Static) Predict(_ context.Context, req Request) (Prediction, error) {
	s.Requests = append(s.Requests, req)
	if s.Func != nil {
		return s.Func(req)
	}
	out := Prediction{Components: make(map[string]series.Series, len(s.Components))}
	for name, c := range s.Components {
		out.Components[name] = c.Window(req.Start, req.Stop)
	}
	return out, nil
}

// #endregion static
