package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/predictor"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
)

// #region fixture-types

// Fixture is a recorded chain of consecutive loads for one check type.
type Fixture struct {
	Description  string           `json:"description"`
	Check        string           `json:"check"`
	Declares     []string         `json:"declares"`                // components the recorded model declares
	InitialState continuity.State `json:"initial_state,omitempty"` // seeds the first load
	Loads        []FixtureLoad    `json:"loads"`
}

// FixtureLoad is one load with the prediction the model produced for it.
type FixtureLoad struct {
	Name       string                   `json:"name"`
	LoadStart  float64                  `json:"load_start"`
	Start      float64                  `json:"tstart"`
	Stop       float64                  `json:"tstop"`
	States     []predictor.CommandState `json:"states,omitempty"`
	Components map[string]series.Series `json:"components"`
	Expected   FixtureExpected          `json:"expected"`
}

// FixtureExpected is what the load should produce. Violations maps a limit
// name (aliases allowed) to its interval count; unlisted limits are not
// checked.
type FixtureExpected struct {
	Verdict    string         `json:"verdict,omitempty"`
	Violations map[string]int `json:"violations,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes a fixture and checks that loads are contiguous.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Check == "" {
		return nil, fmt.Errorf("fixture names no check")
	}
	if len(f.Loads) == 0 {
		return nil, fmt.Errorf("fixture has no loads")
	}
	for i := range f.Loads {
		l := &f.Loads[i]
		if l.Stop < l.Start {
			return nil, fmt.Errorf("load %s: tstop before tstart", l.Name)
		}
		if i > 0 && l.Start < f.Loads[i-1].Start {
			return nil, fmt.Errorf("load %s starts before load %s", l.Name, f.Loads[i-1].Name)
		}
		for name, s := range l.Components {
			s.Name = name
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("load %s component %s: %w", l.Name, name, err)
			}
			l.Components[name] = s
		}
	}
	return &f, nil
}

// Predictor serves each load's recorded components. Seeds are accepted and
// recorded but do not change the output.
func (f *Fixture) Predictor() *predictor.Static {
	loads := f.Loads
	return &predictor.Static{
		Declared: f.Declares,
		Func: func(req predictor.Request) (predictor.Prediction, error) {
			for _, l := range loads {
				if l.Start == req.Start && l.Stop == req.Stop {
					return predictor.Prediction{Components: l.Components}, nil
				}
			}
			return predictor.Prediction{}, fmt.Errorf("no recorded prediction for [%.1f, %.1f]", req.Start, req.Stop)
		},
	}
}

// ComponentNames lists the recorded components of a load, sorted.
func (l FixtureLoad) ComponentNames() []string {
	names := make([]string, 0, len(l.Components))
	for name := range l.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// #endregion fixture-loader
