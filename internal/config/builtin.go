package config

import "github.com/danielpatrickdp/thermal-check/go-checker/internal/rules"

// #region builtin
// Builtin returns the dpa and cea check types. Both validate the monitored
// MSID plus pitch and SIM position; only dpa carries the zero-FEPs limit.
func Builtin() []CheckConfig {
	return []CheckConfig{dpaCheck(), ceaCheck()}
}

func dpaCheck() CheckConfig {
	return CheckConfig{
		Name:       "dpa",
		MSID:       "1dpamzt",
		PseudoNode: "dpa0",
		Limits: []LimitConfig{
			{Name: "planning.warning.high", Kind: "fixed", Direction: "max", Value: 37.5, Label: "Planning High", Color: "gray"},
			{Name: "planning.warning.low", Kind: "fixed", Direction: "min", Value: 10.0, Label: "Planning Low", Color: "gray"},
			{Name: "zero_feps", Kind: "fixed", Direction: "min", Value: 12.0, Label: "Zero FEPs", Color: "dodgerblue", LineStyle: "--"},
		},
		LimitsMap: map[string]string{"planning.caution.low": "zero_feps"},
		ValidLimits: map[string][][]float64{
			"1DPAMZT": {{1, 2.0}, {50, 1.0}, {99, 2.0}},
			"PITCH":   {{1, 3.0}, {99, 3.0}},
			"TSCPOS":  {{1, 2.5}, {99, 2.5}},
		},
		HistLimit: []float64{20.0},
		CustomRules: []rules.Decl{
			{Type: rules.TypeMaskedLimit, Limit: "planning.caution.low", Channel: "fep_count", Op: "eq", Value: 0, Label: "Zero FEPs (%.1f C)"},
		},
		Gate: GateConfig{Hard: []string{"planning.warning.high", "planning.warning.low"}},
	}
}

func ceaCheck() CheckConfig {
	return CheckConfig{
		Name:       "cea",
		MSID:       "2ceahvpt",
		PseudoNode: "cea0",
		Limits: []LimitConfig{
			{Name: "planning.warning.high", Kind: "fixed", Direction: "max", Value: 19.0, Label: "Planning High", Color: "gray"},
			{Name: "planning.warning.low", Kind: "fixed", Direction: "min", Value: -10.0, Label: "Planning Low", Color: "gray"},
		},
		ValidLimits: map[string][][]float64{
			"2CEAHVPT": {{1, 2.0}, {50, 1.0}, {99, 2.0}},
			"PITCH":    {{1, 3.0}, {99, 3.0}},
			"TSCPOS":   {{1, 2.5}, {99, 2.5}},
		},
		HistLimit: []float64{20.0},
		Gate:      GateConfig{Hard: []string{"planning.warning.high", "planning.warning.low"}},
	}
}

// #endregion builtin
