package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoHardLimit  VetoType = "hard_limit_violation"
	VetoValidation VetoType = "validation_failure"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Limit  string   `json:"limit,omitempty"`
	Reason string   `json:"reason"`
}

// #endregion veto-signal

// #region gate-config
// GateConfig lists which limits veto a load.
type GateConfig struct {
	HardLimits        []string // canonical limit names; violations flag the load
	RequireValidation bool     // a failed model validation flags the load
}

// DefaultGateConfig treats the planning warning limits as hard.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		HardLimits:        []string{"planning.warning.high", "planning.warning.low"},
		RequireValidation: false,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the load verdict.
type GateDecision struct {
	Action      string       `json:"action"` // "pass" | "flag"
	Reason      string       `json:"reason"`
	Vetoed      bool         `json:"vetoed"`
	VetoSignals []VetoSignal `json:"veto_signals,omitempty"`
	Advisories  int          `json:"advisories"` // violated limits that are not hard
}

// #endregion gate-decision
