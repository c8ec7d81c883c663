package config

import (
	"time"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/eval"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/gate"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/limits"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/rules"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/telemetry"
)

// #region file
// File is the on-disk configuration.
type File struct {
	DBPath    string           `yaml:"db_path" json:"db_path"`
	LogLevel  string           `yaml:"log_level" json:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Predictor PredictorConfig  `yaml:"predictor" json:"predictor"`
	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`
	Checks    []CheckConfig    `yaml:"checks" json:"checks" validate:"required,min=1,dive"`
}

// PredictorConfig locates the thermal model service.
type PredictorConfig struct {
	Addr    string        `yaml:"addr" json:"addr"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
}

// #endregion file

// #region check-config
// CheckConfig declares one check type.
type CheckConfig struct {
	Name        string                 `yaml:"name" json:"name" validate:"required"`
	MSID        string                 `yaml:"msid" json:"msid" validate:"required"`
	PseudoNode  string                 `yaml:"pseudo_node" json:"pseudo_node"`
	Limits      []LimitConfig          `yaml:"limits" json:"limits" validate:"required,min=1,dive"`
	LimitsMap   map[string]string      `yaml:"limits_map" json:"limits_map"`
	ValidLimits map[string][][]float64 `yaml:"valid_limits" json:"valid_limits"`
	HistLimit   []float64              `yaml:"hist_limit" json:"hist_limit"`
	MinSamples  int                    `yaml:"min_samples" json:"min_samples" validate:"gte=0"`
	CustomRules []rules.Decl           `yaml:"custom_rules" json:"custom_rules" validate:"dive"`
	Gate        GateConfig             `yaml:"gate" json:"gate"`
}

// LimitConfig declares one limit rule. Breakpoints are [percentile, value]
// pairs.
type LimitConfig struct {
	Name        string      `yaml:"name" json:"name" validate:"required"`
	Kind        string      `yaml:"kind" json:"kind" validate:"required,oneof=fixed percentile"`
	Direction   string      `yaml:"direction" json:"direction" validate:"required,oneof=min max"`
	Value       float64     `yaml:"value" json:"value"`
	Breakpoints [][]float64 `yaml:"breakpoints" json:"breakpoints" validate:"dive,len=2"`
	Percentile  float64     `yaml:"percentile" json:"percentile" validate:"gte=0,lte=100"`
	Label       string      `yaml:"label" json:"label"`
	Color       string      `yaml:"color" json:"color"`
	LineStyle   string      `yaml:"linestyle" json:"linestyle"`
}

// GateConfig names the limits whose violations flag a load.
type GateConfig struct {
	Hard              []string `yaml:"hard" json:"hard"`
	RequireValidation bool     `yaml:"require_validation" json:"require_validation"`
}

// #endregion check-config

// #region check
// Check is a fully built check type, ready for the engine.
type Check struct {
	Name       string
	MSID       string
	PseudoNode string
	Registry   *limits.Registry
	Validation *limits.Registry // nil when the check has no valid_limits
	Rules      []rules.CustomRule
	Gate       gate.GateConfig
	Eval       eval.EvalConfig
}

// #endregion check
