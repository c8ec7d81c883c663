package rules

import (
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/limits"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/series"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/violation"
)

// #region input
// Input is what a custom rule sees of one run.
type Input struct {
	Series     series.Series            // the monitored quantity
	Components map[string]series.Series // every predicted component, by name
	LoadStart  float64
	Registry   *limits.Registry
	Active     []violation.Record // records produced so far, in evaluation order
}

// #endregion input

// #region custom-rule
// CustomRule produces one additional violation record for a check type. The
// limit it names is claimed: the standard evaluation skips it.
type CustomRule interface {
	Limit() string
	Evaluate(in Input) (violation.Record, error)
}

// #endregion custom-rule

// #region decl
// Decl is the configuration form of a custom rule.
type Decl struct {
	Type    string  `yaml:"type" json:"type" validate:"required"`
	Limit   string  `yaml:"limit" json:"limit" validate:"required"`
	Channel string  `yaml:"channel" json:"channel"`
	Op      string  `yaml:"op" json:"op"`
	Value   float64 `yaml:"value" json:"value"`
	Label   string  `yaml:"label" json:"label"`
}

// #endregion decl
