package check

import (
	"go.uber.org/zap"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/metrics"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/predictor"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/state"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/telemetry"
)

// #region request
// Request describes one load to check.
type Request struct {
	LoadName  string
	Mode      continuity.Mode // empty picks validation when telemetry covers the window
	LoadStart float64         // violations before this time are not reported
	Start     float64
	Stop      float64
	States    []predictor.CommandState

	// Prior overrides the chain head as the prediction-mode seed source.
	Prior continuity.State
	Extra map[string]string
}

// #endregion request

// #region options
// Options carries the engine's optional collaborators. Every field may be
// left zero.
type Options struct {
	Telemetry telemetry.Source
	Store     *state.Store
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
}

// #endregion options
