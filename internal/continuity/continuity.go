package continuity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
)

// #region resolver
// Resolver picks and fetches the seed for a run's boundary component. It
// never models anything itself.
type Resolver struct {
	telemetry TelemetryLookup
	logger    *zap.Logger
}

// NewResolver creates a resolver. telemetry may be nil when only prediction
// mode is used; validation mode then fails with DataUnavailableError.
func NewResolver(telemetry TelemetryLookup, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{telemetry: telemetry, logger: logger}
}

// Seed returns the boundary value for quantity.
//
// Prediction mode uses prior[quantity] verbatim; a nil prior yields NoSeed.
// Validation mode ignores prior and reads telemetry at start.
func (r *Resolver) Seed(ctx context.Context, quantity string, mode Mode, prior State, start float64) (Seed, error) {
	switch mode {
	case ModePrediction:
		if prior == nil {
			r.logger.Debug("no prior state, predictor keeps its own initial condition", zap.String("msid", quantity))
			return NoSeed, nil
		}
		v, ok := prior[quantity]
		if !ok {
			return Seed{}, checkerr.Unavailablef(quantity, start, "prior run terminal state has no value for %s", quantity)
		}
		return Seed{Quantity: quantity, Source: SourcePriorRun, Value: v, Time: start}, nil

	case ModeValidation:
		if r.telemetry == nil {
			return Seed{}, checkerr.Unavailablef(quantity, start, "no telemetry source configured")
		}
		v, err := r.telemetry.Lookup(ctx, quantity, start)
		if err != nil {
			return Seed{}, fmt.Errorf("seed %s from telemetry: %w", quantity, err)
		}
		return Seed{Quantity: quantity, Source: SourceTelemetry, Value: v, Time: start}, nil
	}
	return Seed{}, checkerr.Evaluationf("seed "+quantity, "unknown mode %q", mode)
}

// SeedBoundary seeds pseudoNode from quantity when the predictor declares that
// component. The second return is false when no seeding applies, in which case
// Seed is never consulted.
func (r *Resolver) SeedBoundary(ctx context.Context, pred ComponentDeclarer, pseudoNode, quantity string, mode Mode, prior State, start float64) (Seed, bool, error) {
	if pseudoNode == "" || pred == nil || !pred.DeclaresComponent(pseudoNode) {
		return NoSeed, false, nil
	}
	seed, err := r.Seed(ctx, quantity, mode, prior, start)
	if err != nil {
		return Seed{}, true, err
	}
	r.logger.Info("boundary seeded",
		zap.String("pseudo_node", pseudoNode),
		zap.String("msid", quantity),
		zap.String("mode", string(mode)),
		zap.String("source", string(seed.Source)),
		zap.Float64("value", seed.Value),
	)
	return seed, true, nil
}

// #endregion resolver

// #region choose-mode
// ChooseMode picks validation when the whole window is covered by telemetry
// (stop <= telemetryEnd) and prediction otherwise.
func ChooseMode(stop, telemetryEnd float64) Mode {
	if stop <= telemetryEnd {
		return ModeValidation
	}
	return ModePrediction
}

// #endregion choose-mode
