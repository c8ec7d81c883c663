package rules

import (
	"sync"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/limits"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/mask"
)

// TypeMaskedLimit is the built-in masked limit rule type.
const TypeMaskedLimit = "masked_limit"

// #region factory
// Builder creates a custom rule from its declaration, validating it against the
// check type's registry.
type Builder func(decl Decl, reg *limits.Registry) (CustomRule, error)

// Factory maps rule types to builders.
type Factory struct {
	builders map[string]Builder
	mu       sync.RWMutex
}

// NewFactory creates a factory with the built-in rule types registered.
func NewFactory() *Factory {
	f := &Factory{builders: make(map[string]Builder)}
	f.Register(TypeMaskedLimit, buildMaskedLimit)
	return f
}

// Register adds or overrides a rule builder.
func (f *Factory) Register(ruleType string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[ruleType] = builder
}

// Build instantiates every declaration. Two rules claiming the same limit, or a rule
// naming an unknown limit, is a ConfigurationError.
func (f *Factory) Build(decls []Decl, reg *limits.Registry) ([]CustomRule, error) {
	out := make([]CustomRule, 0, len(decls))
	claimed := make(map[string]bool, len(decls))
	for _, decl := range decls {
		f.mu.RLock()
		builder, ok := f.builders[decl.Type]
		f.mu.RUnlock()
		if !ok {
			return nil, checkerr.Configf(decl.Limit, "no builder registered for rule type %q", decl.Type)
		}
		if _, err := reg.Rule(decl.Limit); err != nil {
			return nil, err
		}
		canonical := reg.Canonical(decl.Limit)
		if claimed[canonical] {
			return nil, checkerr.Configf(decl.Limit, "limit %q already claimed by another custom rule", canonical)
		}
		claimed[canonical] = true

		rule, err := builder(decl, reg)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

// #endregion factory

// #region builtin-builders
func buildMaskedLimit(decl Decl, reg *limits.Registry) (CustomRule, error) {
	if decl.Channel == "" {
		return nil, checkerr.Configf(decl.Limit, "masked_limit needs a channel")
	}
	opStr := decl.Op
	if opStr == "" {
		opStr = string(mask.OpEq)
	}
	op, err := mask.ParseOp(opStr)
	if err != nil {
		return nil, err
	}
	rule, err := reg.Rule(decl.Limit)
	if err != nil {
		return nil, err
	}
	if rule.Kind == limits.KindPercentile && rule.Percentile == 0 {
		return nil, checkerr.Configf(decl.Limit, "masked_limit needs a fixed rule or a percentile rule with a default slot")
	}
	return NewMaskedLimit(decl.Limit, decl.Channel, mask.Predicate{Op: op, Value: decl.Value}, decl.Label), nil
}

// #endregion builtin-builders
