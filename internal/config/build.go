package config

import (
	"sort"
	"strings"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/eval"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/gate"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/limits"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/rules"
)

// #region build-check
// BuildCheck turns a declaration into a Check. Everything that can be wrong
// with a declaration (unknown alias target, bad breakpoint, custom rule on a
// missing limit, unknown hard limit) surfaces here as a ConfigurationError.
func BuildCheck(cc CheckConfig, factory *rules.Factory) (Check, error) {
	set, err := buildSet(cc.Limits)
	if err != nil {
		return Check{}, err
	}
	reg, err := limits.NewRegistry(set, cc.LimitsMap)
	if err != nil {
		return Check{}, err
	}

	var validation *limits.Registry
	if len(cc.ValidLimits) > 0 {
		vset, err := buildValidationSet(cc.ValidLimits)
		if err != nil {
			return Check{}, err
		}
		if validation, err = limits.NewRegistry(vset, nil); err != nil {
			return Check{}, err
		}
	}

	if factory == nil {
		factory = rules.NewFactory()
	}
	custom, err := factory.Build(cc.CustomRules, reg)
	if err != nil {
		return Check{}, err
	}

	gateCfg := gate.GateConfig{RequireValidation: cc.Gate.RequireValidation}
	for _, name := range cc.Gate.Hard {
		if _, err := reg.Rule(name); err != nil {
			return Check{}, err
		}
		gateCfg.HardLimits = append(gateCfg.HardLimits, reg.Canonical(name))
	}

	evalCfg := eval.DefaultEvalConfig()
	evalCfg.HistLimit = append([]float64(nil), cc.HistLimit...)
	if cc.MinSamples > 0 {
		evalCfg.MinSamples = cc.MinSamples
	}

	return Check{
		Name:       cc.Name,
		MSID:       strings.ToLower(cc.MSID),
		PseudoNode: cc.PseudoNode,
		Registry:   reg,
		Validation: validation,
		Rules:      custom,
		Gate:       gateCfg,
		Eval:       evalCfg,
	}, nil
}

// BuildAll builds every declared check, keyed by name.
func (f *File) BuildAll(factory *rules.Factory) (map[string]Check, error) {
	out := make(map[string]Check, len(f.Checks))
	for _, cc := range f.Checks {
		c, err := BuildCheck(cc, factory)
		if err != nil {
			return nil, err
		}
		out[c.Name] = c
	}
	return out, nil
}

// #endregion build-check

// #region build-helpers
func buildSet(decls []LimitConfig) (*limits.Set, error) {
	ruleset := make([]limits.Rule, 0, len(decls))
	for _, lc := range decls {
		r := limits.Rule{
			Name:       lc.Name,
			Kind:       limits.Kind(lc.Kind),
			Direction:  limits.Direction(lc.Direction),
			Value:      lc.Value,
			Percentile: lc.Percentile,
			Display: limits.Display{
				Label:     lc.Label,
				Color:     lc.Color,
				LineStyle: lc.LineStyle,
			},
		}
		bps, err := breakpoints(lc.Name, lc.Breakpoints)
		if err != nil {
			return nil, err
		}
		r.Breakpoints = bps
		ruleset = append(ruleset, r)
	}
	return limits.NewSet(ruleset...)
}

// buildValidationSet makes one max-direction percentile rule per MSID whose
// slots bound |telemetry - prediction|. MSIDs are sorted so the set order is
// stable.
func buildValidationSet(valid map[string][][]float64) (*limits.Set, error) {
	msids := make([]string, 0, len(valid))
	for msid := range valid {
		msids = append(msids, msid)
	}
	sort.Strings(msids)

	ruleset := make([]limits.Rule, 0, len(msids))
	for _, msid := range msids {
		bps, err := breakpoints(msid, valid[msid])
		if err != nil {
			return nil, err
		}
		if len(bps) == 0 {
			return nil, checkerr.Configf(msid, "valid_limits entry has no slots")
		}
		ruleset = append(ruleset, limits.Rule{
			Name:        strings.ToUpper(msid),
			Kind:        limits.KindPercentile,
			Direction:   limits.DirectionMax,
			Breakpoints: bps,
		})
	}
	return limits.NewSet(ruleset...)
}

func breakpoints(name string, pairs [][]float64) ([]limits.Breakpoint, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make([]limits.Breakpoint, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			return nil, checkerr.Configf(name, "breakpoint %v is not a [percentile, value] pair", p)
		}
		out = append(out, limits.Breakpoint{Percentile: p[0], Value: p[1]})
	}
	return out, nil
}

// #endregion build-helpers
