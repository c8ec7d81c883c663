package limits

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
)

// #region set
// Set is an ordered, immutable collection of named rules. Declaration order
// is preserved and is the order reports use.
type Set struct {
	rules []Rule
	index map[string]int
}

// NewSet validates rules and builds a Set.
func NewSet(rules ...Rule) (*Set, error) {
	s := &Set{
		rules: make([]Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, err
		}
		if _, dup := s.index[r.Name]; dup {
			return nil, checkerr.Configf(r.Name, "duplicate limit name")
		}
		r.Breakpoints = append([]Breakpoint(nil), r.Breakpoints...)
		sort.Slice(r.Breakpoints, func(i, j int) bool {
			return r.Breakpoints[i].Percentile < r.Breakpoints[j].Percentile
		})
		s.index[r.Name] = len(s.rules)
		s.rules = append(s.rules, r)
	}
	return s, nil
}

// Names returns rule names in declaration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name
	}
	return names
}

// Rules returns a copy of the rules in declaration order.
func (s *Set) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.rules) }

// Get returns the rule stored under name, without alias resolution.
func (s *Set) Get(name string) (Rule, bool) {
	i, ok := s.index[name]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// Position returns the declaration index of name, or -1.
func (s *Set) Position(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

func validateRule(r Rule) error {
	if r.Name == "" {
		return checkerr.Configf("<unnamed>", "limit rule has no name")
	}
	if !r.Direction.Valid() {
		return checkerr.Configf(r.Name, "unknown direction %q", r.Direction)
	}
	switch r.Kind {
	case KindFixed:
		if len(r.Breakpoints) > 0 {
			return checkerr.Configf(r.Name, "fixed rule cannot carry percentile breakpoints")
		}
	case KindPercentile:
		if len(r.Breakpoints) == 0 {
			return checkerr.Configf(r.Name, "percentile rule needs at least one breakpoint")
		}
		seen := make(map[float64]bool, len(r.Breakpoints))
		for _, bp := range r.Breakpoints {
			// 0 is reserved for "no default slot"
			if bp.Percentile <= 0 || bp.Percentile > 100 {
				return checkerr.Configf(r.Name, "percentile %g outside (0, 100]", bp.Percentile)
			}
			if seen[bp.Percentile] {
				return checkerr.Configf(r.Name, "duplicate percentile slot %g", bp.Percentile)
			}
			seen[bp.Percentile] = true
		}
		if r.Percentile != 0 && !seen[r.Percentile] {
			return checkerr.Configf(r.Name, "default percentile %g is not a defined slot", r.Percentile)
		}
	default:
		return checkerr.Configf(r.Name, "unknown kind %q", r.Kind)
	}
	return nil
}

// #endregion set

// #region registry
// Registry resolves limit names, including aliases from a limits_map, to
// concrete thresholds. Built once per check type and read-only afterwards.
type Registry struct {
	set     *Set
	aliases map[string]string
}

// NewRegistry binds a Set to its alias table. Every alias must target a rule
// that exists in the set; violations fail here rather than at evaluation time.
func NewRegistry(set *Set, aliases map[string]string) (*Registry, error) {
	if set == nil {
		return nil, checkerr.Configf("limits", "registry needs a limit set")
	}
	copied := make(map[string]string, len(aliases))
	for from, to := range aliases {
		if from == "" {
			return nil, checkerr.Configf("limits_map", "empty alias key")
		}
		if _, ok := set.Get(to); !ok {
			return nil, checkerr.Configf("limits_map", "alias %q targets unknown limit %q", from, to)
		}
		copied[from] = to
	}
	return &Registry{set: set, aliases: copied}, nil
}

// Set returns the underlying ordered limit set.
func (r *Registry) Set() *Set { return r.set }

// Canonical applies the alias table to name.
func (r *Registry) Canonical(name string) string {
	if to, ok := r.aliases[name]; ok {
		return to
	}
	return name
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// Rule looks up a rule by name after alias resolution.
func (r *Registry) Rule(name string) (Rule, error) {
	canonical := r.Canonical(name)
	rule, ok := r.set.Get(canonical)
	if !ok {
		if canonical != name {
			return Rule{}, checkerr.Configf(name, "alias target %q is not registered", canonical)
		}
		return Rule{}, checkerr.Configf(name, "no limit rule registered")
	}
	return rule, nil
}

// Resolve returns the scalar threshold for name. Fixed rules ignore the
// percentile; percentile rules need an exactly matching slot.
func (r *Registry) Resolve(name string, percentile float64) (float64, error) {
	rule, err := r.Rule(name)
	if err != nil {
		return 0, err
	}
	return rule.Threshold(percentile)
}

// ResolveDefault resolves name at the rule's own default percentile slot.
func (r *Registry) ResolveDefault(name string) (float64, error) {
	rule, err := r.Rule(name)
	if err != nil {
		return 0, err
	}
	if rule.Kind == KindPercentile && rule.Percentile == 0 {
		return 0, checkerr.Configf(rule.Name, "percentile rule has no default slot")
	}
	return rule.Threshold(rule.Percentile)
}

// #endregion registry

// #region threshold
// Threshold resolves the rule to a scalar using exact-slot lookup.
func (rule Rule) Threshold(percentile float64) (float64, error) {
	if rule.Kind == KindFixed {
		return rule.Value, nil
	}
	for _, bp := range rule.Breakpoints {
		if bp.Percentile == percentile {
			return bp.Value, nil
		}
	}
	return 0, checkerr.Configf(rule.Name, "percentile slot %g is not defined (have %s)", percentile, slots(rule.Breakpoints))
}

// Slots returns the defined percentile slots in ascending order.
func (rule Rule) Slots() []float64 {
	out := make([]float64, len(rule.Breakpoints))
	for i, bp := range rule.Breakpoints {
		out[i] = bp.Percentile
	}
	return out
}

func slots(bps []Breakpoint) string {
	s := "["
	for i, bp := range bps {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%g", bp.Percentile)
	}
	return s + "]"
}

// #endregion threshold
