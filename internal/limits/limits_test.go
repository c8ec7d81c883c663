package limits

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
)

// #region helpers
func dpaSet(t *testing.T) *Set {
	t.Helper()
	set, err := NewSet(
		Rule{Name: "planning.warning.high", Kind: KindFixed, Direction: DirectionMax, Value: 37.5},
		Rule{Name: "zero_feps", Kind: KindFixed, Direction: DirectionMin, Value: 12.0},
		Rule{Name: "1DPAMZT", Kind: KindPercentile, Direction: DirectionMax, Breakpoints: []Breakpoint{
			{Percentile: 99, Value: 2.0}, {Percentile: 1, Value: 2.0}, {Percentile: 50, Value: 1.0},
		}},
	)
	require.NoError(t, err)
	return set
}

// #endregion helpers

// #region set-tests
func TestNewSet_PreservesDeclarationOrder(t *testing.T) {
	set := dpaSet(t)
	assert.Equal(t, []string{"planning.warning.high", "zero_feps", "1DPAMZT"}, set.Names())
	assert.Equal(t, 1, set.Position("zero_feps"))
	assert.Equal(t, -1, set.Position("missing"))
}

func TestNewSet_SortsBreakpoints(t *testing.T) {
	set := dpaSet(t)
	rule, ok := set.Get("1DPAMZT")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 50, 99}, rule.Slots())
}

func TestNewSet_RejectsBadRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"no name", Rule{Kind: KindFixed, Direction: DirectionMax}},
		{"bad direction", Rule{Name: "a", Kind: KindFixed, Direction: "up"}},
		{"bad kind", Rule{Name: "a", Kind: "linear", Direction: DirectionMax}},
		{"fixed with breakpoints", Rule{Name: "a", Kind: KindFixed, Direction: DirectionMax, Breakpoints: []Breakpoint{{1, 1}}}},
		{"percentile without breakpoints", Rule{Name: "a", Kind: KindPercentile, Direction: DirectionMax}},
		{"duplicate slot", Rule{Name: "a", Kind: KindPercentile, Direction: DirectionMax, Breakpoints: []Breakpoint{{1, 1}, {1, 2}}}},
		{"slot out of range", Rule{Name: "a", Kind: KindPercentile, Direction: DirectionMax, Breakpoints: []Breakpoint{{101, 1}}}},
		{"zero slot", Rule{Name: "a", Kind: KindPercentile, Direction: DirectionMax, Breakpoints: []Breakpoint{{0, 1}}}},
		{"negative slot", Rule{Name: "a", Kind: KindPercentile, Direction: DirectionMax, Breakpoints: []Breakpoint{{-1, 1}, {50, 1}}}},
		{"undefined default slot", Rule{Name: "a", Kind: KindPercentile, Direction: DirectionMax, Percentile: 50, Breakpoints: []Breakpoint{{1, 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.rule)
			require.Error(t, err)
			assert.True(t, errors.Is(err, checkerr.ErrConfiguration))
		})
	}
}

func TestNewSet_RejectsDuplicateNames(t *testing.T) {
	_, err := NewSet(
		Rule{Name: "a", Kind: KindFixed, Direction: DirectionMax, Value: 1},
		Rule{Name: "a", Kind: KindFixed, Direction: DirectionMin, Value: 2},
	)
	assert.True(t, errors.Is(err, checkerr.ErrConfiguration))
}

// #endregion set-tests

// #region registry-tests
func TestRegistry_AliasToUnknownTargetFailsAtBuild(t *testing.T) {
	_, err := NewRegistry(dpaSet(t), map[string]string{"planning.caution.low": "zero_fep"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, checkerr.ErrConfiguration))
}

func TestRegistry_AliasResolvesLikeTarget(t *testing.T) {
	reg, err := NewRegistry(dpaSet(t), map[string]string{"planning.caution.low": "zero_feps"})
	require.NoError(t, err)

	for _, ctx := range []float64{0, 1, 50, 99, 12.3} {
		viaAlias, err := reg.Resolve("planning.caution.low", ctx)
		require.NoError(t, err)
		direct, err := reg.Resolve("zero_feps", ctx)
		require.NoError(t, err)
		assert.Equal(t, direct, viaAlias)
	}
	assert.Equal(t, "zero_feps", reg.Canonical("planning.caution.low"))
	assert.Equal(t, "zero_feps", reg.Canonical("zero_feps"))
}

func TestRegistry_AliasToPercentileRule(t *testing.T) {
	reg, err := NewRegistry(dpaSet(t), map[string]string{"dpa.validation": "1DPAMZT"})
	require.NoError(t, err)

	rule, err := reg.Rule("dpa.validation")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 50, 99}, rule.Slots())
	for _, slot := range rule.Slots() {
		viaAlias, err := reg.Resolve("dpa.validation", slot)
		require.NoError(t, err)
		direct, err := reg.Resolve("1DPAMZT", slot)
		require.NoError(t, err)
		assert.Equal(t, direct, viaAlias, "slot %g", slot)
	}

	for _, slot := range []float64{0, 75, 100} {
		_, err = reg.Resolve("dpa.validation", slot)
		assert.True(t, errors.Is(err, checkerr.ErrConfiguration), "alias, slot %g", slot)
		_, err = reg.Resolve("1DPAMZT", slot)
		assert.True(t, errors.Is(err, checkerr.ErrConfiguration), "direct, slot %g", slot)
	}
}

func TestRegistry_ResolvePercentileExactSlot(t *testing.T) {
	reg, err := NewRegistry(dpaSet(t), nil)
	require.NoError(t, err)

	v, err := reg.Resolve("1DPAMZT", 50)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = reg.Resolve("1DPAMZT", 99)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	_, err = reg.Resolve("1DPAMZT", 75)
	require.Error(t, err)
	assert.True(t, errors.Is(err, checkerr.ErrConfiguration))
}

func TestRegistry_FixedIgnoresPercentile(t *testing.T) {
	reg, err := NewRegistry(dpaSet(t), nil)
	require.NoError(t, err)

	v, err := reg.Resolve("planning.warning.high", 12)
	require.NoError(t, err)
	assert.Equal(t, 37.5, v)
}

func TestRegistry_UnknownNameFails(t *testing.T) {
	reg, err := NewRegistry(dpaSet(t), nil)
	require.NoError(t, err)

	_, err = reg.Resolve("planning.warning.low", 0)
	assert.True(t, errors.Is(err, checkerr.ErrConfiguration))
}

func TestRegistry_ResolveDefault(t *testing.T) {
	set, err := NewSet(
		Rule{Name: "hi", Kind: KindPercentile, Direction: DirectionMax, Percentile: 99, Breakpoints: []Breakpoint{{1, 10}, {99, 40}}},
		Rule{Name: "nodefault", Kind: KindPercentile, Direction: DirectionMax, Breakpoints: []Breakpoint{{1, 10}}},
	)
	require.NoError(t, err)
	reg, err := NewRegistry(set, nil)
	require.NoError(t, err)

	v, err := reg.ResolveDefault("hi")
	require.NoError(t, err)
	assert.Equal(t, 40.0, v)

	_, err = reg.ResolveDefault("nodefault")
	assert.True(t, errors.Is(err, checkerr.ErrConfiguration))
}

func TestRegistry_AliasesIsACopy(t *testing.T) {
	reg, err := NewRegistry(dpaSet(t), map[string]string{"planning.caution.low": "zero_feps"})
	require.NoError(t, err)

	a := reg.Aliases()
	a["planning.caution.low"] = "planning.warning.high"
	assert.Equal(t, "zero_feps", reg.Canonical("planning.caution.low"))
}

// #endregion registry-tests

// #region direction-tests
func TestDirection(t *testing.T) {
	assert.True(t, DirectionMax.Breaches(21, 20))
	assert.False(t, DirectionMax.Breaches(20, 20))
	assert.True(t, DirectionMin.Breaches(11.9, 12))
	assert.False(t, DirectionMin.Breaches(12, 12))
	assert.True(t, DirectionMax.MoreExtreme(22, 21))
	assert.True(t, DirectionMin.MoreExtreme(5, 6))
	assert.Equal(t, "Max", DirectionMax.Label())
	assert.Equal(t, "Min", DirectionMin.Label())
}

// #endregion direction-tests
