package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Dice: []int{4}}
	assert.Panics(t, func() { _ = r.String() })
}

func TestParse_Forms(t *testing.T) {
	cases := []struct {
		in    string
		count int
		sides int
		mod   int
	}{
		{"25", 0, 0, 25},
		{"d20", 1, 20, 0},
		{"2d6", 2, 6, 0},
		{"2d6+3", 2, 6, 3},
		{"4D8-2", 4, 8, -2},
	}
	for _, tc := range cases {
		e, err := dice.Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.count, e.Count, tc.in)
		assert.Equal(t, tc.sides, e.Sides, tc.in)
		assert.Equal(t, tc.mod, e.Modifier, tc.in)
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "-3", "abc", "0d6", "2d1", "2dx", "2d6+x"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected %q to be rejected", in)
	}
}

func TestRoll_FlatNeedsNoSource(t *testing.T) {
	r := dice.Roll(dice.MustParse("40"), nil)
	assert.Equal(t, 40, r.Total())
	assert.Empty(t, r.Dice)
}

func TestChance_Bounds(t *testing.T) {
	src := dice.FixedSource(0)
	assert.False(t, dice.Chance(src, 0))
	assert.True(t, dice.Chance(src, 100))
	assert.True(t, dice.Chance(dice.FixedSource(2999), 30))
	assert.False(t, dice.Chance(dice.FixedSource(3000), 30))
}

func TestRoller_LogsRolls(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	roller := dice.NewRoller(dice.NewSeededSource(7), zap.New(core))
	roller.Roll(dice.MustParse("2d6"))
	roller.Chance(50)
	assert.Equal(t, 1, logs.FilterMessage("dice roll").Len())
	assert.Equal(t, 1, logs.FilterMessage("dice chance").Len())
}

func TestNewRoller_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { dice.NewRoller(nil, zap.NewNop()) })
	assert.Panics(t, func() { dice.NewRoller(dice.NewCryptoSource(), nil) })
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
	assert.Panics(t, func() { src.Intn(0) })
}

func TestSeededSource_Reproducible(t *testing.T) {
	a, b := dice.NewSeededSource(42), dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestProperty_Roll_TotalWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-10, 10).Draw(rt, "mod")
		expr := fmt.Sprintf("%dd%d%+d", count, sides, mod)
		e, err := dice.Parse(expr)
		if err != nil {
			rt.Fatalf("Parse(%q): %v", expr, err)
		}
		r := dice.Roll(e, dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")))
		if r.Total() < count+mod || r.Total() > e.Max() {
			rt.Fatalf("total %d outside [%d, %d]", r.Total(), count+mod, e.Max())
		}
		if !strings.Contains(r.String(), expr) {
			rt.Fatalf("audit string %q missing expression", r.String())
		}
	})
}
