package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
)

func TestManual_AdvanceMovesForward(t *testing.T) {
	start := time.Unix(0, 0)
	c := clock.NewManual(start)
	assert.Equal(t, start, c.Now())
	got := c.Advance(2 * time.Second)
	assert.Equal(t, start.Add(2*time.Second), got)
	assert.Equal(t, got, c.Now())
}

func TestManual_SetBackwardsPanics(t *testing.T) {
	c := clock.NewManual(time.Unix(10, 0))
	assert.Panics(t, func() { c.Set(time.Unix(5, 0)) })
}

func TestManual_NegativeAdvancePanics(t *testing.T) {
	c := clock.NewManual(time.Unix(10, 0))
	assert.Panics(t, func() { c.Advance(-time.Millisecond) })
}

func TestReal_NowIsRecent(t *testing.T) {
	before := time.Now()
	got := clock.Real{}.Now()
	assert.False(t, got.Before(before))
}

func TestProperty_Manual_AdvanceIsCumulative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := time.Unix(1000, 0)
		c := clock.NewManual(start)
		steps := rapid.SliceOfN(rapid.Int64Range(0, 10_000), 0, 20).Draw(rt, "steps")
		var total time.Duration
		for _, ms := range steps {
			d := time.Duration(ms) * time.Millisecond
			total += d
			c.Advance(d)
		}
		if !c.Now().Equal(start.Add(total)) {
			rt.Fatalf("expected %v, got %v", start.Add(total), c.Now())
		}
	})
}
