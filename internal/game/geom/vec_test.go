package geom_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

func TestVec3_DistanceTo(t *testing.T) {
	a := geom.Vec3{X: 0, Y: 0, Z: 0}
	b := geom.Vec3{X: 3, Y: 4, Z: 0}
	assert.InDelta(t, 5.0, a.DistanceTo(b), 1e-9)
	assert.InDelta(t, 5.0, b.DistanceTo(a), 1e-9)
}

func TestVec3_MoveToward(t *testing.T) {
	a := geom.Vec3{}
	b := geom.Vec3{X: 10}
	assert.Equal(t, geom.Vec3{X: 4}, a.MoveToward(b, 4))
	assert.Equal(t, b, a.MoveToward(b, 40), "must not overshoot")
	assert.Equal(t, b, b.MoveToward(b, 1))
}

func TestVec3_String(t *testing.T) {
	assert.Equal(t, "(1.00, 2.50, -3.00)", geom.Vec3{X: 1, Y: 2.5, Z: -3}.String())
}

func genVec() *rapid.Generator[geom.Vec3] {
	return rapid.Custom(func(t *rapid.T) geom.Vec3 {
		c := rapid.Float64Range(-1000, 1000)
		return geom.Vec3{X: c.Draw(t, "x"), Y: c.Draw(t, "y"), Z: c.Draw(t, "z")}
	})
}

func TestProperty_MoveTowardNeverIncreasesDistance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		from := genVec().Draw(rt, "from")
		to := genVec().Draw(rt, "to")
		step := rapid.Float64Range(0, 500).Draw(rt, "step")

		before := from.DistanceTo(to)
		next := from.MoveToward(to, step)
		after := next.DistanceTo(to)
		if after > before+1e-9 {
			rt.Fatalf("distance grew from %f to %f", before, after)
		}
		want := math.Max(0, before-step)
		if math.Abs(after-want) > 1e-6 {
			rt.Fatalf("distance after step = %f, want %f", after, want)
		}
	})
}
