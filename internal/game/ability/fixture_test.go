package ability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
	"github.com/cory-johannsen/skirmish/internal/game/world"
)

var epoch = time.Unix(0, 0)

type fixture struct {
	t      *testing.T
	clk    *clock.Manual
	world  *world.World
	roller *dice.Roller
	hits   []ability.Hit
	dmg    []world.DamageEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := &fixture{
		t:      t,
		clk:    clock.NewManual(epoch),
		world:  world.New(logger),
		roller: dice.NewRoller(dice.FixedSource(0), logger),
	}
	f.world.OnDamage(func(ev world.DamageEvent) { f.dmg = append(f.dmg, ev) })
	return f
}

func (f *fixture) spawn(name, team string, x float64, health, mana, stamina int) *world.Entity {
	f.t.Helper()
	e, err := f.world.Spawn(world.EntitySpec{
		ID:       name,
		Name:     name,
		Team:     team,
		Position: geom.Vec3{X: x},
		Health:   health,
		Mana:     mana,
		Stamina:  stamina,
	})
	require.NoError(f.t, err)
	return e
}

func (f *fixture) executor(def *ability.Def, caster *world.Entity) *ability.Executor {
	f.t.Helper()
	require.NoError(f.t, def.Validate())
	return ability.NewExecutor(def, caster, ability.Deps{
		Clock:   f.clk,
		Targets: f.world,
		Roller:  f.roller,
		Logger:  zaptest.NewLogger(f.t),
		OnHit:   func(h ability.Hit) { f.hits = append(f.hits, h) },
	})
}

// at moves the clock to ms milliseconds after the epoch.
func (f *fixture) at(ms int) time.Time {
	now := epoch.Add(time.Duration(ms) * time.Millisecond)
	f.clk.Set(now)
	return now
}

func strike() *ability.Def {
	return &ability.Def{
		ID:        "strike",
		Archetype: ability.Instant,
		ManaCost:  10,
		Cooldown:  5 * time.Second,
		Range:     5,
		Damage:    "12",
	}
}

func charge() *ability.Def {
	return &ability.Def{
		ID:           "charge",
		Name:         "Charge",
		Archetype:    ability.Charge,
		ManaCost:     35,
		Cooldown:     8 * time.Second,
		Range:        20,
		MaxDuration:  3 * time.Second,
		StopDistance: 2,
		Speed:        10,
		Damage:       "30",
		BuffName:     "charging",
	}
}
