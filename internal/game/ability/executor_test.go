package ability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
	"github.com/cory-johannsen/skirmish/internal/game/world"
)

func TestExecutor_CooldownGating(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	f.spawn("goblin", "green", 1, 100, 0, 0)
	ex := f.executor(strike(), hero)

	f.at(0)
	x := ex.Execute(nil)
	require.True(t, x.Finished())
	assert.True(t, x.Result())

	f.at(2000)
	v := ex.CanUse(nil)
	assert.False(t, v.OK)
	assert.Equal(t, "On cooldown: 3.0s", v.Reason)
	assert.Equal(t, 3*time.Second, ex.Info().CooldownRemaining)

	f.at(5000)
	assert.True(t, ex.CanUse(nil).OK)
	assert.Equal(t, time.Duration(0), ex.Info().CooldownRemaining)
}

func TestExecutor_RejectsWithoutMutation(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 5, 0)
	goblin := f.spawn("goblin", "green", 1, 100, 0, 0)
	ex := f.executor(strike(), hero)

	x := ex.Execute(goblin)
	require.True(t, x.Finished())
	assert.False(t, x.Result())
	assert.Equal(t, ability.Rejected, x.Outcome())
	assert.Equal(t, "Not enough mana", x.Reason())
	assert.Equal(t, 5, hero.Resources().Mana())
	assert.Equal(t, 100, goblin.Resources().Health())
	assert.Equal(t, time.Duration(0), ex.CooldownRemaining(f.clk.Now()))
	assert.False(t, ex.Active())
}

func TestExecutor_NotEnoughStamina(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 50, 4)
	def := strike()
	def.StaminaCost = 5
	ex := f.executor(def, hero)

	assert.Equal(t, "Not enough stamina", ex.CanUse(nil).Reason)
	assert.Equal(t, 50, hero.Resources().Mana())
}

func TestExecutor_CheckOrder(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 10, 0)
	ally := f.spawn("ally", "red", 1, 100, 0, 0)
	f.spawn("goblin", "green", 1, 100, 0, 0)
	ex := f.executor(strike(), hero)

	// Invalid target loses to nothing else failing.
	assert.Equal(t, "Invalid target", ex.CanUse(ally).Reason)

	require.True(t, ex.Execute(nil).Result())
	// Now on cooldown and out of mana: cooldown is reported first.
	assert.Equal(t, 0, hero.Resources().Mana())
	assert.Equal(t, "On cooldown: 5.0s", ex.CanUse(ally).Reason)

	f.at(6000)
	assert.Equal(t, "Not enough mana", ex.CanUse(ally).Reason)
}

func TestExecutor_TargetValidation(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	far := f.spawn("far", "green", 9, 100, 0, 0)
	dead := f.spawn("dead", "green", 1, 1, 0, 0)
	dead.TakeDamage(5, "test", "physical")
	ex := f.executor(strike(), hero)

	assert.Equal(t, "Target out of range (5.0m)", ex.CanUse(far).Reason)
	assert.Equal(t, "Invalid target", ex.CanUse(dead).Reason)
	assert.Equal(t, "Invalid target", ex.CanUse(hero).Reason)
}

func TestExecutor_NoValidTarget(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	f.spawn("far", "green", 50, 100, 0, 0)
	ex := f.executor(strike(), hero)

	x := ex.Execute(nil)
	assert.False(t, x.Result())
	assert.Equal(t, "No valid target", x.Reason())
	assert.Equal(t, 100, hero.Resources().Mana())
	assert.Equal(t, ability.StateIdle, ex.State())
}

func TestExecutor_AutoTargetNearestFirstOnTie(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	f.spawn("a", "green", 3, 100, 0, 0)
	f.spawn("b", "green", -3, 100, 0, 0)
	f.spawn("c", "green", 4, 100, 0, 0)
	ex := f.executor(strike(), hero)

	x := ex.Execute(nil)
	require.True(t, x.Result())
	assert.Equal(t, "a", x.TargetID())
}

func TestExecutor_PrefersValidSelection(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	f.spawn("near", "green", 1, 100, 0, 0)
	picked := f.spawn("picked", "green", 4, 100, 0, 0)
	require.NoError(t, f.world.Select(hero.ID(), picked.ID()))
	ex := f.executor(strike(), hero)

	x := ex.Execute(nil)
	require.True(t, x.Result())
	assert.Equal(t, "picked", x.TargetID())
	assert.Equal(t, 88, picked.Resources().Health())
}

func TestExecutor_IgnoresInvalidSelection(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	f.spawn("near", "green", 1, 100, 0, 0)
	picked := f.spawn("picked", "green", 40, 100, 0, 0)
	require.NoError(t, f.world.Select(hero.ID(), picked.ID()))
	ex := f.executor(strike(), hero)

	assert.Equal(t, "near", ex.Execute(nil).TargetID())
}

func TestExecutor_ExclusiveExecution(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	goblin := f.spawn("goblin", "green", 12, 100, 0, 0)
	def := charge()
	def.Cooldown = 0
	ex := f.executor(def, hero)

	first := ex.Execute(goblin)
	require.False(t, first.Finished())
	assert.True(t, ex.Active())
	assert.True(t, ex.Info().Charging)
	assert.Equal(t, 65, hero.Resources().Mana())

	second := ex.Execute(goblin)
	assert.False(t, second.Result())
	assert.Equal(t, "Already charging", second.Reason())
	assert.Equal(t, 65, hero.Resources().Mana())
}

func TestExecutor_BusyReasonDefault(t *testing.T) {
	def := &ability.Def{ID: "x", Archetype: ability.Channel, TickInterval: time.Second, MaxDuration: time.Second}
	require.NoError(t, def.Validate())
	assert.Equal(t, ability.ReasonAlreadyActive, def.BusyReason)
}

func TestExecutor_CancelClearsActiveWithoutRefund(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	goblin := f.spawn("goblin", "green", 12, 100, 0, 0)
	ex := f.executor(charge(), hero)

	x := ex.Execute(goblin)
	require.True(t, hero.Effects().Has("charging"))
	f.at(100)
	ex.Advance(f.clk.Now())

	ex.Cancel()
	assert.False(t, ex.Active())
	assert.True(t, x.Finished())
	assert.True(t, x.Result())
	assert.Equal(t, ability.Cancelled, x.Outcome())
	assert.Equal(t, 65, hero.Resources().Mana())
	assert.False(t, hero.Effects().Has("charging"))
	assert.Equal(t, 100, goblin.Resources().Health())
	assert.Equal(t, "On cooldown: 7.9s", ex.CanUse(goblin).Reason)

	ex.Cancel()
	assert.Equal(t, ability.Cancelled, x.Outcome())
}

func TestExecutor_ChargeMovesThenHits(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	goblin := f.spawn("goblin", "green", 12, 100, 0, 0)
	ex := f.executor(charge(), hero)

	x := ex.Execute(goblin)
	assert.Equal(t, geom.Vec3{}, hero.Position(), "first poll has no elapsed time")

	f.at(500)
	ex.Advance(f.clk.Now())
	assert.InDelta(t, 5.0, hero.Position().X, 1e-9)
	assert.False(t, x.Finished())

	f.at(1000)
	ex.Advance(f.clk.Now())
	assert.InDelta(t, 10.0, hero.Position().X, 1e-9, "stops at stop distance")
	require.True(t, x.Finished())
	assert.Equal(t, ability.OutcomeHit, x.Outcome())
	assert.Equal(t, 70, goblin.Resources().Health())
	require.Len(t, f.hits, 1)
	assert.Equal(t, 30, f.hits[0].Damage)
}

func TestExecutor_ChargeTimeout(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	goblin := f.spawn("goblin", "green", 20, 100, 0, 0)
	def := charge()
	def.Speed = 1
	ex := f.executor(def, hero)

	x := ex.Execute(goblin)
	for ms := 1000; ms <= 3000; ms += 1000 {
		f.at(ms)
		ex.Advance(f.clk.Now())
	}
	require.True(t, x.Finished())
	assert.Equal(t, ability.Timeout, x.Outcome())
	assert.True(t, x.Result(), "a timeout is still a legal use")
	assert.Equal(t, 100, goblin.Resources().Health())
	assert.Equal(t, 65, hero.Resources().Mana())
}

func TestExecutor_TargetLostMidExecution(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	goblin := f.spawn("goblin", "green", 12, 100, 0, 0)
	ex := f.executor(charge(), hero)

	x := ex.Execute(goblin)
	f.world.Remove(goblin.ID())
	f.at(100)
	ex.Advance(f.clk.Now())
	assert.Equal(t, ability.TargetLost, x.Outcome())
	assert.False(t, ex.Active())
}

func TestExecutor_ChannelTicks(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	goblin := f.spawn("goblin", "green", 3, 100, 0, 0)
	ex := f.executor(&ability.Def{
		ID:           "drain",
		Archetype:    ability.Channel,
		Range:        10,
		Damage:       "5",
		TickInterval: time.Second,
		MaxDuration:  3 * time.Second,
	}, hero)

	x := ex.Execute(goblin)
	assert.Equal(t, 1, x.Hits())
	f.at(1500)
	ex.Advance(f.clk.Now())
	assert.Equal(t, 2, x.Hits())
	f.at(3000)
	ex.Advance(f.clk.Now())
	assert.Equal(t, 3, x.Hits())
	assert.Equal(t, ability.Completed, x.Outcome())
	assert.Equal(t, 85, goblin.Resources().Health())
}

func TestExecutor_ChannelEndsWhenTargetLostBetweenTicks(t *testing.T) {
	for name, lose := range map[string]func(*world.World, *world.Entity){
		"removed": func(w *world.World, e *world.Entity) { w.Remove(e.ID()) },
		"killed":  func(_ *world.World, e *world.Entity) { e.TakeDamage(1000, "trap", "physical") },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			hero := f.spawn("hero", "red", 0, 100, 100, 0)
			goblin := f.spawn("goblin", "green", 3, 100, 0, 0)
			ex := f.executor(&ability.Def{
				ID:           "drain",
				Archetype:    ability.Channel,
				Range:        10,
				Damage:       "5",
				TickInterval: 5 * time.Second,
				MaxDuration:  20 * time.Second,
			}, hero)

			x := ex.Execute(goblin)
			require.True(t, ex.Active())
			lose(f.world, goblin)
			f.at(100)
			ex.Advance(f.clk.Now())
			assert.False(t, ex.Active())
			assert.Equal(t, ability.TargetLost, x.Outcome())
			assert.Equal(t, 1, x.Hits())
		})
	}
}

func TestExecutor_BuffCompletes(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	ex := f.executor(&ability.Def{
		ID:           "rage",
		Archetype:    ability.Buff,
		BuffName:     "enraged",
		BuffDuration: 2 * time.Second,
	}, hero)

	x := ex.Execute(nil)
	assert.True(t, hero.Effects().Has("enraged"))
	f.at(2000)
	ex.Advance(f.clk.Now())
	assert.Equal(t, ability.Completed, x.Outcome())
	assert.False(t, hero.Effects().Has("enraged"))
}

func TestExecutor_StunRoll(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	goblin := f.spawn("goblin", "green", 1, 100, 0, 0)
	def := strike()
	def.StunChance = 100
	def.StunDuration = time.Second
	ex := f.executor(def, hero)

	require.True(t, ex.Execute(goblin).Result())
	assert.True(t, goblin.Stunned())
	require.Len(t, f.hits, 1)
	assert.True(t, f.hits[0].Stunned)

	f.world.ExpireEffects(f.at(1000))
	assert.False(t, goblin.Stunned())
}

func TestExecution_Wait(t *testing.T) {
	f := newFixture(t)
	hero := f.spawn("hero", "red", 0, 100, 100, 0)
	goblin := f.spawn("goblin", "green", 12, 100, 0, 0)
	ex := f.executor(charge(), hero)
	x := ex.Execute(goblin)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := x.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)

	ex.Cancel()
	ok, err := x.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

// A Warrior charges a goblin that is already inside the stop distance.
func TestExecutor_WarriorChargesGoblin(t *testing.T) {
	f := newFixture(t)
	warrior := f.spawn("warrior", "heroes", 0, 150, 50, 0)
	goblin := f.spawn("goblin", "monsters", 1.5, 80, 0, 0)
	def := charge()
	def.Damage = "25"
	ex := f.executor(def, warrior)

	x := ex.Execute(goblin)
	require.True(t, x.Finished(), "goblin is within stop distance so the charge resolves immediately")
	assert.True(t, x.Result())
	assert.Equal(t, ability.OutcomeHit, x.Outcome())

	require.Len(t, f.dmg, 1)
	assert.Equal(t, "goblin", f.dmg[0].TargetID)
	assert.Equal(t, 25, f.dmg[0].Amount)
	assert.Equal(t, 15, warrior.Resources().Mana())
	assert.Equal(t, 55, goblin.Resources().Health())

	again := ex.Execute(goblin)
	assert.False(t, again.Result())
	assert.Equal(t, "On cooldown: 8.0s", again.Reason())
	assert.Len(t, f.dmg, 1)
}

func TestProperty_ExecuteDeductsAllOrNothing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		mana := rapid.IntRange(0, 50).Draw(rt, "mana")
		stamina := rapid.IntRange(0, 50).Draw(rt, "stamina")
		hero := f.spawn("hero", "red", 0, 100, mana, stamina)
		f.spawn("goblin", "green", 1, 100, 0, 0)

		def := strike()
		def.ManaCost = rapid.IntRange(0, 60).Draw(rt, "manaCost")
		def.StaminaCost = rapid.IntRange(0, 60).Draw(rt, "staminaCost")
		ex := f.executor(def, hero)

		x := ex.Execute(nil)
		gotMana, gotStamina := hero.Resources().Mana(), hero.Resources().Stamina()
		affordable := mana >= def.ManaCost && stamina >= def.StaminaCost
		if affordable != x.Result() {
			rt.Fatalf("affordable=%v result=%v reason=%q", affordable, x.Result(), x.Reason())
		}
		if x.Result() {
			if gotMana != mana-def.ManaCost || gotStamina != stamina-def.StaminaCost {
				rt.Fatalf("partial deduction: mana %d->%d stamina %d->%d", mana, gotMana, stamina, gotStamina)
			}
		} else if gotMana != mana || gotStamina != stamina {
			rt.Fatalf("rejected execute changed pools: mana %d->%d stamina %d->%d", mana, gotMana, stamina, gotStamina)
		}
		if ex.Active() {
			rt.Fatalf("instant ability left active")
		}
	})
}
