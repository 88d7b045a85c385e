package ability

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

// StunEffect is the name of the effect applied by a successful stun roll.
const StunEffect = "stunned"

// Ability is the contract every usable ability satisfies.
type Ability interface {
	Name() string
	// CanUse reports whether Execute would start right now. It never mutates state.
	CanUse(target Target) Verdict
	// Execute validates, spends and starts the ability. A nil target is
	// resolved from the selection, else the nearest valid enemy.
	Execute(target Target) *Execution
	// Cancel ends an in-flight execution without refunding its cost.
	Cancel()
	Info() Info
	// Advance runs one poll of the executing phase at now.
	Advance(now time.Time)
	Active() bool
}

// Verdict is the result of CanUse. Reason is a display-ready message.
type Verdict struct {
	OK     bool
	Reason string
}

// Info is a read-only snapshot for display.
type Info struct {
	ID                string
	Name              string
	Description       string
	Archetype         Archetype
	ManaCost          int
	StaminaCost       int
	Cooldown          time.Duration
	CooldownRemaining time.Duration
	Range             float64
	Active            bool
	Charging          bool
}

// State is the executor's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateExecuting
	StateCompleting
	StateCancelled
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateExecuting:
		return "executing"
	case StateCompleting:
		return "completing"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Hit describes one application of damage.
type Hit struct {
	Ability    string
	CasterID   string
	TargetID   string
	Damage     int
	DamageType string
	Roll       dice.RollResult
	Stunned    bool
	At         time.Time
}

// Deps are the collaborators an Executor needs.
type Deps struct {
	Clock   clock.Clock
	Targets TargetProvider
	Roller  *dice.Roller
	Logger  *zap.Logger
	Metrics *observability.Metrics // nil disables metrics
	// OnHit is called after every hit. nil = no-op.
	OnHit func(Hit)
}

var _ Ability = (*Executor)(nil)

// Executor is the state machine for one ability owned by one caster.
// It is not safe for concurrent use; the simulation driver owns it.
//
// Invariant: at most one execution is in flight; Active() is true exactly
// while that execution is unresolved.
type Executor struct {
	def     *Def
	caster  Caster
	clock   clock.Clock
	targets TargetProvider
	roller  *dice.Roller
	logger  *zap.Logger
	metrics *observability.Metrics
	onHit   func(Hit)

	state    State
	used     bool
	lastUsed time.Time
	cur      *run
}

type run struct {
	exec     *Execution
	target   Target
	started  time.Time
	lastPoll time.Time
	nextTick time.Time
	effect   *Effect
}

// NewExecutor binds def to caster.
//
// Precondition: def has passed Validate; caster, deps.Clock, deps.Targets,
// deps.Roller and deps.Logger must not be nil.
func NewExecutor(def *Def, caster Caster, deps Deps) *Executor {
	if def == nil {
		panic("ability.NewExecutor: def must not be nil")
	}
	if caster == nil {
		panic("ability.NewExecutor: caster must not be nil")
	}
	if deps.Clock == nil || deps.Targets == nil || deps.Roller == nil || deps.Logger == nil {
		panic("ability.NewExecutor: clock, targets, roller and logger must not be nil")
	}
	return &Executor{
		def:     def,
		caster:  caster,
		clock:   deps.Clock,
		targets: deps.Targets,
		roller:  deps.Roller,
		logger:  deps.Logger.With(zap.String("ability", def.ID), zap.String("caster", caster.ID())),
		metrics: deps.Metrics,
		onHit:   deps.OnHit,
	}
}

// Name returns the display name.
func (e *Executor) Name() string { return e.def.Name }

// Def returns the static definition.
func (e *Executor) Def() *Def { return e.def }

// State returns the current lifecycle phase.
func (e *Executor) State() State { return e.state }

// Active reports whether an execution is in flight.
func (e *Executor) Active() bool {
	return e.state == StateExecuting || e.state == StateCompleting
}

// Current returns the in-flight execution, or nil.
func (e *Executor) Current() *Execution {
	if e.cur == nil {
		return nil
	}
	return e.cur.exec
}

// CooldownRemaining returns max(0, lastUsed+cooldown-now).
func (e *Executor) CooldownRemaining(now time.Time) time.Duration {
	if !e.used {
		return 0
	}
	if r := e.lastUsed.Add(e.def.Cooldown).Sub(now); r > 0 {
		return r
	}
	return 0
}

// CanUse runs the fixed-order checks and returns the first failing reason:
// cooldown, mana, stamina, busy, then target validity when target is non-nil.
func (e *Executor) CanUse(target Target) Verdict {
	now := e.clock.Now()
	if r := e.CooldownRemaining(now); r > 0 {
		return Verdict{Reason: fmt.Sprintf("On cooldown: %.1fs", r.Seconds())}
	}
	switch e.caster.Resources().Afford(e.def.Cost()) {
	case "mana":
		return Verdict{Reason: "Not enough mana"}
	case "stamina":
		return Verdict{Reason: "Not enough stamina"}
	}
	if e.Active() {
		return Verdict{Reason: e.def.BusyReason}
	}
	if target != nil && e.def.Targeting == TargetEnemy {
		if reason := e.validateTarget(target); reason != "" {
			return Verdict{Reason: reason}
		}
	}
	return Verdict{OK: true}
}

func (e *Executor) validateTarget(t Target) string {
	if !t.Alive() || !Hostile(e.caster, t) {
		return "Invalid target"
	}
	if e.def.Range > 0 && e.caster.Position().DistanceTo(t.Position()) > e.def.Range {
		return fmt.Sprintf("Target out of range (%.1fm)", e.def.Range)
	}
	return ""
}

// resolveTarget prefers the caster's selection, else the nearest valid enemy.
// Ties keep the earlier candidate.
func (e *Executor) resolveTarget() Target {
	if sel := e.targets.Selected(e.caster.ID()); sel != nil && e.validateTarget(sel) == "" {
		return sel
	}
	var (
		best     Target
		bestDist float64
	)
	origin := e.caster.Position()
	for _, c := range e.targets.Candidates() {
		if e.validateTarget(c) != "" {
			continue
		}
		d := origin.DistanceTo(c.Position())
		if best == nil || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Execute validates, spends, and starts the ability, then performs the first
// poll at the current time.
//
// Postcondition: a rejected Execution has spent nothing and changed nothing.
func (e *Executor) Execute(target Target) *Execution {
	if v := e.CanUse(target); !v.OK {
		return e.reject(v.Reason)
	}
	now := e.clock.Now()
	e.state = StateValidating

	switch {
	case e.def.Targeting == TargetSelf:
		target = nil
	case target == nil:
		if target = e.resolveTarget(); target == nil {
			e.state = StateIdle
			return e.reject("No valid target")
		}
	}

	if err := e.caster.Resources().Spend(e.def.Cost()); err != nil {
		e.state = StateIdle
		return e.reject(err.Error())
	}
	e.used = true
	e.lastUsed = now

	x := newExecution(e.def.ID)
	r := &run{exec: x, target: target, started: now, lastPoll: now, nextTick: now}
	if target != nil {
		x.setTarget(target.ID())
	}
	if e.def.BuffName != "" {
		eff := Effect{Name: e.def.BuffName, Source: e.def.ID, StartTime: now, Duration: e.def.BuffDuration}
		e.caster.Effects().Add(eff)
		r.effect = &eff
	}
	e.cur = r
	e.state = StateExecuting
	e.logger.Debug("ability started",
		zap.String("execution", x.ID().String()),
		zap.String("target", x.TargetID()),
	)
	e.poll(now)
	return x
}

func (e *Executor) reject(reason string) *Execution {
	e.metrics.AbilityRejected(e.def.ID)
	e.logger.Debug("ability rejected", zap.String("reason", reason))
	return rejected(e.def.ID, reason)
}

// Advance polls the executing phase at now. It is a no-op when idle.
func (e *Executor) Advance(now time.Time) {
	if e.state != StateExecuting {
		return
	}
	e.poll(now)
}

// poll checks exit conditions in priority order: duration, target validity, goal.
func (e *Executor) poll(now time.Time) {
	r := e.cur
	elapsed := now.Sub(r.started)
	dt := now.Sub(r.lastPoll)
	r.lastPoll = now

	switch e.def.Archetype {
	case Buff:
		if elapsed >= e.def.BuffDuration {
			e.endExecution(Completed)
		}
		return
	case Channel:
		e.pollChannel(r, now)
		return
	}

	if e.def.MaxDuration > 0 && elapsed >= e.def.MaxDuration {
		e.endExecution(Timeout)
		return
	}
	if !r.target.Alive() {
		e.endExecution(TargetLost)
		return
	}
	switch e.def.Archetype {
	case Instant:
		e.hit(r, now)
		e.endExecution(OutcomeHit)
	case Melee:
		if e.def.Range > 0 && e.caster.Position().DistanceTo(r.target.Position()) > e.def.Range {
			e.endExecution(TargetLost)
			return
		}
		e.hit(r, now)
		e.endExecution(OutcomeHit)
	case Charge:
		if e.charge(r, dt) {
			e.hit(r, now)
			e.endExecution(OutcomeHit)
		}
	}
}

// charge moves the caster toward the target and reports whether it arrived.
func (e *Executor) charge(r *run, dt time.Duration) bool {
	const epsilon = 1e-9
	pos := e.caster.Position()
	goal := r.target.Position()
	dist := pos.DistanceTo(goal)
	if dist <= e.def.StopDistance+epsilon {
		return true
	}
	step := e.def.Speed * dt.Seconds()
	if gap := dist - e.def.StopDistance; step > gap {
		step = gap
	}
	if step > 0 {
		e.caster.SetPosition(pos.MoveToward(goal, step))
	}
	return e.caster.Position().DistanceTo(goal) <= e.def.StopDistance+epsilon
}

// pollChannel applies every tick due before the channel ends, then completes
// once MaxDuration has elapsed. A target lost before the end stops the
// channel on the next poll, whether or not a tick is due.
func (e *Executor) pollChannel(r *run, now time.Time) {
	end := r.started.Add(e.def.MaxDuration)
	if now.Before(end) && !r.target.Alive() {
		e.endExecution(TargetLost)
		return
	}
	for !r.nextTick.After(now) && r.nextTick.Before(end) {
		if !r.target.Alive() {
			e.endExecution(TargetLost)
			return
		}
		e.hit(r, r.nextTick)
		r.nextTick = r.nextTick.Add(e.def.TickInterval)
	}
	if !now.Before(end) {
		e.endExecution(Completed)
	}
}

func (e *Executor) hit(r *run, at time.Time) {
	roll := e.roller.Roll(e.def.DamageExpr())
	amount := roll.Total()
	if amount < 0 {
		amount = 0
	}
	r.target.TakeDamage(amount, e.caster.ID(), e.def.DamageType)
	r.exec.addHit()

	stunned := false
	if e.def.StunChance > 0 && e.roller.Chance(e.def.StunChance) {
		if recv, ok := r.target.(EffectReceiver); ok {
			recv.ApplyEffect(Effect{Name: StunEffect, Source: e.def.ID, StartTime: at, Duration: e.def.StunDuration})
			stunned = true
		}
	}
	e.logger.Debug("ability hit",
		zap.String("target", r.target.ID()),
		zap.Int("damage", amount),
		zap.Bool("stunned", stunned),
	)
	if e.onHit != nil {
		e.onHit(Hit{
			Ability:    e.def.ID,
			CasterID:   e.caster.ID(),
			TargetID:   r.target.ID(),
			Damage:     amount,
			DamageType: e.def.DamageType,
			Roll:       roll,
			Stunned:    stunned,
			At:         at,
		})
	}
}

// endExecution is the single exit path for every accepted execution.
//
// Postcondition: Active() is false, the attached effect is gone, and the
// Execution is resolved with outcome.
func (e *Executor) endExecution(outcome Outcome) {
	r := e.cur
	if r == nil {
		return
	}
	if outcome == Cancelled {
		e.state = StateCancelled
	} else {
		e.state = StateCompleting
	}
	if r.effect != nil {
		e.caster.Effects().RemoveIf(*r.effect)
	}
	e.cur = nil
	e.state = StateIdle
	r.exec.resolve(outcome, "")
	e.metrics.AbilityFinished(e.def.ID, outcome.String())
	e.logger.Debug("ability finished",
		zap.String("execution", r.exec.ID().String()),
		zap.Stringer("outcome", outcome),
		zap.Int("hits", r.exec.Hits()),
	)
}

// Cancel ends an in-flight execution. Resources and cooldown are not refunded.
// It is a no-op when idle.
func (e *Executor) Cancel() {
	if e.state != StateExecuting {
		return
	}
	e.endExecution(Cancelled)
}

// Info returns a display snapshot. It never mutates state.
func (e *Executor) Info() Info {
	active := e.Active()
	return Info{
		ID:                e.def.ID,
		Name:              e.def.Name,
		Description:       e.def.Description,
		Archetype:         e.def.Archetype,
		ManaCost:          e.def.ManaCost,
		StaminaCost:       e.def.StaminaCost,
		Cooldown:          e.def.Cooldown,
		CooldownRemaining: e.CooldownRemaining(e.clock.Now()),
		Range:             e.def.Range,
		Active:            active,
		Charging:          active && e.def.Archetype == Charge,
	}
}
