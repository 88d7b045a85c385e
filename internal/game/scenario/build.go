package scenario

import (
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/agent"
	"github.com/cory-johannsen/skirmish/internal/game/behavior"
	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/sim"
	"github.com/cory-johannsen/skirmish/internal/game/world"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// DefaultInterval is the step interval used when neither the scenario nor
// Deps set one.
const DefaultInterval = 100 * time.Millisecond

// Deps are the shared collaborators of a built battle.
type Deps struct {
	Clock   clock.Clock
	Roller  *dice.Roller
	Logger  *zap.Logger
	Metrics *observability.Metrics // nil disables metrics
	// Scripts backs Lua leaves and on_hit hooks. nil is allowed only when no
	// referenced behavior uses script leaves; on_hit hooks are then skipped.
	Scripts *scripting.Manager
	// Interval overrides the scenario's tick_interval when > 0.
	Interval time.Duration
}

// Battle is an assembled scenario ready to run.
type Battle struct {
	Scenario *Scenario
	World    *world.World
	Loop     *sim.Loop
	agents   map[string]*agent.Agent
}

// Agent returns the agent for entity id. Entities without a behavior have none.
func (b *Battle) Agent(id string) (*agent.Agent, bool) {
	a, ok := b.agents[id]
	return a, ok
}

// Build assembles s into a Battle: it spawns every entity, creates one
// executor per listed ability, builds each behavior tree with the agent's
// leaves and the script manager, and registers agents with a new sim.Loop.
//
// Precondition: deps.Clock, deps.Roller and deps.Logger must not be nil.
// Postcondition: returns an error if s is invalid, refers to unknown content,
// or a tree fails to build.
func Build(s *Scenario, lib *Library, deps Deps) (*Battle, error) {
	if deps.Clock == nil || deps.Roller == nil || deps.Logger == nil {
		panic("scenario.Build: deps.Clock, deps.Roller and deps.Logger must not be nil")
	}
	if s == nil || lib == nil {
		return nil, errors.New("scenario.Build: scenario and library must not be nil")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario.Build: %w", err)
	}
	if err := lib.Check(s); err != nil {
		return nil, fmt.Errorf("scenario.Build: %w", err)
	}

	logger := deps.Logger.With(zap.String("scenario", s.ID))
	w := world.New(logger)
	interval := deps.Interval
	if interval <= 0 {
		interval = s.Interval
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	loop := sim.NewLoop(w, deps.Clock, interval, logger)
	loop.SetMetrics(deps.Metrics)

	b := &Battle{
		Scenario: s,
		World:    w,
		Loop:     loop,
		agents:   make(map[string]*agent.Agent),
	}

	entities := make([]*world.Entity, 0, len(s.Entities))
	for _, ed := range s.Entities {
		e, err := w.Spawn(world.EntitySpec{
			ID:       ed.ID,
			Name:     ed.Name,
			Team:     ed.Team,
			Position: ed.Position.Vec(),
			Health:   ed.Health,
			Mana:     ed.Mana,
			Stamina:  ed.Stamina,
		})
		if err != nil {
			return nil, fmt.Errorf("scenario.Build: %w", err)
		}
		entities = append(entities, e)
	}
	for _, ed := range s.Entities {
		if ed.Target != "" {
			if err := w.Select(ed.ID, ed.Target); err != nil {
				return nil, fmt.Errorf("scenario.Build: %w", err)
			}
		}
	}
	if deps.Scripts != nil {
		bindScripts(deps.Scripts, w)
	}

	for i, ed := range s.Entities {
		e := entities[i]
		var bdef *behavior.Definition
		scope := scripting.GlobalScope
		if ed.Behavior != "" {
			bdef, _ = lib.Behavior(ed.Behavior)
			if bdef.Scope != "" {
				scope = bdef.Scope
			}
		}
		set := ability.NewSet()
		for _, id := range ed.Abilities {
			def, _ := lib.Ability(id)
			ex := ability.NewExecutor(def, e, ability.Deps{
				Clock:   deps.Clock,
				Targets: w,
				Roller:  deps.Roller,
				Logger:  logger,
				Metrics: deps.Metrics,
				OnHit:   onHit(deps.Scripts, def, scope, logger),
			})
			if err := set.Add(ex); err != nil {
				return nil, fmt.Errorf("scenario.Build: entity %q: %w", ed.ID, err)
			}
		}
		if bdef == nil {
			continue
		}
		a := agent.New(e, w, set, logger)
		var caller behavior.ScriptCaller
		if deps.Scripts != nil {
			caller = deps.Scripts
		}
		root, err := behavior.Build(bdef, a.Leaves(), caller)
		if err != nil {
			return nil, fmt.Errorf("scenario.Build: entity %q: %w", ed.ID, err)
		}
		tree, err := behavior.NewTree(ed.Name+"/"+bdef.ID, root, logger)
		if err != nil {
			return nil, fmt.Errorf("scenario.Build: entity %q: %w", ed.ID, err)
		}
		tree.SetMetrics(deps.Metrics)
		a.SetTree(tree)
		loop.Add(a)
		b.agents[ed.ID] = a
	}

	logger.Info("scenario built",
		zap.Int("entities", len(entities)),
		zap.Int("agents", len(b.agents)),
		zap.Strings("teams", s.Teams()),
		zap.Duration("interval", interval),
	)
	return b, nil
}

// bindScripts points the engine.world module at w.
func bindScripts(m *scripting.Manager, w *world.World) {
	m.GetEntity = func(id string) *scripting.EntityInfo {
		e, ok := w.Get(id)
		if !ok {
			return nil
		}
		res := e.Resources()
		pos := e.Position()
		return &scripting.EntityInfo{
			ID:        e.ID(),
			Name:      e.Name(),
			Team:      e.Team(),
			Health:    res.Health(),
			MaxHealth: res.MaxHealth(),
			Mana:      res.Mana(),
			Stamina:   res.Stamina(),
			X:         pos.X,
			Y:         pos.Y,
			Z:         pos.Z,
			Alive:     e.Alive(),
		}
	}
	m.Heal = func(id string, amount int) int {
		e, ok := w.Get(id)
		if !ok || !e.Alive() {
			return 0
		}
		return e.Resources().Heal(amount)
	}
}

// onHit returns the hit callback for def: it calls def.OnHit in scope with a
// table describing the hit. A failing hook does not affect the hit.
func onHit(m *scripting.Manager, def *ability.Def, scope string, logger *zap.Logger) func(ability.Hit) {
	if m == nil || def.OnHit == "" {
		return nil
	}
	return func(h ability.Hit) {
		tbl := &lua.LTable{Metatable: lua.LNil}
		tbl.RawSetString("ability", lua.LString(h.Ability))
		tbl.RawSetString("caster", lua.LString(h.CasterID))
		tbl.RawSetString("target", lua.LString(h.TargetID))
		tbl.RawSetString("damage", lua.LNumber(h.Damage))
		tbl.RawSetString("damage_type", lua.LString(h.DamageType))
		if h.Roll.Expression != "" {
			tbl.RawSetString("roll", lua.LString(h.Roll.String()))
		}
		tbl.RawSetString("stunned", lua.LBool(h.Stunned))
		if _, err := m.CallHook(scope, def.OnHit, tbl); err != nil {
			logger.Debug("on_hit hook failed",
				zap.String("ability", def.ID),
				zap.Error(err),
			)
		}
	}
}
