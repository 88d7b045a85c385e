// Package agent binds a world entity, its ability book and its behavior tree
// into one autonomous combatant, and provides the built-in leaves trees use
// to sense the world and drive abilities.
package agent

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/behavior"
	"github.com/cory-johannsen/skirmish/internal/game/world"
)

// Context keys written by the agent and its built-in leaves.
const (
	KeySelfID        = "self.id"
	KeySelfHealth    = "self.health"
	KeySelfHealthPct = "self.health_pct"
	KeySelfMana      = "self.mana"
	KeySelfStamina   = "self.stamina"
	KeyTargetID      = "target.id"
	KeyTargetDist    = "target.distance"
)

// Agent is one autonomous combatant.
//
// Invariant: Tree is nil only between New and SetTree.
type Agent struct {
	entity    *world.Entity
	world     *world.World
	abilities *ability.Set
	tree      *behavior.Tree
	logger    *zap.Logger

	now     time.Time
	last    time.Time
	pending map[string]*ability.Execution
}

// New creates an Agent without a tree.
//
// Precondition: entity, w, abilities and logger must not be nil.
func New(entity *world.Entity, w *world.World, abilities *ability.Set, logger *zap.Logger) *Agent {
	if entity == nil || w == nil || abilities == nil || logger == nil {
		panic("agent.New: entity, world, abilities and logger must not be nil")
	}
	return &Agent{
		entity:    entity,
		world:     w,
		abilities: abilities,
		logger:    logger.With(zap.String("agent", entity.Name())),
		pending:   make(map[string]*ability.Execution),
	}
}

// SetTree installs t, resetting any in-flight state from a previous tree.
func (a *Agent) SetTree(t *behavior.Tree) {
	if a.tree != nil {
		a.Reset()
	}
	a.tree = t
}

// Entity returns the controlled entity.
func (a *Agent) Entity() *world.Entity { return a.entity }

// Abilities returns the entity's ability executors.
func (a *Agent) Abilities() *ability.Set { return a.abilities }

// Tree returns the bound behavior tree, or nil before SetTree.
func (a *Agent) Tree() *behavior.Tree { return a.tree }

// Alive reports whether the controlled entity is alive.
func (a *Agent) Alive() bool { return a.entity.Alive() }

// Pending reports whether an execution of ability id is awaiting its result.
func (a *Agent) Pending(id string) bool { return a.pending[id] != nil }

// Now returns the time of the latest tick.
func (a *Agent) Now() time.Time { return a.now }

// Tick refreshes the self.* context keys and ticks the tree once.
//
// Precondition: SetTree has been called.
func (a *Agent) Tick(now time.Time) behavior.Status {
	if a.last.IsZero() {
		a.last = now
	} else {
		a.last = a.now
	}
	a.now = now

	ctx := a.tree.Context()
	res := a.entity.Resources()
	ctx.Set(KeySelfID, a.entity.ID())
	ctx.Set(KeySelfHealth, res.Health())
	ctx.Set(KeySelfHealthPct, res.HealthFraction()*100)
	ctx.Set(KeySelfMana, res.Mana())
	ctx.Set(KeySelfStamina, res.Stamina())
	return a.tree.Tick()
}

// Reset rewinds the tree, cancels in-flight abilities and forgets pending
// executions.
func (a *Agent) Reset() {
	if a.tree != nil {
		a.tree.Reset()
	}
	a.abilities.CancelAll()
	clear(a.pending)
}

// dt returns the time elapsed since the previous Tick.
func (a *Agent) dt() time.Duration {
	return a.now.Sub(a.last)
}

// target returns the entity named by target.id if it is still a living enemy.
func (a *Agent) target(ctx *behavior.Context) *world.Entity {
	id := ctx.String(KeyTargetID)
	if id == "" {
		return nil
	}
	e, ok := a.world.Get(id)
	if !ok || !e.Alive() || !a.entity.HostileTo(e) {
		return nil
	}
	return e
}
