package world

import (
	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

// EntitySpec describes an entity to spawn.
//
// Precondition: Name and Team must be non-empty; Health must be > 0.
type EntitySpec struct {
	ID       string // empty = generated
	Name     string
	Team     string
	Position geom.Vec3
	Health   int
	Mana     int
	Stamina  int
}

// Entity is a combatant in the world. It satisfies ability.Caster,
// ability.Target and ability.EffectReceiver.
type Entity struct {
	id      string
	name    string
	team    string
	pos     geom.Vec3
	res     *ability.Resources
	effects *ability.EffectSet
	world   *World // nil once removed
}

var (
	_ ability.Caster         = (*Entity)(nil)
	_ ability.Target         = (*Entity)(nil)
	_ ability.EffectReceiver = (*Entity)(nil)
)

// ID returns the unique entity ID.
func (e *Entity) ID() string { return e.id }

// Name returns the display name.
func (e *Entity) Name() string { return e.name }

// Team returns the team name; entities on different teams are hostile.
func (e *Entity) Team() string { return e.team }

// Position returns the current position.
func (e *Entity) Position() geom.Vec3 { return e.pos }

// SetPosition moves e to p.
func (e *Entity) SetPosition(p geom.Vec3) { e.pos = p }

// Resources returns the health, mana and stamina pools.
func (e *Entity) Resources() *ability.Resources { return e.res }

// Effects returns the active timed effects.
func (e *Entity) Effects() *ability.EffectSet { return e.effects }

// ApplyEffect adds eff, replacing any effect with the same name.
func (e *Entity) ApplyEffect(eff ability.Effect) { e.effects.Add(eff) }

// InWorld reports whether e has not been removed.
func (e *Entity) InWorld() bool { return e.world != nil }

// Alive reports whether e has health left and is still in the world.
func (e *Entity) Alive() bool {
	return e.world != nil && e.res.Health() > 0
}

// Stunned reports whether a stun effect is active.
func (e *Entity) Stunned() bool {
	return e.effects.Has(ability.StunEffect)
}

// DistanceTo returns the straight-line distance to other.
func (e *Entity) DistanceTo(other *Entity) float64 {
	return e.pos.DistanceTo(other.pos)
}

// HostileTo reports whether other is on a different team.
func (e *Entity) HostileTo(other *Entity) bool {
	return e.id != other.id && e.team != other.team
}

// TakeDamage lowers health and notifies the world's damage listeners.
// Damage to an entity that is already dead or removed is ignored.
func (e *Entity) TakeDamage(amount int, source, damageType string) {
	if !e.Alive() {
		return
	}
	applied := e.res.Damage(amount)
	e.world.emit(DamageEvent{
		TargetID:   e.id,
		SourceID:   source,
		DamageType: damageType,
		Amount:     amount,
		Applied:    applied,
		Killed:     e.res.Health() == 0,
	})
}
