package ability

import "github.com/cory-johannsen/skirmish/internal/game/geom"

// Target is anything an ability can be aimed at.
type Target interface {
	ID() string
	Name() string
	Position() geom.Vec3
	// Alive reports whether the target still has health and remains in the world.
	Alive() bool
	Team() string
	TakeDamage(amount int, source, damageType string)
}

// Caster is the character that owns and uses abilities.
type Caster interface {
	ID() string
	Name() string
	Position() geom.Vec3
	SetPosition(p geom.Vec3)
	Team() string
	Resources() *Resources
	Effects() *EffectSet
}

// TargetProvider exposes the world's potential targets and the externally
// selected target of each caster.
type TargetProvider interface {
	// Candidates returns every potential target in a stable iteration order.
	Candidates() []Target
	// Selected returns casterID's current selection, or nil.
	Selected(casterID string) Target
}

// EffectReceiver is implemented by targets that accept timed effects such as stuns.
type EffectReceiver interface {
	ApplyEffect(e Effect)
}

// Hostile reports whether t is an enemy of c.
func Hostile(c Caster, t Target) bool {
	return t.ID() != c.ID() && t.Team() != c.Team()
}
