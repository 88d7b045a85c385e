// Package world is the reference entity store for skirmish. It owns every
// combatant, answers target queries for abilities, and tracks each caster's
// externally selected target.
package world

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
)

// DamageEvent is emitted after an entity takes damage.
type DamageEvent struct {
	TargetID   string
	SourceID   string
	DamageType string
	Amount     int // requested
	Applied    int // actually removed from health
	Killed     bool
}

// World holds entities in insertion order.
//
// Invariant: Candidates and Entities iterate in spawn order.
type World struct {
	mu        sync.RWMutex
	entities  []*Entity
	byID      map[string]*Entity
	selection map[string]string // caster ID -> target ID
	listeners []func(DamageEvent)
	logger    *zap.Logger
}

var _ ability.TargetProvider = (*World)(nil)

// New creates an empty World.
//
// Precondition: logger must not be nil.
func New(logger *zap.Logger) *World {
	if logger == nil {
		panic("world.New: logger must not be nil")
	}
	return &World{
		byID:      make(map[string]*Entity),
		selection: make(map[string]string),
		logger:    logger,
	}
}

// Spawn adds a new entity with full pools.
//
// Postcondition: returns error on an invalid spec or a duplicate ID.
func (w *World) Spawn(spec EntitySpec) (*Entity, error) {
	if spec.Name == "" || spec.Team == "" {
		return nil, errors.New("world.Spawn: name and team must not be empty")
	}
	if spec.Health <= 0 || spec.Mana < 0 || spec.Stamina < 0 {
		return nil, fmt.Errorf("world.Spawn %q: health must be > 0 and pools >= 0", spec.Name)
	}
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.byID[id]; exists {
		return nil, fmt.Errorf("world.Spawn: duplicate entity ID %q", id)
	}
	e := &Entity{
		id:      id,
		name:    spec.Name,
		team:    spec.Team,
		pos:     spec.Position,
		res:     ability.NewResources(spec.Health, spec.Mana, spec.Stamina),
		effects: ability.NewEffectSet(),
		world:   w,
	}
	w.entities = append(w.entities, e)
	w.byID[id] = e
	w.logger.Debug("entity spawned",
		zap.String("id", id),
		zap.String("name", spec.Name),
		zap.String("team", spec.Team),
		zap.Stringer("position", spec.Position),
	)
	return e, nil
}

// Remove takes the entity out of the world. Selections pointing at it and
// made by it are cleared. Removing an unknown ID is a no-op.
func (w *World) Remove(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.byID[id]
	if !ok {
		return false
	}
	delete(w.byID, id)
	for i, cur := range w.entities {
		if cur == e {
			w.entities = append(w.entities[:i:i], w.entities[i+1:]...)
			break
		}
	}
	delete(w.selection, id)
	for caster, target := range w.selection {
		if target == id {
			delete(w.selection, caster)
		}
	}
	e.world = nil
	return true
}

// Get returns the entity with id.
func (w *World) Get(id string) (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.byID[id]
	return e, ok
}

// Len returns the number of entities in the world.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// Entities returns every entity in spawn order.
func (w *World) Entities() []*Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Entity, len(w.entities))
	copy(out, w.entities)
	return out
}

// Living returns the entities with health left, in spawn order.
func (w *World) Living() []*Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []*Entity
	for _, e := range w.entities {
		if e.res.Health() > 0 {
			out = append(out, e)
		}
	}
	return out
}

// Candidates returns every entity as an ability target, in spawn order.
func (w *World) Candidates() []ability.Target {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]ability.Target, len(w.entities))
	for i, e := range w.entities {
		out[i] = e
	}
	return out
}

// Select records targetID as casterID's selected target.
//
// Postcondition: returns error if either ID is unknown.
func (w *World) Select(casterID, targetID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.byID[casterID]; !ok {
		return fmt.Errorf("world.Select: unknown caster %q", casterID)
	}
	if _, ok := w.byID[targetID]; !ok {
		return fmt.Errorf("world.Select: unknown target %q", targetID)
	}
	w.selection[casterID] = targetID
	return nil
}

// ClearSelection removes casterID's selection.
func (w *World) ClearSelection(casterID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.selection, casterID)
}

// Selected returns casterID's selected target, or nil.
func (w *World) Selected(casterID string) ability.Target {
	if e := w.SelectedEntity(casterID); e != nil {
		return e
	}
	return nil
}

// SelectedEntity returns casterID's selected entity, or nil.
func (w *World) SelectedEntity(casterID string) *Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	id, ok := w.selection[casterID]
	if !ok {
		return nil
	}
	return w.byID[id]
}

// NearestHostile returns the closest living entity hostile to from, within
// maxRange when maxRange > 0. Ties keep the earlier-spawned entity.
func (w *World) NearestHostile(from *Entity, maxRange float64) (*Entity, float64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var (
		best     *Entity
		bestDist float64
	)
	for _, e := range w.entities {
		if e.res.Health() <= 0 || !from.HostileTo(e) {
			continue
		}
		d := from.DistanceTo(e)
		if maxRange > 0 && d > maxRange {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, bestDist
}

// OnDamage registers fn to be called after every damage application.
func (w *World) OnDamage(fn func(DamageEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *World) emit(ev DamageEvent) {
	w.mu.RLock()
	listeners := make([]func(DamageEvent), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.RUnlock()

	w.logger.Debug("entity damaged",
		zap.String("target", ev.TargetID),
		zap.String("source", ev.SourceID),
		zap.String("type", ev.DamageType),
		zap.Int("applied", ev.Applied),
		zap.Bool("killed", ev.Killed),
	)
	for _, fn := range listeners {
		fn(ev)
	}
}

// ExpireEffects removes elapsed effects from every entity and returns how
// many were removed.
func (w *World) ExpireEffects(now time.Time) int {
	n := 0
	for _, e := range w.Entities() {
		for _, name := range e.effects.Expire(now) {
			w.logger.Debug("effect expired", zap.String("entity", e.id), zap.String("effect", name))
			n++
		}
	}
	return n
}
