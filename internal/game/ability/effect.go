package ability

import (
	"sort"
	"time"
)

// Effect is a timed named state attached to a character, such as a buff or a stun.
type Effect struct {
	Name      string
	Source    string // ability or entity that applied it
	StartTime time.Time
	Duration  time.Duration // 0 = until removed
}

// EndsAt returns StartTime + Duration, or the zero time for an unbounded effect.
func (e Effect) EndsAt() time.Time {
	if e.Duration <= 0 {
		return time.Time{}
	}
	return e.StartTime.Add(e.Duration)
}

// Expired reports whether a bounded effect has run its full duration at now.
func (e Effect) Expired(now time.Time) bool {
	return e.Duration > 0 && !now.Before(e.EndsAt())
}

// Remaining returns the time left at now, or 0 for expired and unbounded effects.
func (e Effect) Remaining(now time.Time) time.Duration {
	if e.Duration <= 0 {
		return 0
	}
	if r := e.EndsAt().Sub(now); r > 0 {
		return r
	}
	return 0
}

// EffectSet tracks the effects currently on one character.
// It is not safe for concurrent use; the caller must serialise access.
//
// Invariant: at most one effect per name.
type EffectSet struct {
	effects map[string]Effect
}

// NewEffectSet creates an empty EffectSet.
func NewEffectSet() *EffectSet {
	return &EffectSet{effects: make(map[string]Effect)}
}

// Add stores e, replacing any effect with the same name.
//
// Postcondition: Has(e.Name) is true and Get(e.Name) == e.
func (s *EffectSet) Add(e Effect) {
	s.effects[e.Name] = e
}

// Remove deletes the named effect and reports whether it was present.
func (s *EffectSet) Remove(name string) bool {
	_, ok := s.effects[name]
	delete(s.effects, name)
	return ok
}

// RemoveIf deletes the named effect only when its start time and source match
// e. It protects a newer effect of the same name from an older owner's cleanup.
func (s *EffectSet) RemoveIf(e Effect) bool {
	cur, ok := s.effects[e.Name]
	if !ok || cur.Source != e.Source || !cur.StartTime.Equal(e.StartTime) {
		return false
	}
	delete(s.effects, e.Name)
	return true
}

// Expire removes every bounded effect whose duration has elapsed at now.
//
// Postcondition: For every name in the returned slice, Has(name) is false.
// The slice is sorted.
func (s *EffectSet) Expire(now time.Time) []string {
	var expired []string
	// Deleting map entries during range iteration is safe.
	for name, e := range s.effects {
		if e.Expired(now) {
			expired = append(expired, name)
			delete(s.effects, name)
		}
	}
	sort.Strings(expired)
	return expired
}

// Has reports whether an effect named name is present.
func (s *EffectSet) Has(name string) bool {
	_, ok := s.effects[name]
	return ok
}

// Get returns the named effect.
func (s *EffectSet) Get(name string) (Effect, bool) {
	e, ok := s.effects[name]
	return e, ok
}

// Len returns the number of active effects.
func (s *EffectSet) Len() int { return len(s.effects) }

// All returns a copy of the active effects sorted by name.
func (s *EffectSet) All() []Effect {
	out := make([]Effect, 0, len(s.effects))
	for _, e := range s.effects {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
