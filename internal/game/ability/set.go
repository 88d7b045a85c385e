package ability

import (
	"fmt"
	"time"
)

// Set is one character's ability book, in registration order.
// It is not safe for concurrent use; the caller must serialise access.
//
// Invariant: each ability ID appears at most once.
type Set struct {
	order []string
	byID  map[string]*Executor
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{byID: make(map[string]*Executor)}
}

// Add registers e under its definition ID.
//
// Postcondition: returns error on ID collision.
func (s *Set) Add(e *Executor) error {
	if e == nil {
		panic("ability.Set.Add: executor must not be nil")
	}
	id := e.Def().ID
	if _, exists := s.byID[id]; exists {
		return fmt.Errorf("ability.Set: ability %q already registered", id)
	}
	s.byID[id] = e
	s.order = append(s.order, id)
	return nil
}

// Get returns the executor registered under id.
func (s *Set) Get(id string) (*Executor, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// All returns the executors in registration order.
func (s *Set) All() []*Executor {
	out := make([]*Executor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of registered abilities.
func (s *Set) Len() int { return len(s.order) }

// AnyActive reports whether any ability has an execution in flight.
func (s *Set) AnyActive() bool {
	for _, e := range s.byID {
		if e.Active() {
			return true
		}
	}
	return false
}

// AdvanceAll polls every active ability at now, in registration order.
func (s *Set) AdvanceAll(now time.Time) {
	for _, id := range s.order {
		s.byID[id].Advance(now)
	}
}

// CancelAll cancels every in-flight execution.
func (s *Set) CancelAll() {
	for _, id := range s.order {
		s.byID[id].Cancel()
	}
}

// Infos returns a display snapshot of every ability in registration order.
func (s *Set) Infos() []Info {
	out := make([]Info, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Info())
	}
	return out
}
