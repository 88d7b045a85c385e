// Package clock provides the time source consumed by the behavior engine,
// ability executors and the simulation loop.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic "now" source.
type Clock interface {
	Now() time.Time
}

// Real reads the wall clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Manual is a virtual clock that only moves when told to. It is used for
// deterministic tests and scenario replays.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
//
// Precondition: t must not be before the current virtual time.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Before(m.now) {
		panic("clock.Manual.Set: time must not go backwards")
	}
	m.now = t
}

// Advance moves the clock forward by d and returns the new time.
//
// Precondition: d >= 0.
func (m *Manual) Advance(d time.Duration) time.Time {
	if d < 0 {
		panic("clock.Manual.Advance: d must be >= 0")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}
