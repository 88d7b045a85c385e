package ability

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Outcome is the exit condition an execution ended with.
type Outcome int

const (
	// Pending means the execution has not finished yet.
	Pending Outcome = iota
	// Rejected means CanUse failed; nothing was spent.
	Rejected
	// OutcomeHit means the goal condition was met and damage was applied.
	OutcomeHit
	// Timeout means MaxDuration elapsed before the goal was met.
	Timeout
	// TargetLost means the target died, left the world or left melee range.
	TargetLost
	// Cancelled means Cancel was called while executing.
	Cancelled
	// Completed means a channel or buff ran its full duration.
	Completed
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Rejected:
		return "rejected"
	case OutcomeHit:
		return "hit"
	case Timeout:
		return "timeout"
	case TargetLost:
		return "target_lost"
	case Cancelled:
		return "cancelled"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Execution is the deferred result of one Execute call.
//
// Invariant: once Finished reports true, Outcome, Reason and Result never change.
type Execution struct {
	id      uuid.UUID
	ability string
	target  string

	mu      sync.Mutex
	done    chan struct{}
	outcome Outcome
	reason  string
	hits    int
}

func newExecution(ability string) *Execution {
	return &Execution{id: uuid.New(), ability: ability, done: make(chan struct{})}
}

func rejected(ability, reason string) *Execution {
	x := newExecution(ability)
	x.resolve(Rejected, reason)
	return x
}

// ID returns the unique execution identifier.
func (x *Execution) ID() uuid.UUID { return x.id }

// Ability returns the name of the ability that produced x.
func (x *Execution) Ability() string { return x.ability }

// TargetID returns the resolved target's ID, or "" when none was resolved.
func (x *Execution) TargetID() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.target
}

// Done is closed when the execution reaches any exit.
func (x *Execution) Done() <-chan struct{} { return x.done }

// Finished reports whether the execution reached an exit.
func (x *Execution) Finished() bool {
	select {
	case <-x.done:
		return true
	default:
		return false
	}
}

// Outcome returns the exit condition, or Pending.
func (x *Execution) Outcome() Outcome {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.outcome
}

// Reason returns the rejection reason, or "" for an accepted execution.
func (x *Execution) Reason() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.reason
}

// Hits returns how many times damage was applied.
func (x *Execution) Hits() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.hits
}

// Result reports whether the ability legally started and reached an exit.
// A timeout or cancellation still counts; only a rejection is false.
func (x *Execution) Result() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.outcome != Pending && x.outcome != Rejected
}

// Wait blocks until the execution finishes or ctx is done.
func (x *Execution) Wait(ctx context.Context) (bool, error) {
	select {
	case <-x.done:
		return x.Result(), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (x *Execution) setTarget(id string) {
	x.mu.Lock()
	x.target = id
	x.mu.Unlock()
}

func (x *Execution) addHit() {
	x.mu.Lock()
	x.hits++
	x.mu.Unlock()
}

// resolve records the exit. Only the first call has any effect.
func (x *Execution) resolve(o Outcome, reason string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.outcome != Pending {
		return false
	}
	x.outcome = o
	x.reason = reason
	close(x.done)
	return true
}
