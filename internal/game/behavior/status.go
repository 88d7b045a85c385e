// Package behavior implements a tick-driven behavior-tree interpreter.
//
// A tree is a single-owner hierarchy of nodes. Each call to Tree.Tick
// advances evaluation by exactly one step and never blocks. Composite nodes
// persist a traversal cursor across ticks while they report Running, and
// rewind it to zero whenever they return a terminal status.
package behavior

import "fmt"

// Status is the result of ticking a node.
//
// Invariant: every Tick returns exactly one of Success, Failure or Running.
type Status int

const (
	Success Status = iota + 1
	Failure
	Running
)

// Valid reports whether s is one of the three defined statuses.
func (s Status) Valid() bool {
	return s == Success || s == Failure || s == Running
}

// Terminal reports whether s ends a traversal (Success or Failure).
func (s Status) Terminal() bool {
	return s == Success || s == Failure
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	case Running:
		return "RUNNING"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus maps "success", "failure" or "running" (any case) to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "success", "SUCCESS", "Success":
		return Success, nil
	case "failure", "FAILURE", "Failure":
		return Failure, nil
	case "running", "RUNNING", "Running":
		return Running, nil
	}
	return 0, fmt.Errorf("behavior.ParseStatus: unknown status %q", s)
}
