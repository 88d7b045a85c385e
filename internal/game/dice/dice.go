// Package dice provides the randomness abstraction used for ability damage
// rolls and probability-gated secondary effects.
package dice

import "fmt"

// Source is the randomness provider for rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollResult holds the audit trail for one evaluated expression.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // original expression, e.g. "2d6+3" or "25"
	Dice       []int  // individual die results; empty for flat values
	Modifier   int
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String returns an audit string in the format "2d6+3 → [4 5] +3 = 12".
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Chance reports whether a percent-probability event fires.
//
// Precondition: src must not be nil.
// Postcondition: percent <= 0 never fires; percent >= 100 always fires and
// consumes no randomness.
func Chance(src Source, percent float64) bool {
	switch {
	case percent <= 0:
		return false
	case percent >= 100:
		return true
	}
	// Resolve to basis points so fractional percentages keep their precision.
	return float64(src.Intn(10_000)) < percent*100
}
