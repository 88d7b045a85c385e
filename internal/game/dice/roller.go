package dice

import "go.uber.org/zap"

// Roll evaluates expr using src.
//
// Precondition: expr must come from Parse; src must be non-nil unless expr is flat.
// Postcondition: len(result.Dice) == expr.Count.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
}

// Roller wraps a Source and logger; every roll is logged at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil {
		panic("dice.NewRoller: src must not be nil")
	}
	if logger == nil {
		panic("dice.NewRoller: logger must not be nil")
	}
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source { return r.src }

// Roll evaluates expr and logs the result.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// Chance rolls a percent-probability event and logs the outcome.
func (r *Roller) Chance(percent float64) bool {
	hit := Chance(r.src, percent)
	r.logger.Debug("dice chance",
		zap.Float64("percent", percent),
		zap.Bool("fired", hit),
	)
	return hit
}
