package ability

import "fmt"

// Cost is the resource price of one ability use.
//
// Invariant: Mana >= 0 and Stamina >= 0.
type Cost struct {
	Mana    int
	Stamina int
}

// Resources holds a character's health, mana and stamina pools.
// It is not safe for concurrent use; the caller must serialise access.
//
// Invariant: 0 <= current <= max for every pool.
type Resources struct {
	health, maxHealth   int
	mana, maxMana       int
	stamina, maxStamina int
}

// NewResources returns full pools with the given maxima.
//
// Precondition: all maxima >= 0.
func NewResources(maxHealth, maxMana, maxStamina int) *Resources {
	if maxHealth < 0 || maxMana < 0 || maxStamina < 0 {
		panic(fmt.Sprintf("ability.NewResources: maxima must be >= 0, got %d/%d/%d", maxHealth, maxMana, maxStamina))
	}
	return &Resources{
		health: maxHealth, maxHealth: maxHealth,
		mana: maxMana, maxMana: maxMana,
		stamina: maxStamina, maxStamina: maxStamina,
	}
}

// Health returns the current health.
func (r *Resources) Health() int { return r.health }

// MaxHealth returns the health cap.
func (r *Resources) MaxHealth() int { return r.maxHealth }

// Mana returns the current mana.
func (r *Resources) Mana() int { return r.mana }

// MaxMana returns the mana cap.
func (r *Resources) MaxMana() int { return r.maxMana }

// Stamina returns the current stamina.
func (r *Resources) Stamina() int { return r.stamina }

// MaxStamina returns the stamina cap.
func (r *Resources) MaxStamina() int { return r.maxStamina }

// HealthFraction returns health/maxHealth, or 0 when maxHealth is 0.
func (r *Resources) HealthFraction() float64 {
	if r.maxHealth == 0 {
		return 0
	}
	return float64(r.health) / float64(r.maxHealth)
}

// Afford reports the first pool that cannot cover c: "mana", "stamina", or
// "" when c is affordable. Mana is checked before stamina.
func (r *Resources) Afford(c Cost) string {
	if r.mana < c.Mana {
		return "mana"
	}
	if r.stamina < c.Stamina {
		return "stamina"
	}
	return ""
}

// Spend deducts c from mana and stamina together.
//
// Postcondition: on error nothing was deducted.
func (r *Resources) Spend(c Cost) error {
	if c.Mana < 0 || c.Stamina < 0 {
		return fmt.Errorf("ability.Resources.Spend: negative cost %+v", c)
	}
	if short := r.Afford(c); short != "" {
		return fmt.Errorf("ability.Resources.Spend: not enough %s", short)
	}
	r.mana -= c.Mana
	r.stamina -= c.Stamina
	return nil
}

// Damage lowers health by amount, floored at 0, and returns the amount removed.
func (r *Resources) Damage(amount int) int {
	if amount <= 0 {
		return 0
	}
	if amount > r.health {
		amount = r.health
	}
	r.health -= amount
	return amount
}

// Heal raises health by amount, capped at maxHealth, and returns the amount restored.
func (r *Resources) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	if room := r.maxHealth - r.health; amount > room {
		amount = room
	}
	r.health += amount
	return amount
}

// Restore raises mana and stamina by the given amounts, capped at their maxima.
func (r *Resources) Restore(mana, stamina int) {
	r.mana = clamp(r.mana+mana, 0, r.maxMana)
	r.stamina = clamp(r.stamina+stamina, 0, r.maxStamina)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
