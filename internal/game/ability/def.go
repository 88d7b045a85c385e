// Package ability implements the per-character ability state machine:
// cooldown, resource and target gating, atomic cost deduction, and a
// cancellable executing phase advanced by the simulation driver.
package ability

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Archetype selects how an ability behaves while it is executing.
type Archetype string

const (
	// Instant resolves on the first poll.
	Instant Archetype = "instant"
	// Melee resolves on the first poll if the target is still within range.
	Melee Archetype = "melee"
	// Charge moves the caster toward the target until within StopDistance.
	Charge Archetype = "charge"
	// Channel deals damage every TickInterval until MaxDuration elapses.
	Channel Archetype = "channel"
	// Buff applies a named effect to the caster for BuffDuration.
	Buff Archetype = "buff"
)

// Targeting selects what an ability is aimed at.
type Targeting string

const (
	TargetEnemy Targeting = "enemy"
	TargetSelf  Targeting = "self"
)

// Default busy reasons reported while an execution is in flight.
const (
	ReasonAlreadyActive   = "Already active"
	ReasonAlreadyCharging = "Already charging"
)

// Def is the static description of one ability.
//
// Precondition: Validate must return nil before Def is used by an Executor.
type Def struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	Archetype    Archetype     `yaml:"archetype"`
	Targeting    Targeting     `yaml:"targeting"`
	ManaCost     int           `yaml:"mana_cost"`
	StaminaCost  int           `yaml:"stamina_cost"`
	Cooldown     time.Duration `yaml:"cooldown"`
	Range        float64       `yaml:"range"` // meters; 0 = unlimited
	MaxDuration  time.Duration `yaml:"max_duration"`
	StopDistance float64       `yaml:"stop_distance"` // charge only
	Speed        float64       `yaml:"speed"`         // meters per second, charge only
	Damage       string        `yaml:"damage"`        // dice expression or flat integer
	DamageType   string        `yaml:"damage_type"`
	TickInterval time.Duration `yaml:"tick_interval"` // channel only
	StunChance   float64       `yaml:"stun_chance"`   // percent, 0-100
	StunDuration time.Duration `yaml:"stun_duration"`
	BuffName     string        `yaml:"buff_name"`
	BuffDuration time.Duration `yaml:"buff_duration"`
	BusyReason   string        `yaml:"busy_reason"`
	OnHit        string        `yaml:"on_hit"` // script hook invoked after each hit

	damage dice.Expression
}

// Cost returns the resource price of one use.
func (d *Def) Cost() Cost {
	return Cost{Mana: d.ManaCost, Stamina: d.StaminaCost}
}

// DamageExpr returns the parsed damage expression. Valid after Validate.
func (d *Def) DamageExpr() dice.Expression { return d.damage }

// ApplyDefaults fills optional fields left empty.
//
// Postcondition: Targeting, BusyReason, DamageType and Name are non-empty.
func (d *Def) ApplyDefaults() {
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.Targeting == "" {
		d.Targeting = TargetEnemy
		if d.Archetype == Buff {
			d.Targeting = TargetSelf
		}
	}
	if d.BusyReason == "" {
		d.BusyReason = ReasonAlreadyActive
		if d.Archetype == Charge {
			d.BusyReason = ReasonAlreadyCharging
		}
	}
	if d.DamageType == "" {
		d.DamageType = "physical"
	}
}

// Validate applies defaults and checks every field.
//
// Postcondition: nil return guarantees a known archetype, non-negative costs,
// cooldown, range and durations, a parsed damage expression, and the
// archetype-specific fields each archetype needs.
func (d *Def) Validate() error {
	if d.ID == "" {
		return errors.New("ability.Def: ID must not be empty")
	}
	d.ApplyDefaults()
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("ability.Def %q: "+format, append([]any{d.ID}, args...)...))
	}
	switch d.Archetype {
	case Instant, Melee, Charge, Channel, Buff:
	default:
		add("unknown archetype %q", d.Archetype)
	}
	switch d.Targeting {
	case TargetEnemy, TargetSelf:
	default:
		add("unknown targeting %q", d.Targeting)
	}
	if d.ManaCost < 0 || d.StaminaCost < 0 {
		add("costs must be >= 0, got mana=%d stamina=%d", d.ManaCost, d.StaminaCost)
	}
	if d.Cooldown < 0 {
		add("cooldown must be >= 0, got %s", d.Cooldown)
	}
	if d.Range < 0 || d.StopDistance < 0 || d.Speed < 0 {
		add("range, stop_distance and speed must be >= 0")
	}
	if d.MaxDuration < 0 || d.TickInterval < 0 || d.StunDuration < 0 || d.BuffDuration < 0 {
		add("durations must be >= 0")
	}
	if d.StunChance < 0 || d.StunChance > 100 {
		add("stun_chance must be within 0-100, got %g", d.StunChance)
	}
	if d.StunChance > 0 && d.StunDuration == 0 {
		add("stun_chance requires stun_duration")
	}
	d.damage = dice.Expression{Raw: "0"}
	if d.Damage != "" {
		expr, err := dice.Parse(d.Damage)
		if err != nil {
			add("damage: %w", err)
		} else {
			d.damage = expr
		}
	}
	switch d.Archetype {
	case Charge:
		if d.Speed <= 0 || d.StopDistance <= 0 {
			add("charge requires speed > 0 and stop_distance > 0")
		}
		if d.MaxDuration <= 0 {
			add("charge requires max_duration > 0")
		}
	case Channel:
		if d.TickInterval <= 0 || d.MaxDuration <= 0 {
			add("channel requires tick_interval > 0 and max_duration > 0")
		}
	case Buff:
		if d.BuffName == "" || d.BuffDuration <= 0 {
			add("buff requires buff_name and buff_duration > 0")
		}
	}
	if (d.Archetype == Buff) != (d.Targeting == TargetSelf) {
		add("targeting %q is not valid for archetype %q", d.Targeting, d.Archetype)
	}
	return errors.Join(errs...)
}

// yamlAbilityFile wraps the YAML top-level key.
type yamlAbilityFile struct {
	Ability *Def `yaml:"ability"`
}

// ParseDef decodes and validates one ability document.
func ParseDef(data []byte) (*Def, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f yamlAbilityFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("ability.ParseDef: %w", err)
	}
	if f.Ability == nil {
		return nil, errors.New("ability.ParseDef: missing top-level 'ability' key")
	}
	if err := f.Ability.Validate(); err != nil {
		return nil, err
	}
	return f.Ability, nil
}

// LoadDefs reads all *.yaml files from dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any file fails to parse or validate, or on
// a duplicate ID. Results are sorted by ID.
func LoadDefs(dir string) ([]*Def, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ability.LoadDefs: reading %q: %w", dir, err)
	}
	var defs []*Def
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ability.LoadDefs: reading %s: %w", e.Name(), err)
		}
		def, err := ParseDef(data)
		if err != nil {
			return nil, fmt.Errorf("ability.LoadDefs: %s: %w", e.Name(), err)
		}
		if prev, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("ability.LoadDefs: duplicate ability ID %q in %s and %s", def.ID, prev, e.Name())
		}
		seen[def.ID] = e.Name()
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}
