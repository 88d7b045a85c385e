// Package scenario loads battle descriptions from YAML and assembles them
// into a runnable world, agents and simulation loop.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/geom"
)

// Position is a YAML-friendly point.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Vec returns p as a geom.Vec3.
func (p Position) Vec() geom.Vec3 { return geom.Vec3{X: p.X, Y: p.Y, Z: p.Z} }

// EntityDef describes one combatant in a scenario.
type EntityDef struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Team      string   `yaml:"team"`
	Position  Position `yaml:"position"`
	Health    int      `yaml:"health"`
	Mana      int      `yaml:"mana"`
	Stamina   int      `yaml:"stamina"`
	Abilities []string `yaml:"abilities"`
	Behavior  string   `yaml:"behavior"` // empty = passive target with no tree

	// Target preselects an entity ID for this entity's abilities.
	Target string `yaml:"target"`
}

// Scenario is a battle setup.
type Scenario struct {
	ID          string        `yaml:"id"`
	Description string        `yaml:"description"`
	MaxSteps    int           `yaml:"max_steps"`     // 0 = caller decides
	Interval    time.Duration `yaml:"tick_interval"` // 0 = caller decides
	Seed        uint64        `yaml:"seed"`          // 0 = caller decides
	Entities    []EntityDef   `yaml:"entities"`
}

type yamlScenarioFile struct {
	Scenario *Scenario `yaml:"scenario"`
}

// Validate checks the scenario's internal consistency. References to
// abilities and behaviors are checked by Library.Check.
func (s *Scenario) Validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if len(s.Entities) == 0 {
		errs = append(errs, errors.New("at least one entity is required"))
	}
	if s.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps must be >= 0, got %d", s.MaxSteps))
	}
	if s.Interval < 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be >= 0, got %s", s.Interval))
	}
	ids := make(map[string]bool, len(s.Entities))
	for i, e := range s.Entities {
		label := fmt.Sprintf("entities[%d]", i)
		if e.ID == "" {
			errs = append(errs, fmt.Errorf("%s: id must not be empty", label))
		} else {
			label = fmt.Sprintf("entity %q", e.ID)
			if ids[e.ID] {
				errs = append(errs, fmt.Errorf("%s: duplicate id", label))
			}
			ids[e.ID] = true
		}
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name must not be empty", label))
		}
		if e.Team == "" {
			errs = append(errs, fmt.Errorf("%s: team must not be empty", label))
		}
		if e.Health <= 0 {
			errs = append(errs, fmt.Errorf("%s: health must be > 0, got %d", label, e.Health))
		}
		if e.Mana < 0 || e.Stamina < 0 {
			errs = append(errs, fmt.Errorf("%s: mana and stamina must be >= 0", label))
		}
		seen := make(map[string]bool, len(e.Abilities))
		for _, a := range e.Abilities {
			if seen[a] {
				errs = append(errs, fmt.Errorf("%s: ability %q listed twice", label, a))
			}
			seen[a] = true
		}
	}
	for _, e := range s.Entities {
		if e.Target == "" {
			continue
		}
		if !ids[e.Target] {
			errs = append(errs, fmt.Errorf("entity %q: unknown target %q", e.ID, e.Target))
		}
		if e.Target == e.ID {
			errs = append(errs, fmt.Errorf("entity %q: cannot target itself", e.ID))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scenario %q: %w", s.ID, err)
	}
	return nil
}

// Teams returns the distinct team names in first-appearance order.
func (s *Scenario) Teams() []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range s.Entities {
		if !seen[e.Team] {
			seen[e.Team] = true
			out = append(out, e.Team)
		}
	}
	return out
}

// Parse decodes a scenario from YAML with a top-level "scenario" key.
//
// Postcondition: returns a validated Scenario or an error.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f yamlScenarioFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("scenario.Parse: %w", err)
	}
	if f.Scenario == nil {
		return nil, errors.New("scenario.Parse: missing top-level 'scenario' key")
	}
	if err := f.Scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario.Parse: %w", err)
	}
	return f.Scenario, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario.Load: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario.Load %s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// LoadAll loads every *.yaml file in dir, sorted by ID.
//
// Postcondition: returns an error on the first invalid file or a duplicate ID.
func LoadAll(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scenario.LoadAll: %w", err)
	}
	var out []*Scenario
	ids := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		s, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if prev, ok := ids[s.ID]; ok {
			return nil, fmt.Errorf("scenario.LoadAll: duplicate scenario id %q in %s and %s", s.ID, prev, e.Name())
		}
		ids[s.ID] = e.Name()
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
