package scenario

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/behavior"
)

// Library indexes the ability and behavior definitions scenarios refer to.
type Library struct {
	abilities map[string]*ability.Def
	behaviors map[string]*behavior.Definition
}

// NewLibrary validates defs and indexes them by ID.
//
// Postcondition: returns an error on a nil entry, an invalid definition or a
// duplicate ID.
func NewLibrary(abilities []*ability.Def, behaviors []*behavior.Definition) (*Library, error) {
	lib := &Library{
		abilities: make(map[string]*ability.Def, len(abilities)),
		behaviors: make(map[string]*behavior.Definition, len(behaviors)),
	}
	for _, d := range abilities {
		if d == nil {
			return nil, errors.New("scenario.NewLibrary: nil ability def")
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("scenario.NewLibrary: %w", err)
		}
		if _, dup := lib.abilities[d.ID]; dup {
			return nil, fmt.Errorf("scenario.NewLibrary: duplicate ability %q", d.ID)
		}
		lib.abilities[d.ID] = d
	}
	for _, d := range behaviors {
		if d == nil {
			return nil, errors.New("scenario.NewLibrary: nil behavior def")
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("scenario.NewLibrary: %w", err)
		}
		if _, dup := lib.behaviors[d.ID]; dup {
			return nil, fmt.Errorf("scenario.NewLibrary: duplicate behavior %q", d.ID)
		}
		lib.behaviors[d.ID] = d
	}
	return lib, nil
}

// LoadLibrary reads ability definitions from abilitiesDir and behavior
// definitions from behaviorsDir.
func LoadLibrary(abilitiesDir, behaviorsDir string) (*Library, error) {
	abilities, err := ability.LoadDefs(abilitiesDir)
	if err != nil {
		return nil, fmt.Errorf("scenario.LoadLibrary: %w", err)
	}
	behaviors, err := behavior.LoadDefinitions(behaviorsDir)
	if err != nil {
		return nil, fmt.Errorf("scenario.LoadLibrary: %w", err)
	}
	return NewLibrary(abilities, behaviors)
}

// Ability returns the definition for id.
func (l *Library) Ability(id string) (*ability.Def, bool) {
	d, ok := l.abilities[id]
	return d, ok
}

// Behavior returns the definition for id.
func (l *Library) Behavior(id string) (*behavior.Definition, bool) {
	d, ok := l.behaviors[id]
	return d, ok
}

// AbilityIDs returns all ability IDs in sorted order.
func (l *Library) AbilityIDs() []string { return sortedKeys(l.abilities) }

// BehaviorIDs returns all behavior IDs in sorted order.
func (l *Library) BehaviorIDs() []string { return sortedKeys(l.behaviors) }

// Check verifies that every ability and behavior s refers to exists.
func (l *Library) Check(s *Scenario) error {
	var errs []error
	for _, e := range s.Entities {
		for _, id := range e.Abilities {
			if _, ok := l.abilities[id]; !ok {
				errs = append(errs, fmt.Errorf("entity %q: unknown ability %q", e.ID, id))
			}
		}
		if e.Behavior != "" {
			if _, ok := l.behaviors[e.Behavior]; !ok {
				errs = append(errs, fmt.Errorf("entity %q: unknown behavior %q", e.ID, e.Behavior))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scenario %q: %w", s.ID, err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
