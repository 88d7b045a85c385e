package behavior

import (
	"fmt"
	"sort"
)

// ActionFactory builds an ActionFunc from the args of one YAML leaf.
type ActionFactory func(args map[string]string) (ActionFunc, error)

// ConditionFactory builds a Predicate from the args of one YAML leaf.
type ConditionFactory func(args map[string]string) (Predicate, error)

// LeafRegistry maps leaf names used in behavior definitions to factories.
//
// Invariant: each name is registered at most once per kind.
type LeafRegistry struct {
	actions    map[string]ActionFactory
	conditions map[string]ConditionFactory
}

// NewLeafRegistry returns an empty LeafRegistry.
func NewLeafRegistry() *LeafRegistry {
	return &LeafRegistry{
		actions:    make(map[string]ActionFactory),
		conditions: make(map[string]ConditionFactory),
	}
}

// RegisterAction stores f under name.
//
// Precondition: f must not be nil.
// Postcondition: returns error on name collision.
func (r *LeafRegistry) RegisterAction(name string, f ActionFactory) error {
	if f == nil {
		panic("behavior.LeafRegistry.RegisterAction: factory must not be nil")
	}
	if _, exists := r.actions[name]; exists {
		return fmt.Errorf("behavior.LeafRegistry: action %q already registered", name)
	}
	r.actions[name] = f
	return nil
}

// RegisterCondition stores f under name.
//
// Precondition: f must not be nil.
// Postcondition: returns error on name collision.
func (r *LeafRegistry) RegisterCondition(name string, f ConditionFactory) error {
	if f == nil {
		panic("behavior.LeafRegistry.RegisterCondition: factory must not be nil")
	}
	if _, exists := r.conditions[name]; exists {
		return fmt.Errorf("behavior.LeafRegistry: condition %q already registered", name)
	}
	r.conditions[name] = f
	return nil
}

// Action returns the factory registered under name.
func (r *LeafRegistry) Action(name string) (ActionFactory, bool) {
	f, ok := r.actions[name]
	return f, ok
}

// Condition returns the factory registered under name.
func (r *LeafRegistry) Condition(name string) (ConditionFactory, bool) {
	f, ok := r.conditions[name]
	return f, ok
}

// ActionNames returns the registered action names, sorted.
func (r *LeafRegistry) ActionNames() []string { return sortedKeys(r.actions) }

// ConditionNames returns the registered condition names, sorted.
func (r *LeafRegistry) ConditionNames() []string { return sortedKeys(r.conditions) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
