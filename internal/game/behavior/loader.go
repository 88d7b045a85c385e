package behavior

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node type names accepted in behavior definitions.
const (
	TypeSequence  = "sequence"
	TypeSelector  = "selector"
	TypeInverter  = "inverter"
	TypeRepeater  = "repeater"
	TypeAction    = "action"
	TypeCondition = "condition"
)

// NodeDef is the YAML form of one node.
//
// Precondition: leaves set exactly one of Ref or Script.
type NodeDef struct {
	Type       string            `yaml:"type"`
	Name       string            `yaml:"name"`
	Children   []*NodeDef        `yaml:"children"`
	MaxRepeats int               `yaml:"max_repeats"` // repeater only; 0 = forever
	Ref        string            `yaml:"ref"`         // leaf name in a LeafRegistry
	Script     string            `yaml:"script"`      // Lua hook name
	Args       map[string]string `yaml:"args"`
}

// Definition is a named behavior tree loaded from content.
type Definition struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Scope       string   `yaml:"scope"` // script scope for Lua leaves; empty = global
	Root        *NodeDef `yaml:"root"`
}

// Validate checks node types, arity and leaf bindings.
//
// Postcondition: nil return guarantees a non-empty ID and a structurally valid root.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return errors.New("behavior.Definition: ID must not be empty")
	}
	if d.Root == nil {
		return fmt.Errorf("behavior.Definition %q: root must not be nil", d.ID)
	}
	return d.Root.validate(d.ID, "root")
}

func (n *NodeDef) validate(defID, path string) error {
	if n == nil {
		return fmt.Errorf("behavior.Definition %q at %s: node must not be nil", defID, path)
	}
	if n.Name != "" {
		path = path + "/" + n.Name
	}
	switch n.Type {
	case TypeSequence, TypeSelector:
		if n.Ref != "" || n.Script != "" {
			return fmt.Errorf("behavior.Definition %q at %s: %s must not bind a leaf", defID, path, n.Type)
		}
	case TypeInverter, TypeRepeater:
		if len(n.Children) != 1 {
			return fmt.Errorf("behavior.Definition %q at %s: %s requires exactly one child, got %d", defID, path, n.Type, len(n.Children))
		}
		if n.MaxRepeats < 0 {
			return fmt.Errorf("behavior.Definition %q at %s: max_repeats must be >= 0, got %d", defID, path, n.MaxRepeats)
		}
	case TypeAction, TypeCondition:
		if len(n.Children) != 0 {
			return fmt.Errorf("behavior.Definition %q at %s: %s must not have children", defID, path, n.Type)
		}
		if (n.Ref == "") == (n.Script == "") {
			return fmt.Errorf("behavior.Definition %q at %s: %s requires exactly one of ref or script", defID, path, n.Type)
		}
	default:
		return fmt.Errorf("behavior.Definition %q at %s: unknown node type %q", defID, path, n.Type)
	}
	if n.MaxRepeats != 0 && n.Type != TypeRepeater {
		return fmt.Errorf("behavior.Definition %q at %s: max_repeats is only valid on repeater", defID, path)
	}
	for i, c := range n.Children {
		if err := c.validate(defID, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// yamlBehaviorFile wraps the YAML top-level key.
type yamlBehaviorFile struct {
	Behavior *Definition `yaml:"behavior"`
}

// ParseDefinition decodes one behavior document.
//
// Postcondition: returns error on unknown fields, a missing top-level key or
// a failed Validate.
func ParseDefinition(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f yamlBehaviorFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("behavior.ParseDefinition: %w", err)
	}
	if f.Behavior == nil {
		return nil, errors.New("behavior.ParseDefinition: missing top-level 'behavior' key")
	}
	if err := f.Behavior.Validate(); err != nil {
		return nil, err
	}
	return f.Behavior, nil
}

// LoadDefinitions reads all *.yaml files from dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any file fails to parse or validate, or if
// two files share an ID. Results are sorted by ID.
func LoadDefinitions(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("behavior.LoadDefinitions: reading %q: %w", dir, err)
	}
	var defs []*Definition
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("behavior.LoadDefinitions: reading %s: %w", e.Name(), err)
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("behavior.LoadDefinitions: %s: %w", e.Name(), err)
		}
		if prev, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("behavior.LoadDefinitions: duplicate behavior ID %q in %s and %s", def.ID, prev, e.Name())
		}
		seen[def.ID] = e.Name()
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// Build instantiates a fresh node hierarchy from def. Every call returns new
// node instances, so one definition can back any number of trees.
//
// Precondition: reg must not be nil. scripts may be nil when def has no
// script leaves.
// Postcondition: returns error on an invalid definition, an unregistered
// leaf, a failing factory, or a script leaf without scripts.
func Build(def *Definition, reg *LeafRegistry, scripts ScriptCaller) (Node, error) {
	if def == nil {
		return nil, errors.New("behavior.Build: def must not be nil")
	}
	if reg == nil {
		panic("behavior.Build: reg must not be nil")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("behavior.Build: %w", err)
	}
	b := builder{def: def, reg: reg, scripts: scripts}
	return b.build(def.Root)
}

type builder struct {
	def     *Definition
	reg     *LeafRegistry
	scripts ScriptCaller
}

func (b *builder) build(n *NodeDef) (Node, error) {
	name := n.Name
	if name == "" {
		name = n.label()
	}
	switch n.Type {
	case TypeSequence, TypeSelector:
		children := make([]Node, 0, len(n.Children))
		for _, c := range n.Children {
			child, err := b.build(c)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if n.Type == TypeSequence {
			return NewSequence(name, children...), nil
		}
		return NewSelector(name, children...), nil
	case TypeInverter:
		child, err := b.build(n.Children[0])
		if err != nil {
			return nil, err
		}
		return NewInverter(name, child), nil
	case TypeRepeater:
		child, err := b.build(n.Children[0])
		if err != nil {
			return nil, err
		}
		return NewRepeater(name, child, n.MaxRepeats), nil
	case TypeAction:
		if n.Script != "" {
			if b.scripts == nil {
				return nil, fmt.Errorf("behavior.Build %q: script action %q requires a script caller", b.def.ID, n.Script)
			}
			return NewAction(name, ScriptAction(b.scripts, b.def.Scope, n.Script, n.Args)), nil
		}
		f, ok := b.reg.Action(n.Ref)
		if !ok {
			return nil, fmt.Errorf("behavior.Build %q: unknown action %q", b.def.ID, n.Ref)
		}
		fn, err := f(n.Args)
		if err != nil {
			return nil, fmt.Errorf("behavior.Build %q: action %q: %w", b.def.ID, n.Ref, err)
		}
		return NewAction(name, fn), nil
	case TypeCondition:
		if n.Script != "" {
			if b.scripts == nil {
				return nil, fmt.Errorf("behavior.Build %q: script condition %q requires a script caller", b.def.ID, n.Script)
			}
			return NewCondition(name, ScriptCondition(b.scripts, b.def.Scope, n.Script, n.Args)), nil
		}
		f, ok := b.reg.Condition(n.Ref)
		if !ok {
			return nil, fmt.Errorf("behavior.Build %q: unknown condition %q", b.def.ID, n.Ref)
		}
		fn, err := f(n.Args)
		if err != nil {
			return nil, fmt.Errorf("behavior.Build %q: condition %q: %w", b.def.ID, n.Ref, err)
		}
		return NewCondition(name, fn), nil
	}
	return nil, fmt.Errorf("behavior.Build %q: unknown node type %q", b.def.ID, n.Type)
}

func (n *NodeDef) label() string {
	switch {
	case n.Ref != "":
		return n.Ref
	case n.Script != "":
		return "lua:" + n.Script
	}
	return n.Type
}
