package behavior_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/behavior"
)

const brawlerYAML = `
behavior:
  id: brawler
  description: attack when possible, otherwise idle
  root:
    type: selector
    name: root
    children:
      - type: sequence
        name: attack
        children:
          - type: condition
            ref: has_target
          - type: action
            ref: swing
            args:
              ability: cleave
      - type: inverter
        children:
          - type: action
            ref: swing
`

func testRegistry(t *testing.T) (*behavior.LeafRegistry, *[]string) {
	t.Helper()
	var calls []string
	reg := behavior.NewLeafRegistry()
	require.NoError(t, reg.RegisterCondition("has_target", func(map[string]string) (behavior.Predicate, error) {
		return func(ctx *behavior.Context) (bool, error) { return ctx.Has("target.id"), nil }, nil
	}))
	require.NoError(t, reg.RegisterAction("swing", func(args map[string]string) (behavior.ActionFunc, error) {
		ability := args["ability"]
		if ability == "" {
			ability = "punch"
		}
		return func(*behavior.Context) (behavior.Status, error) {
			calls = append(calls, ability)
			return behavior.Success, nil
		}, nil
	}))
	return reg, &calls
}

func TestLeafRegistry_DuplicateNames(t *testing.T) {
	reg, _ := testRegistry(t)
	err := reg.RegisterAction("swing", func(map[string]string) (behavior.ActionFunc, error) { return nil, nil })
	require.Error(t, err)
	assert.Equal(t, []string{"swing"}, reg.ActionNames())
	assert.Equal(t, []string{"has_target"}, reg.ConditionNames())
}

func TestParseDefinition_Valid(t *testing.T) {
	def, err := behavior.ParseDefinition([]byte(brawlerYAML))
	require.NoError(t, err)
	assert.Equal(t, "brawler", def.ID)
	assert.Equal(t, behavior.TypeSelector, def.Root.Type)
	require.Len(t, def.Root.Children, 2)
	assert.Equal(t, "cleave", def.Root.Children[0].Children[1].Args["ability"])
}

func TestParseDefinition_RejectsUnknownField(t *testing.T) {
	_, err := behavior.ParseDefinition([]byte("behavior:\n  id: x\n  colour: red\n  root: {type: action, ref: a}\n"))
	require.Error(t, err)
}

func TestParseDefinition_MissingKey(t *testing.T) {
	_, err := behavior.ParseDefinition([]byte("id: x\n"))
	require.Error(t, err)
}

func TestDefinition_Validate(t *testing.T) {
	leaf := func() *behavior.NodeDef { return &behavior.NodeDef{Type: behavior.TypeAction, Ref: "a"} }
	cases := map[string]*behavior.Definition{
		"empty id":       {Root: leaf()},
		"nil root":       {ID: "x"},
		"unknown type":   {ID: "x", Root: &behavior.NodeDef{Type: "parallel"}},
		"inverter arity": {ID: "x", Root: &behavior.NodeDef{Type: behavior.TypeInverter}},
		"repeater negative": {ID: "x", Root: &behavior.NodeDef{
			Type: behavior.TypeRepeater, MaxRepeats: -1, Children: []*behavior.NodeDef{leaf()},
		}},
		"leaf with children": {ID: "x", Root: &behavior.NodeDef{
			Type: behavior.TypeAction, Ref: "a", Children: []*behavior.NodeDef{leaf()},
		}},
		"leaf unbound":            {ID: "x", Root: &behavior.NodeDef{Type: behavior.TypeCondition}},
		"leaf both bound":         {ID: "x", Root: &behavior.NodeDef{Type: behavior.TypeCondition, Ref: "a", Script: "b"}},
		"max_repeats on sequence": {ID: "x", Root: &behavior.NodeDef{Type: behavior.TypeSequence, MaxRepeats: 2}},
		"nested invalid": {ID: "x", Root: &behavior.NodeDef{
			Type: behavior.TypeSequence, Children: []*behavior.NodeDef{{Type: behavior.TypeSelector, Ref: "x"}},
		}},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, def.Validate())
		})
	}
}

func TestBuild_ProducesWorkingTree(t *testing.T) {
	reg, calls := testRegistry(t)
	def, err := behavior.ParseDefinition([]byte(brawlerYAML))
	require.NoError(t, err)

	root, err := behavior.Build(def, reg, nil)
	require.NoError(t, err)
	tree, err := behavior.NewTree(def.ID, root, nil)
	require.NoError(t, err)

	// No target: the attack sequence fails, the inverted swing fails too.
	assert.Equal(t, behavior.Failure, tree.Tick())
	assert.Equal(t, []string{"punch"}, *calls)

	tree.Context().Set("target.id", "g1")
	assert.Equal(t, behavior.Success, tree.Tick())
	assert.Equal(t, []string{"punch", "cleave"}, *calls)
}

func TestBuild_FreshInstancesPerCall(t *testing.T) {
	reg, _ := testRegistry(t)
	def, err := behavior.ParseDefinition([]byte(brawlerYAML))
	require.NoError(t, err)
	a, err := behavior.Build(def, reg, nil)
	require.NoError(t, err)
	b, err := behavior.Build(def, reg, nil)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestBuild_Errors(t *testing.T) {
	reg, _ := testRegistry(t)
	require.NoError(t, reg.RegisterAction("broken", func(map[string]string) (behavior.ActionFunc, error) {
		return nil, errors.New("bad args")
	}))
	cases := map[string]*behavior.Definition{
		"unknown action":        {ID: "x", Root: &behavior.NodeDef{Type: behavior.TypeAction, Ref: "nope"}},
		"unknown condition":     {ID: "x", Root: &behavior.NodeDef{Type: behavior.TypeCondition, Ref: "nope"}},
		"factory error":         {ID: "x", Root: &behavior.NodeDef{Type: behavior.TypeAction, Ref: "broken"}},
		"script without caller": {ID: "x", Root: &behavior.NodeDef{Type: behavior.TypeAction, Script: "hook"}},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := behavior.Build(def, reg, nil)
			require.Error(t, err)
		})
	}
	_, err := behavior.Build(nil, reg, nil)
	require.Error(t, err)
}

func TestLoadDefinitions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brawler.yaml"), []byte(brawlerYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alpha.yaml"),
		[]byte("behavior:\n  id: alpha\n  root: {type: action, ref: idle}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	defs, err := behavior.LoadDefinitions(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].ID)
	assert.Equal(t, "brawler", defs[1].ID)
}

func TestLoadDefinitions_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(brawlerYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(brawlerYAML), 0o644))
	_, err := behavior.LoadDefinitions(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadDefinitions_MissingDir(t *testing.T) {
	_, err := behavior.LoadDefinitions(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
