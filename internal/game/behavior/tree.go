package behavior

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/observability"
)

// Tree owns a root node and the Context shared by every node beneath it.
//
// Invariant: every node is reachable from root exactly once.
type Tree struct {
	name   string
	root   Node
	ctx    *Context
	logger *zap.Logger
	ticks  uint64
	last   Status
}

// NewTree binds root to a fresh Context.
//
// Precondition: root must not be nil.
// Postcondition: returns error if any node instance is reachable twice.
func NewTree(name string, root Node, logger *zap.Logger) (*Tree, error) {
	if root == nil {
		return nil, errors.New("behavior.NewTree: root must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := checkSingleOwner(root); err != nil {
		return nil, fmt.Errorf("behavior.NewTree %q: %w", name, err)
	}
	ctx := NewContext()
	ctx.tree = name
	ctx.logger = logger
	return &Tree{name: name, root: root, ctx: ctx, logger: logger}, nil
}

// SetMetrics attaches m for tick and fault counters. A nil m disables them.
func (t *Tree) SetMetrics(m *observability.Metrics) {
	t.ctx.metrics = m
}

// Name returns the tree label.
func (t *Tree) Name() string { return t.name }

// Root returns the root node.
func (t *Tree) Root() Node { return t.root }

// Context returns the shared key/value bag.
func (t *Tree) Context() *Context { return t.ctx }

// Ticks returns the number of completed Tick calls.
func (t *Tree) Ticks() uint64 { return t.ticks }

// Last returns the status of the most recent Tick, or 0 before the first.
func (t *Tree) Last() Status { return t.last }

// Tick advances evaluation by exactly one step.
//
// Postcondition: the returned status is Valid.
func (t *Tree) Tick() Status {
	st := t.root.Tick(t.ctx)
	if !st.Valid() {
		t.logger.Warn("behavior: root returned invalid status",
			zap.String("tree", t.name),
			zap.Stringer("status", st),
		)
		st = Failure
	}
	t.ticks++
	t.last = st
	t.ctx.metrics.TreeTicked(t.name, st.String())
	return st
}

// Reset rewinds every cursor in the tree. Context values are kept.
func (t *Tree) Reset() {
	t.root.Reset()
	t.logger.Debug("behavior: tree reset", zap.String("tree", t.name))
}

func checkSingleOwner(root Node) error {
	seen := make(map[Node]struct{})
	var err error
	Walk(root, func(n Node, _ int) bool {
		if n == nil {
			err = errors.New("nil node in tree")
			return false
		}
		if _, dup := seen[n]; dup {
			err = fmt.Errorf("node %q is reachable more than once", n.Name())
			return false
		}
		seen[n] = struct{}{}
		return true
	})
	return err
}
