package behavior

import "fmt"

// Node is one unit of evaluation in a behavior tree.
type Node interface {
	// Name returns a diagnostic label. It carries no semantics.
	Name() string
	// Tick advances the node by one step.
	Tick(ctx *Context) Status
	// Reset rewinds any persisted cursor in the node and its descendants.
	Reset()
}

// Parent is implemented by nodes that own children.
type Parent interface {
	Node
	Children() []Node
}

// RepeatForever makes a Repeater loop until its child fails or runs.
const RepeatForever = 0

// Sequence is an ordered AND over its children.
//
// Invariant: cursor == 0 whenever the last Tick returned a terminal status.
type Sequence struct {
	name     string
	children []Node
	cursor   int
}

// NewSequence returns a Sequence over children. An empty Sequence succeeds.
//
// Precondition: no child may be nil.
func NewSequence(name string, children ...Node) *Sequence {
	mustChildren("behavior.NewSequence", children)
	return &Sequence{name: name, children: children}
}

// Name returns the diagnostic label.
func (s *Sequence) Name() string { return s.name }

// Children returns the ordered child list.
func (s *Sequence) Children() []Node { return s.children }

// Cursor returns the index of the child that will be ticked next.
func (s *Sequence) Cursor() int { return s.cursor }

// Tick resumes at the cursor. A Success advances to the next child within
// the same call; Running holds the cursor; Failure rewinds and short-circuits.
func (s *Sequence) Tick(ctx *Context) Status {
	for s.cursor < len(s.children) {
		switch s.children[s.cursor].Tick(ctx) {
		case Running:
			return Running
		case Failure:
			s.cursor = 0
			return Failure
		}
		s.cursor++
	}
	s.cursor = 0
	return Success
}

// Reset rewinds the cursor and every descendant.
func (s *Sequence) Reset() {
	s.cursor = 0
	resetAll(s.children)
}

// Selector is an ordered OR over its children.
//
// Invariant: cursor == 0 whenever the last Tick returned a terminal status.
type Selector struct {
	name     string
	children []Node
	cursor   int
}

// NewSelector returns a Selector over children. An empty Selector fails.
//
// Precondition: no child may be nil.
func NewSelector(name string, children ...Node) *Selector {
	mustChildren("behavior.NewSelector", children)
	return &Selector{name: name, children: children}
}

// Name returns the diagnostic label.
func (s *Selector) Name() string { return s.name }

// Children returns the ordered child list.
func (s *Selector) Children() []Node { return s.children }

// Cursor returns the index of the child that will be ticked next.
func (s *Selector) Cursor() int { return s.cursor }

// Tick resumes at the cursor. A Failure advances to the next child within
// the same call; Running holds the cursor; Success rewinds and short-circuits.
func (s *Selector) Tick(ctx *Context) Status {
	for s.cursor < len(s.children) {
		switch s.children[s.cursor].Tick(ctx) {
		case Running:
			return Running
		case Success:
			s.cursor = 0
			return Success
		}
		s.cursor++
	}
	s.cursor = 0
	return Failure
}

// Reset rewinds the cursor and every descendant.
func (s *Selector) Reset() {
	s.cursor = 0
	resetAll(s.children)
}

// Inverter swaps Success and Failure; Running passes through.
type Inverter struct {
	name  string
	child Node
}

// NewInverter wraps child.
//
// Precondition: child must not be nil.
func NewInverter(name string, child Node) *Inverter {
	if child == nil {
		panic("behavior.NewInverter: child must not be nil")
	}
	return &Inverter{name: name, child: child}
}

// Name returns the diagnostic label.
func (i *Inverter) Name() string { return i.name }

// Children returns the single wrapped child.
func (i *Inverter) Children() []Node { return []Node{i.child} }

// Tick ticks the child once and negates a terminal result.
func (i *Inverter) Tick(ctx *Context) Status {
	switch i.child.Tick(ctx) {
	case Success:
		return Failure
	case Failure:
		return Success
	default:
		return Running
	}
}

// Reset resets the child.
func (i *Inverter) Reset() { i.child.Reset() }

// Repeater re-ticks its child until it has succeeded maxRepeats times.
//
// With RepeatForever the loop only ends when the child fails or runs; a child
// that always succeeds synchronously will spin forever, so such children must
// eventually report Running or Failure.
//
// Invariant: count == 0 whenever the last Tick returned a terminal status.
type Repeater struct {
	name       string
	child      Node
	maxRepeats int
	count      int
}

// NewRepeater wraps child.
//
// Precondition: child must not be nil; maxRepeats >= 0 (RepeatForever is 0).
func NewRepeater(name string, child Node, maxRepeats int) *Repeater {
	if child == nil {
		panic("behavior.NewRepeater: child must not be nil")
	}
	if maxRepeats < 0 {
		panic(fmt.Sprintf("behavior.NewRepeater: maxRepeats must be >= 0, got %d", maxRepeats))
	}
	return &Repeater{name: name, child: child, maxRepeats: maxRepeats}
}

// Name returns the diagnostic label.
func (r *Repeater) Name() string { return r.name }

// Children returns the single wrapped child.
func (r *Repeater) Children() []Node { return []Node{r.child} }

// Count returns the number of successful repetitions in the current run.
func (r *Repeater) Count() int { return r.count }

// MaxRepeats returns the configured bound (RepeatForever for unbounded).
func (r *Repeater) MaxRepeats() int { return r.maxRepeats }

// Tick loops within one call while the child succeeds. Running returns
// without counting; Failure rewinds and fails.
func (r *Repeater) Tick(ctx *Context) Status {
	for {
		switch r.child.Tick(ctx) {
		case Running:
			return Running
		case Failure:
			r.count = 0
			return Failure
		}
		r.count++
		if r.maxRepeats != RepeatForever && r.count >= r.maxRepeats {
			r.count = 0
			return Success
		}
	}
}

// Reset rewinds the repeat counter and the child.
func (r *Repeater) Reset() {
	r.count = 0
	r.child.Reset()
}

func mustChildren(op string, children []Node) {
	for i, c := range children {
		if c == nil {
			panic(fmt.Sprintf("%s: child %d must not be nil", op, i))
		}
	}
}

func resetAll(nodes []Node) {
	for _, n := range nodes {
		n.Reset()
	}
}

// Walk visits root and every descendant depth-first, pre-order.
// Returning false from fn stops the walk.
func Walk(root Node, fn func(n Node, depth int) bool) {
	walk(root, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) bool {
	if !fn(n, depth) {
		return false
	}
	if p, ok := n.(Parent); ok {
		for _, c := range p.Children() {
			if !walk(c, depth+1, fn) {
				return false
			}
		}
	}
	return true
}
