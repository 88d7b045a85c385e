package behavior

// ActionFunc performs a side effect and reports its progress.
//
// Returning an error is a callback fault: the node reports Failure and the
// error is logged.
type ActionFunc func(ctx *Context) (Status, error)

// Predicate is a side-effect-free test over the context.
type Predicate func(ctx *Context) (bool, error)

// Action is a leaf that wraps an ActionFunc. It is the only place
// domain side effects happen.
type Action struct {
	name string
	fn   ActionFunc
}

// NewAction returns an Action leaf.
//
// Precondition: fn must not be nil.
func NewAction(name string, fn ActionFunc) *Action {
	if fn == nil {
		panic("behavior.NewAction: fn must not be nil")
	}
	return &Action{name: name, fn: fn}
}

// Name returns the diagnostic label.
func (a *Action) Name() string { return a.name }

// Tick invokes the wrapped function with ctx and returns its status.
// There is no timeout; an action that never returns is a caller bug.
func (a *Action) Tick(ctx *Context) Status {
	return ctx.guard(a.name, func() (Status, error) { return a.fn(ctx) })
}

// Reset is a no-op; leaves hold no cursor.
func (a *Action) Reset() {}

// Condition is a leaf that maps a predicate to Success or Failure.
// It never returns Running.
type Condition struct {
	name string
	fn   Predicate
}

// NewCondition returns a Condition leaf.
//
// Precondition: fn must not be nil.
func NewCondition(name string, fn Predicate) *Condition {
	if fn == nil {
		panic("behavior.NewCondition: fn must not be nil")
	}
	return &Condition{name: name, fn: fn}
}

// Name returns the diagnostic label.
func (c *Condition) Name() string { return c.name }

// Tick evaluates the predicate: true -> Success, false -> Failure.
func (c *Condition) Tick(ctx *Context) Status {
	return ctx.guard(c.name, func() (Status, error) {
		ok, err := c.fn(ctx)
		if err != nil {
			return Failure, err
		}
		if ok {
			return Success, nil
		}
		return Failure, nil
	})
}

// Reset is a no-op; leaves hold no cursor.
func (c *Condition) Reset() {}

// Returns returns an ActionFunc that always reports s.
func Returns(s Status) ActionFunc {
	return func(*Context) (Status, error) { return s, nil }
}

// Always returns a Predicate that always reports v.
func Always(v bool) Predicate {
	return func(*Context) (bool, error) { return v, nil }
}
