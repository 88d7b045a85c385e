package behavior

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/observability"
)

// Context is the shared mutable key/value bag passed by pointer into every
// Tick call of one tree. It is the only channel nodes use to hand data to
// each other; nodes never reference their siblings directly.
//
// Keys are conventionally namespaced ("target.distance", "ability.cleave.reason")
// so independently authored subtrees do not collide.
//
// Context is not safe for concurrent use.
type Context struct {
	values map[string]any

	tree    string
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewContext returns an empty Context that logs nowhere.
func NewContext() *Context {
	return &Context{
		values: make(map[string]any),
		logger: zap.NewNop(),
	}
}

// Get returns the value stored at key, or nil.
func (c *Context) Get(key string) any {
	return c.values[key]
}

// Lookup returns the value stored at key and whether it exists.
func (c *Context) Lookup(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set stores value at key.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Context) Delete(key string) {
	delete(c.values, key)
}

// Len returns the number of stored keys.
func (c *Context) Len() int { return len(c.values) }

// Keys returns all keys in sorted order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the string at key, or "" when absent or of another type.
func (c *Context) String(key string) string {
	s, _ := c.values[key].(string)
	return s
}

// Float returns the numeric value at key as float64.
// Integers are widened; any other type reports ok == false.
func (c *Context) Float(key string) (float64, bool) {
	switch v := c.values[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int returns the integer at key.
func (c *Context) Int(key string) (int, bool) {
	switch v := c.values[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

// Bool returns the boolean at key; absent keys are false.
func (c *Context) Bool(key string) bool {
	b, _ := c.values[key].(bool)
	return b
}

// Snapshot returns a shallow copy of the stored values.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// guard invokes a leaf callback and converts faults into Failure.
//
// A fault is a non-nil error, a panic, or a status outside the closed enum.
// Faults are logged at Warn and counted; they never propagate to the caller.
func (c *Context) guard(node string, fn func() (Status, error)) (st Status) {
	defer func() {
		if r := recover(); r != nil {
			c.fault(node, fmt.Errorf("panic: %v", r))
			st = Failure
		}
	}()
	var err error
	st, err = fn()
	if err != nil {
		c.fault(node, err)
		return Failure
	}
	if !st.Valid() {
		c.fault(node, fmt.Errorf("callback returned invalid %s", st))
		return Failure
	}
	return st
}

func (c *Context) fault(node string, err error) {
	c.logger.Warn("behavior: leaf fault treated as failure",
		zap.String("tree", c.tree),
		zap.String("node", node),
		zap.Error(err),
	)
	c.metrics.LeafFaulted(c.tree, node)
}
