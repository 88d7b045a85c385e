package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// GlobalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no scope VM is found.
const GlobalScope = "__global__"

// EntityInfo is a snapshot of an entity's state passed to Lua callbacks.
type EntityInfo struct {
	ID        string
	Name      string
	Team      string
	Health    int
	MaxHealth int
	Mana      int
	Stamina   int
	X, Y, Z   float64
	Alive     bool
}

// vm is one sandboxed LState. An LState is single-threaded, so every call
// holds mu.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per scope and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook. Calls to the same scope are
// serialized; different scopes run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger

	// Injected after construction. nil = no-op in engine.world.
	GetEntity func(id string) *EntityInfo
	Heal      func(id string, amount int) int
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no scopes loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadScope creates a sandboxed VM for scope, registers the engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order. A
// previously loaded VM for the same scope is replaced and closed.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: Scope VM is registered; returns error on Lua load failure.
func (m *Manager) LoadScope(scope, scriptDir string, instLimit int) error {
	if scope == "" {
		return fmt.Errorf("scripting.LoadScope: scope must not be empty")
	}
	return m.loadInto(scope, scriptDir, instLimit)
}

// LoadGlobal creates the GlobalScope VM for shared scripts accessible as a
// CallHook fallback from any scope.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(GlobalScope, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState(instLimit)
	m.registerModules(L, key)
	for _, path := range luaFiles {
		err := withBudget(L, instLimit, func() error { return L.DoFile(path) })
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.logger.Debug("scripting: scope loaded",
		zap.String("scope", key),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// LoadDir loads a content script tree: *.lua files directly under root go
// into the GlobalScope VM and every immediate subdirectory becomes a scope
// named after it.
//
// Precondition: root must be a readable directory.
// Postcondition: returns the first load error; scopes loaded before it remain.
func (m *Manager) LoadDir(root string, instLimit int) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("scripting.LoadDir: %w", err)
	}
	if err := m.LoadGlobal(root, instLimit); err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := m.LoadScope(e.Name(), filepath.Join(root, e.Name()), instLimit); err != nil {
			return err
		}
	}
	return nil
}

// Scopes returns the loaded scope keys in sorted order.
func (m *Manager) Scopes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.vms))
	for k := range m.vms {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HasHook reports whether hook is a function in scope's VM or the global VM.
func (m *Manager) HasHook(scope, hook string) bool {
	v := m.lookup(scope, hook)
	return v != nil
}

// lookup returns the VM that defines hook, preferring scope over GlobalScope.
func (m *Manager) lookup(scope, hook string) *vm {
	m.mu.RLock()
	candidates := []*vm{m.vms[scope], m.vms[GlobalScope]}
	m.mu.RUnlock()
	for _, v := range candidates {
		if v == nil {
			continue
		}
		v.mu.Lock()
		_, ok := v.L.GetGlobal(hook).(*lua.LFunction)
		v.mu.Unlock()
		if ok {
			return v
		}
	}
	return nil
}

// CallHook calls the named Lua global function in scope's VM. If the scope
// does not define the hook, the GlobalScope VM is tried as a fallback.
// Returns (LNil, nil) if no VM defines the hook. Lua runtime errors, including
// an exhausted instruction budget, are logged at Warn level and returned.
//
// Precondition: args must be valid lua.LValue instances created for this Manager.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	v := m.lookup(scope, hook)
	if v == nil {
		m.logger.Debug("scripting: hook not defined",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	err := withBudget(v.L, v.limit, func() error {
		return v.L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting.CallHook: %s/%s: %w", scope, hook, err)
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close closes every VM. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
