package behavior

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// ScriptCaller evaluates Lua hooks for script leaves.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given scope's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// ScriptAction returns an ActionFunc that calls hook with the context table
// and args table. The hook must return "success", "failure" or "running".
// Values the hook writes into the context table are copied back.
func ScriptAction(caller ScriptCaller, scope, hook string, args map[string]string) ActionFunc {
	return func(ctx *Context) (Status, error) {
		ret, err := callWithContext(ctx, caller, scope, hook, args)
		if err != nil {
			return Failure, err
		}
		s, ok := ret.(lua.LString)
		if !ok {
			return Failure, fmt.Errorf("lua action %q returned %s, want string", hook, ret.Type())
		}
		return ParseStatus(string(s))
	}
}

// ScriptCondition returns a Predicate that calls hook and applies Lua
// truthiness to the result. An undefined hook evaluates to false.
func ScriptCondition(caller ScriptCaller, scope, hook string, args map[string]string) Predicate {
	return func(ctx *Context) (bool, error) {
		ret, err := callWithContext(ctx, caller, scope, hook, args)
		if err != nil {
			return false, err
		}
		return lua.LVAsBool(ret), nil
	}
}

func callWithContext(ctx *Context, caller ScriptCaller, scope, hook string, args map[string]string) (lua.LValue, error) {
	tbl := ContextTable(ctx)
	argTbl := newTable()
	for k, v := range args {
		argTbl.RawSetString(k, lua.LString(v))
	}
	before := tableValues(tbl)
	ret, err := caller.CallHook(scope, hook, tbl, argTbl)
	if err != nil {
		return lua.LNil, err
	}
	applyTable(ctx, tbl, before)
	if ret == nil {
		return lua.LNil, nil
	}
	return ret, nil
}

// ContextTable converts the scalar values of ctx into a Lua table.
// Values of other types are omitted.
func ContextTable(ctx *Context) *lua.LTable {
	tbl := newTable()
	for _, k := range ctx.Keys() {
		if lv, ok := toLua(ctx.Get(k)); ok {
			tbl.RawSetString(k, lv)
		}
	}
	return tbl
}

func newTable() *lua.LTable {
	return &lua.LTable{Metatable: lua.LNil}
}

func toLua(v any) (lua.LValue, bool) {
	switch x := v.(type) {
	case string:
		return lua.LString(x), true
	case bool:
		return lua.LBool(x), true
	case int:
		return lua.LNumber(x), true
	case int64:
		return lua.LNumber(x), true
	case float64:
		return lua.LNumber(x), true
	case float32:
		return lua.LNumber(x), true
	}
	return nil, false
}

func tableValues(tbl *lua.LTable) map[string]lua.LValue {
	out := make(map[string]lua.LValue)
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			out[string(ks)] = v
		}
	})
	return out
}

// applyTable copies keys the hook changed back into ctx. Keys the hook set
// to nil are deleted.
func applyTable(ctx *Context, tbl *lua.LTable, before map[string]lua.LValue) {
	after := tableValues(tbl)
	keys := make([]string, 0, len(after))
	for k := range after {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := after[k]
		if prev, ok := before[k]; ok && prev == v {
			continue
		}
		switch x := v.(type) {
		case lua.LString:
			ctx.Set(k, string(x))
		case lua.LNumber:
			ctx.Set(k, float64(x))
		case lua.LBool:
			ctx.Set(k, bool(x))
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			ctx.Delete(k)
		}
	}
}
