package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// registerModules installs the engine.* tables into L.
//
// Postcondition: engine.log, engine.dice and engine.world are defined in L.
func (m *Manager) registerModules(L *lua.LState, scope string) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L, scope))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "world", m.worldModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState, scope string) *lua.LTable {
	logger := m.logger.With(zap.String("scope", scope))
	mod := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": logger.Debug,
		"info":  logger.Info,
		"warn":  logger.Warn,
		"error": logger.Error,
	} {
		fn := fn
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	// engine.dice.roll(expr) -> {total=, dice={...}, modifier=}
	L.SetField(mod, "roll", L.NewFunction(func(L *lua.LState) int {
		expr, err := dice.Parse(L.CheckString(1))
		if err != nil {
			L.RaiseError("engine.dice.roll: %s", err.Error())
			return 0
		}
		res := m.roller.Roll(expr)
		tbl := L.NewTable()
		L.SetField(tbl, "total", lua.LNumber(res.Total()))
		L.SetField(tbl, "modifier", lua.LNumber(res.Modifier))
		dt := L.NewTable()
		for _, d := range res.Dice {
			dt.Append(lua.LNumber(d))
		}
		L.SetField(tbl, "dice", dt)
		L.Push(tbl)
		return 1
	}))
	// engine.dice.chance(percent) -> bool
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(m.roller.Chance(float64(L.CheckNumber(1)))))
		return 1
	}))
	return mod
}

func (m *Manager) worldModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	// engine.world.entity(id) -> table or nil
	L.SetField(mod, "entity", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		if m.GetEntity == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetEntity(id)
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(entityTable(L, info))
		return 1
	}))
	// engine.world.heal(id, amount) -> amount restored
	L.SetField(mod, "heal", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		amount := L.CheckInt(2)
		if m.Heal == nil {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(m.Heal(id, amount)))
		return 1
	}))
	return mod
}

func entityTable(L *lua.LState, info *EntityInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(info.ID))
	L.SetField(t, "name", lua.LString(info.Name))
	L.SetField(t, "team", lua.LString(info.Team))
	L.SetField(t, "health", lua.LNumber(info.Health))
	L.SetField(t, "max_health", lua.LNumber(info.MaxHealth))
	L.SetField(t, "mana", lua.LNumber(info.Mana))
	L.SetField(t, "stamina", lua.LNumber(info.Stamina))
	L.SetField(t, "x", lua.LNumber(info.X))
	L.SetField(t, "y", lua.LNumber(info.Y))
	L.SetField(t, "z", lua.LNumber(info.Z))
	L.SetField(t, "alive", lua.LBool(info.Alive))
	return t
}
