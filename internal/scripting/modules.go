package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/critterbound/internal/game/typechart"
)

// RegisterModules registers the engine.* Lua tables into L:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.dice.float()            -> number in [0, 1)
//	engine.dice.intn(n)            -> integer in [0, n)
//	engine.types.multiplier(a, d)  -> type chart multiplier
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.newLogModule(L))
	L.SetField(engine, "dice", m.newDiceModule(L))
	L.SetField(engine, "types", newTypesModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) newLogModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, logFn := range levels {
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

func (m *Manager) newDiceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "float", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(m.src.Float64()))
		return 1
	}))
	L.SetField(mod, "intn", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "n must be > 0")
			return 0
		}
		L.Push(lua.LNumber(m.src.Intn(n)))
		return 1
	}))
	return mod
}

func newTypesModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "multiplier", L.NewFunction(func(L *lua.LState) int {
		a := typechart.Element(L.CheckString(1))
		d := typechart.Element(L.CheckString(2))
		L.Push(lua.LNumber(typechart.Multiplier(a, d)))
		return 1
	}))
	return mod
}
