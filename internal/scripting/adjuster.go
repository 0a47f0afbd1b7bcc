package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/critterbound/internal/game/battle"
)

// AdjustDamageHook is the Lua global called for every damaging hit.
const AdjustDamageHook = "adjust_damage"

// DamageAdjuster returns a battle.DamageAdjuster backed by the adjust_damage
// hook of script set id. The hook receives a table with the fields attacker,
// defender, move, element, power, raw and multiplier. A numeric return
// replaces the raw damage; nil, a non-number or a runtime error keeps it.
//
// Postcondition: The returned function is safe to pass to battle.Options even
// when id has no scripts loaded.
func (m *Manager) DamageAdjuster(id string) battle.DamageAdjuster {
	return func(dc battle.DamageContext) int {
		ret := m.call(id, AdjustDamageHook, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{damageContextTable(L, dc)}
		})
		n, ok := ret.(lua.LNumber)
		if !ok {
			return dc.RawDamage
		}
		return toDamage(float64(n), dc.RawDamage)
	}
}

// maxScriptDamage bounds a hook's result before it is converted to int.
const maxScriptDamage = 1 << 30

// toDamage floors v into [0, maxScriptDamage]. NaN keeps raw.
func toDamage(v float64, raw int) int {
	if math.IsNaN(v) {
		return raw
	}
	return int(math.Floor(min(max(v, 0), maxScriptDamage)))
}

func damageContextTable(L *lua.LState, dc battle.DamageContext) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "attacker", lua.LString(dc.Attacker))
	L.SetField(t, "defender", lua.LString(dc.Defender))
	if dc.Move != nil {
		L.SetField(t, "move", lua.LString(dc.Move.ID))
		L.SetField(t, "element", lua.LString(dc.Move.Element))
		L.SetField(t, "power", lua.LNumber(dc.Move.Power))
	}
	L.SetField(t, "raw", lua.LNumber(dc.RawDamage))
	L.SetField(t, "multiplier", lua.LNumber(dc.TypeMultiplier))
	return t
}
