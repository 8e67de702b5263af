package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.log.debug/info/warn/error(msg)  write to the Manager's logger
//	engine.health_fraction(combatant)      health / max_health in [0, 1]
//	engine.has_effect(combatant, name)     whether the named effect is active
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetGlobal("engine", engine)

	logTbl := L.NewTable()
	for level, fn := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	} {
		write := fn
		logTbl.RawSetString(level, L.NewFunction(func(L *lua.LState) int {
			write(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	engine.RawSetString("log", logTbl)

	engine.RawSetString("health_fraction", L.NewFunction(func(L *lua.LState) int {
		c := L.CheckTable(1)
		maxHealth := float64(lua.LVAsNumber(c.RawGetString("max_health")))
		if maxHealth <= 0 {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(float64(lua.LVAsNumber(c.RawGetString("health"))) / maxHealth))
		return 1
	}))

	engine.RawSetString("has_effect", L.NewFunction(func(L *lua.LState) int {
		c := L.CheckTable(1)
		name := L.CheckString(2)
		effects, ok := c.RawGetString("effects").(*lua.LTable)
		L.Push(lua.LBool(ok && lua.LVAsBool(effects.RawGetString(name))))
		return 1
	}))
}
