package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/eventscript/internal/event"
	slua "github.com/dshills/eventscript/internal/script/lua"
)

// BindingName is the global under which a script sees its session.
const BindingName = "plugin"

// Install exposes the session to the script running in state as the global
// plugin and preloads the eventscript module. It must be called before the
// script is evaluated.
func (s *Session) Install(state *slua.State) {
	L := state.LuaState()
	b := &binding{session: s, state: state}

	b.self = L.NewTable()
	L.SetFuncs(b.self, map[string]lua.LGFunction{
		"registerListener":   b.registerListener,
		"unregisterListener": b.unregisterListener,
		"setUnloadHook":      b.setUnloadHook,
		"getName":            b.getName,
		"getLogger":          b.getLogger,
	})
	b.logger = newLoggerTable(L, s.logger)

	state.SetGlobal(BindingName, b.self)
	state.PreloadModule(slua.ModulePrefix, b.loadModule)
}

type binding struct {
	session *Session
	state   *slua.State
	self    *lua.LTable
	logger  *lua.LTable
}

// base returns the index of the first real argument, accepting both
// plugin:fn(...) and plugin.fn(...).
func (b *binding) base(L *lua.LState) int {
	if L.Get(1) == b.self {
		return 2
	}
	return 1
}

// registerListener(name, priority, ignoreCancelled, event) -> bool
// registerListener(object, method, priority, ignoreCancelled, event) -> bool
// registerListener(config) -> bool
func (b *binding) registerListener(L *lua.LState) int {
	i := b.base(L)
	nargs := L.GetTop() - i + 1

	var (
		ok  bool
		err error
	)
	switch first := L.Get(i).(type) {
	case lua.LString:
		priority := b.checkPriority(L, i+1)
		ok, err = b.session.RegisterFunction(string(first), priority,
			lua.LVAsBool(L.Get(i+2)), L.CheckString(i+3))
	case *lua.LTable:
		if nargs == 1 {
			ok, err = b.registerConfig(first)
			break
		}
		method := L.CheckString(i + 1)
		priority := b.checkPriority(L, i+2)
		ok, err = b.session.RegisterMethod(first, method, priority,
			lua.LVAsBool(L.Get(i+3)), L.CheckString(i+4))
	default:
		L.ArgError(i, "function name, object or configuration table expected")
		return 0
	}

	if err != nil {
		L.RaiseError("registerListener: %s", err.Error())
		return 0
	}
	L.Push(lua.LBool(ok))
	return 1
}

// registerConfig handles the table form. A function stored under handler
// makes the table the object and "handler" the method.
func (b *binding) registerConfig(cfg *lua.LTable) (bool, error) {
	m, _ := b.state.Bridge().ToGoValue(cfg).(map[string]any)
	if m == nil {
		m = map[string]any{}
	}

	if _, isFn := cfg.RawGetString(KeyHandler).(*lua.LFunction); !isFn {
		return b.session.RegisterConfig(m)
	}

	m[KeyHandler] = KeyHandler
	spec, err := b.session.parseConfig(m)
	if err != nil {
		return false, err
	}
	return b.session.RegisterMethod(cfg, KeyHandler, spec.Priority, spec.IgnoreCancelled, spec.Event)
}

func (b *binding) checkPriority(L *lua.LState, idx int) event.Priority {
	switch v := L.Get(idx).(type) {
	case *lua.LNilType:
		return event.PriorityNormal
	case lua.LString:
		p, err := event.ParsePriority(string(v))
		if err != nil {
			L.ArgError(idx, err.Error())
		}
		return p
	case lua.LNumber:
		p := event.Priority(int(v))
		if !p.Valid() {
			L.ArgError(idx, fmt.Sprintf("priority %d out of range", int(v)))
		}
		return p
	default:
		L.ArgError(idx, "priority name expected")
		return event.PriorityNormal
	}
}

// unregisterListener(name, event) -> bool
// unregisterListener(object, method, event) -> bool
func (b *binding) unregisterListener(L *lua.LState) int {
	i := b.base(L)

	var ok bool
	switch first := L.Get(i).(type) {
	case lua.LString:
		ok = b.session.UnregisterFunction(string(first), L.CheckString(i+1))
	case *lua.LTable:
		ok = b.session.UnregisterMethod(first, L.CheckString(i+1), L.CheckString(i+2))
	default:
		L.ArgError(i, "function name or object expected")
		return 0
	}
	L.Push(lua.LBool(ok))
	return 1
}

// setUnloadHook(fn)
func (b *binding) setUnloadHook(L *lua.LState) int {
	i := b.base(L)
	if L.Get(i) == lua.LNil {
		b.session.SetUnloadHook(nil)
		return 0
	}
	fn := L.CheckFunction(i)
	state := b.state
	b.session.SetUnloadHook(func() error {
		if err := state.CallValue(context.Background(), fn); err != nil {
			if errors.Is(err, slua.ErrStateClosed) {
				return nil
			}
			return err
		}
		return nil
	})
	return 0
}

// getName() -> string
func (b *binding) getName(L *lua.LState) int {
	L.Push(lua.LString(b.session.Name()))
	return 1
}

// getLogger() -> logger
func (b *binding) getLogger(L *lua.LState) int {
	L.Push(b.logger)
	return 1
}

func (b *binding) loadModule(L *lua.LState) int {
	mod := L.NewTable()

	priorities := L.NewTable()
	for p := event.PriorityLowest; p <= event.PriorityMonitor; p++ {
		priorities.RawSetString(p.String(), lua.LString(p.String()))
	}
	L.SetField(mod, "priority", priorities)

	L.SetField(mod, "isKnown", L.NewFunction(func(L *lua.LState) int {
		_, err := b.session.resolver.Resolve(L.CheckString(1))
		L.Push(lua.LBool(err == nil))
		return 1
	}))

	L.Push(mod)
	return 1
}

// newLoggerTable builds the table returned by plugin:getLogger().
func newLoggerTable(L *lua.LState, logger *slog.Logger) *lua.LTable {
	tbl := L.NewTable()
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, level := range levels {
		level := level
		tbl.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			i := 1
			if L.Get(1) == tbl {
				i = 2
			}
			parts := make([]any, 0, L.GetTop())
			msg := L.ToStringMeta(L.Get(i)).String()
			for j := i + 1; j <= L.GetTop(); j++ {
				parts = append(parts, slog.String(fmt.Sprintf("arg%d", j-i), L.ToStringMeta(L.Get(j)).String()))
			}
			logger.Log(context.Background(), level, msg, parts...)
			return 0
		}))
	}
	return tbl
}
