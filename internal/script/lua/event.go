package lua

import (
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/eventscript/internal/event"
)

const eventTypeName = "eventscript.event"

// registerEventType installs the metatable used for event userdata.
func registerEventType(L *lua.LState, b *Bridge) {
	mt := L.NewTypeMetatable(eventTypeName)

	methods := map[string]lua.LGFunction{
		"getEventName": func(L *lua.LState) int {
			L.Push(lua.LString(checkEvent(L).EventType().SimpleName()))
			return 1
		},
		"getQualifiedName": func(L *lua.LState) int {
			L.Push(lua.LString(checkEvent(L).EventType().Name()))
			return 1
		},
		"isCancellable": func(L *lua.LState) int {
			L.Push(lua.LBool(event.IsCancellable(checkEvent(L))))
			return 1
		},
		"isCancelled": func(L *lua.LState) int {
			L.Push(lua.LBool(event.IsCancelled(checkEvent(L))))
			return 1
		},
		"setCancelled": func(L *lua.LState) int {
			c, ok := checkEvent(L).(event.Cancellable)
			if !ok {
				L.RaiseError("event is not cancellable")
				return 0
			}
			c.SetCancelled(L.OptBool(2, true))
			return 0
		},
	}
	methodTable := L.SetFuncs(L.NewTable(), methods)

	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		ev := checkEvent(L)
		key := L.CheckString(2)
		if fn := methodTable.RawGetString(key); fn != lua.LNil {
			L.Push(fn)
			return 1
		}
		v, ok := eventField(ev, key)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(b.ToLuaValue(v))
		return 1
	}))

	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		ev := checkEvent(L)
		key := L.CheckString(2)
		if err := setEventField(ev, key, b.ToGoValue(L.Get(3))); err != "" {
			L.RaiseError("%s", err)
		}
		return 0
	}))

	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(checkEvent(L).EventType().SimpleName()))
		return 1
	}))
}

// EventValue wraps ev as event userdata.
func (b *Bridge) EventValue(ev event.Event) lua.LValue {
	ud := b.L.NewUserData()
	ud.Value = ev
	b.L.SetMetatable(ud, b.L.GetTypeMetatable(eventTypeName))
	return ud
}

func checkEvent(L *lua.LState) event.Event {
	ud := L.CheckUserData(1)
	ev, ok := ud.Value.(event.Event)
	if !ok {
		L.ArgError(1, "event expected")
		return nil
	}
	return ev
}

// eventField reads a payload field by Go or JSON name.
func eventField(ev event.Event, key string) (any, bool) {
	if d, ok := ev.(*event.Dynamic); ok {
		return d.Get(key)
	}

	rv, ok := structValue(ev)
	if !ok {
		return nil, false
	}
	for _, f := range exportedFields(rv.Type()) {
		if f.goName == key || f.luaName == key {
			return rv.Field(f.index).Interface(), true
		}
	}
	return nil, false
}

// setEventField assigns a scalar payload field. It returns a message
// describing why the assignment was refused, or "".
func setEventField(ev event.Event, key string, value any) string {
	if d, ok := ev.(*event.Dynamic); ok {
		d.Set(key, value)
		return ""
	}

	rv, ok := structValue(ev)
	if !ok {
		return "event has no fields"
	}
	for _, f := range exportedFields(rv.Type()) {
		if f.goName != key && f.luaName != key {
			continue
		}
		field := rv.Field(f.index)
		if !field.CanSet() {
			return "field " + key + " is read-only"
		}
		if value == nil {
			return "cannot assign nil to field " + key
		}
		if !assign(field, value) {
			return "cannot assign " + reflect.TypeOf(value).String() + " to field " + key
		}
		return ""
	}
	return "unknown field " + key
}

func structValue(ev event.Event) (reflect.Value, bool) {
	rv := reflect.ValueOf(ev)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.Kind() == reflect.Struct
}

func assign(field reflect.Value, value any) bool {
	switch v := value.(type) {
	case string:
		if field.Kind() == reflect.String {
			field.SetString(v)
			return true
		}
	case bool:
		if field.Kind() == reflect.Bool {
			field.SetBool(v)
			return true
		}
	case int64:
		switch field.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			field.SetInt(v)
			return true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v >= 0 {
				field.SetUint(uint64(v))
				return true
			}
		case reflect.Float32, reflect.Float64:
			field.SetFloat(float64(v))
			return true
		}
	case float64:
		if field.Kind() == reflect.Float32 || field.Kind() == reflect.Float64 {
			field.SetFloat(v)
			return true
		}
	}
	return false
}
