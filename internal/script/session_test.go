package script

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/eventscript/internal/event"
	slua "github.com/dshills/eventscript/internal/script/lua"
	"github.com/dshills/eventscript/internal/taxonomy"
)

// fixture is a small host with its own event types, so tests never share
// handler lists.
type fixture struct {
	registry *taxonomy.Registry
	bus      event.Bus

	join, specialJoin, chat, orphan *event.Type
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := event.NewType("host.event.BaseEvent", event.Root, event.Abstract())
	f := &fixture{
		join:   event.NewType("host.event.Join", base, event.WithHandlerList()),
		chat:   event.NewType("host.event.Chat", base, event.WithHandlerList()),
		orphan: event.NewType("host.event.Orphan", event.Root),
	}
	f.specialJoin = event.NewType("host.event.SpecialJoin", f.join)

	catalog := taxonomy.NewCatalog()
	require.NoError(t, catalog.Register(taxonomy.NewStaticModule(taxonomy.HostModule,
		base, f.join, f.specialJoin, f.chat, f.orphan)))
	f.registry = taxonomy.New(catalog)
	require.NoError(t, f.registry.Initialize())

	f.bus = event.NewBus()
	require.NoError(t, f.bus.Start())
	t.Cleanup(func() { _ = f.bus.Stop() })
	return f
}

func (f *fixture) fire(t *testing.T, typ *event.Type, fields map[string]any) (*event.Dynamic, error) {
	t.Helper()
	ev := event.NewDynamic(typ, "test")
	for k, v := range fields {
		ev.Set(k, v)
	}
	return ev, f.bus.Call(context.Background(), ev)
}

func (f *fixture) list(t *testing.T, typ *event.Type) *event.HandlerList {
	t.Helper()
	list, err := f.registry.Endpoint(typ)
	require.NoError(t, err)
	return list
}

// newScript evaluates code in a fresh engine with its session installed.
func (f *fixture) newScript(t *testing.T, name, code string) (*Session, *slua.State) {
	t.Helper()
	state, err := slua.NewState()
	require.NoError(t, err)
	session := NewSession(name, state, f.registry, WithSessionBus(f.bus))
	session.Install(state)
	t.Cleanup(func() {
		session.Unload()
		_ = state.Close()
	})
	require.NoError(t, state.DoString(code))
	return session, state
}

func callCount(t *testing.T, state *slua.State) int {
	t.Helper()
	tbl, ok := state.GetGlobal("calls").(*glua.LTable)
	require.True(t, ok)
	return tbl.Len()
}

const recordingScript = `
calls = {}
function onJoin(ev)
	table.insert(calls, ev:getEventName())
	last = ev
end
`

func TestSession_JoinScenario(t *testing.T) {
	f := newFixture(t)
	session, state := f.newScript(t, "greeter", recordingScript)

	ok, err := session.RegisterFunction("onJoin", event.PriorityNormal, false, "Join")
	require.NoError(t, err)
	require.True(t, ok)

	ev, err := f.fire(t, f.join, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, callCount(t, state))

	last, ok := state.GetGlobal("last").(*glua.LUserData)
	require.True(t, ok)
	assert.Same(t, ev, last.Value, "the delivered event is the sole argument")

	_, err = f.fire(t, f.specialJoin, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, callCount(t, state), "subtype events do not trigger the listener")
}

func TestSession_RegisterTwice(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript)

	ok, err := session.RegisterFunction("onJoin", event.PriorityNormal, false, "Join")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = session.RegisterFunction("onJoin", event.PriorityHigh, true, "Join")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, f.list(t, f.join).Len())
	assert.Equal(t, 1, session.ListenerCount())
	assert.Equal(t, event.PriorityNormal, f.list(t, f.join).Snapshot()[0].Priority)
}

func TestSession_SameFunctionDifferentEvents(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript)

	for _, name := range []string{"Join", "SpecialJoin", "Chat"} {
		ok, err := session.RegisterFunction("onJoin", event.PriorityNormal, false, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	assert.Equal(t, 3, session.ListenerCount())
	assert.Equal(t, 2, f.list(t, f.join).Len(), "SpecialJoin delivers through Join's list")
}

func TestSession_RegisterErrors(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript)

	tests := []struct {
		name    string
		handler string
		event   string
		prio    event.Priority
		want    error
	}{
		{"unknown event", "onJoin", "Nope", event.PriorityNormal, taxonomy.ErrNotFound},
		{"no handler list", "onJoin", "Orphan", event.PriorityNormal, taxonomy.ErrMisconfiguredType},
		{"empty event", "onJoin", "", event.PriorityNormal, ErrValidation},
		{"empty handler", "", "Join", event.PriorityNormal, ErrValidation},
		{"bad priority", "onJoin", "Join", event.Priority(99), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := session.RegisterFunction(tt.handler, tt.prio, false, tt.event)
			assert.False(t, ok)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, session.ListenerCount())
	assert.Equal(t, 0, f.list(t, f.join).Len())
}

func TestSession_RegisterMethod(t *testing.T) {
	f := newFixture(t)
	session, state := f.newScript(t, "chatter", `
		counter = {n = 0}
		function counter:onChat(ev) self.n = self.n + 1 end
	`)
	counter := state.GetGlobal("counter")

	ok, err := session.RegisterMethod(counter, "onChat", event.PriorityLow, false, "Chat")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = session.RegisterMethod(counter, "onChat", event.PriorityLow, false, "Chat")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = session.RegisterMethod(glua.LString("x"), "onChat", event.PriorityLow, false, "Chat")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.fire(t, f.chat, nil)
	require.NoError(t, err)
	assert.Equal(t, glua.LNumber(1), state.GetGlobal("counter").(*glua.LTable).RawGetString("n"))

	assert.True(t, session.UnregisterMethod(counter, "onChat", "Chat"))
	assert.False(t, session.UnregisterMethod(counter, "onChat", "Chat"))
	assert.Equal(t, 0, f.list(t, f.chat).Len())
}

func TestSession_Unregister(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript)

	assert.False(t, session.UnregisterFunction("onJoin", "Join"), "never registered")
	assert.False(t, session.UnregisterFunction("onJoin", "Nope"))
	assert.False(t, session.UnregisterFunction("onJoin", "Orphan"))
	assert.False(t, session.UnregisterFunction("", "Join"))

	_, err := session.RegisterFunction("onJoin", event.PriorityNormal, false, "Join")
	require.NoError(t, err)

	other, _ := f.newScript(t, "other", recordingScript)
	assert.False(t, other.UnregisterFunction("onJoin", "Join"), "other engines have other identities")
	assert.Equal(t, 1, f.list(t, f.join).Len())

	assert.True(t, session.UnregisterFunction("onJoin", "Join"))
	assert.Equal(t, 0, f.list(t, f.join).Len())
	assert.Equal(t, 0, session.ListenerCount())

	ok, err := session.RegisterFunction("onJoin", event.PriorityNormal, false, "Join")
	require.NoError(t, err)
	assert.True(t, ok, "a fresh listener can be registered after unregistering")
}

func TestSession_RegisterConfig(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript)

	ok, err := session.RegisterConfig(map[string]any{"event": "Join", "handler": "onJoin"})
	require.NoError(t, err)
	assert.True(t, ok)

	regs := f.list(t, f.join).Snapshot()
	require.Len(t, regs, 1)
	assert.Equal(t, event.PriorityNormal, regs[0].Priority)
	assert.False(t, regs[0].IgnoreCancelled)
	assert.Equal(t, "greeter", regs[0].Owner)
}

func TestSession_RegisterConfigMissingHandler(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript)

	ok, err := session.RegisterConfig(map[string]any{"event": "Join"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, f.list(t, f.join).Len())
	assert.Equal(t, 0, session.ListenerCount())
}

func TestSession_RegisterConfigUnknownEvent(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript)

	ok, err := session.RegisterConfig(map[string]any{"event": "Nope", "handler": "onJoin"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, taxonomy.ErrNotFound)
	assert.Equal(t, 0, session.ListenerCount())

	_, err = session.RegisterFunction("onJoin", event.PriorityNormal, false, "Nope")
	assert.ErrorIs(t, err, taxonomy.ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation, "positional form reports the lookup failure as is")
}

func TestSession_RegisterConfigNumericPriority(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript)

	ok, err := session.RegisterConfig(map[string]any{"event": "Join", "handler": "onJoin", "priority": int64(event.PriorityHigh)})
	require.NoError(t, err)
	assert.True(t, ok)

	regs := f.list(t, f.join).Snapshot()
	require.Len(t, regs, 1)
	assert.Equal(t, event.PriorityHigh, regs[0].Priority)
}

func TestSession_Sweep(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript)

	_, err := session.RegisterFunction("onJoin", event.PriorityNormal, false, "Join")
	require.NoError(t, err)
	session.Unload()
	assert.Equal(t, 0, session.Sweep(), "unload already released every listener")

	stray := event.HandlerFunc(func(context.Context, event.Event) error { return nil })
	require.NoError(t, f.bus.Register(f.join, event.RegisteredListener{Handler: stray, Owner: "greeter"}))
	assert.Equal(t, 1, session.Sweep())
	assert.Equal(t, 0, f.list(t, f.join).Len())
}

func TestSession_InvocationErrors(t *testing.T) {
	f := newFixture(t)
	session, state := f.newScript(t, "greeter", recordingScript+`
		function broken(ev) error("boom") end
	`)

	_, err := session.RegisterFunction("broken", event.PriorityLow, false, "Join")
	require.NoError(t, err)
	_, err = session.RegisterFunction("missing", event.PriorityLow, false, "Join")
	require.NoError(t, err)
	_, err = session.RegisterFunction("onJoin", event.PriorityHigh, false, "Join")
	require.NoError(t, err)

	_, err = f.fire(t, f.join, nil)
	require.Error(t, err)

	var de *event.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "missing")
	assert.Equal(t, 1, callCount(t, state), "sibling listeners still run")
	assert.Equal(t, 3, session.ListenerCount(), "failing listeners stay registered")
	assert.Equal(t, uint64(2), f.bus.Stats().HandlerErrors)
}

func TestSession_IgnoreCancelled(t *testing.T) {
	f := newFixture(t)
	session, state := f.newScript(t, "guard", `
		calls = {}
		function cancel(ev) ev:setCancelled(true) end
		function onJoin(ev) table.insert(calls, 1) end
	`)

	_, err := session.RegisterFunction("cancel", event.PriorityLowest, false, "Join")
	require.NoError(t, err)
	_, err = session.RegisterFunction("onJoin", event.PriorityNormal, true, "Join")
	require.NoError(t, err)

	ev, err := f.fire(t, f.join, nil)
	require.NoError(t, err)
	assert.True(t, ev.IsCancelled())
	assert.Equal(t, 0, callCount(t, state))
}

func TestSession_Unload(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "greeter", recordingScript+`
		obj = {}
		function obj:onChat(ev) end
	`)

	_, err := session.RegisterFunction("onJoin", event.PriorityNormal, false, "Join")
	require.NoError(t, err)
	_, err = session.RegisterConfig(map[string]any{"event": "Chat", "handler": "onJoin"})
	require.NoError(t, err)

	hookCalls := 0
	session.SetUnloadHook(func() error {
		hookCalls++
		return nil
	})

	session.Unload()
	assert.Equal(t, 1, hookCalls)
	assert.Equal(t, 0, session.ListenerCount())
	assert.Equal(t, 0, f.list(t, f.join).Len())
	assert.Equal(t, 0, f.list(t, f.chat).Len())

	session.Unload()
	assert.Equal(t, 1, hookCalls, "the hook runs once")

	_, err = session.RegisterFunction("onJoin", event.PriorityNormal, false, "Join")
	assert.ErrorIs(t, err, ErrSessionUnloaded)
	assert.Equal(t, 0, f.list(t, f.join).Len())
}

func TestSession_UnloadHookFailures(t *testing.T) {
	tests := []struct {
		name string
		hook func() error
	}{
		{"error", func() error { return errors.New("hook failed") }},
		{"panic", func() error { panic("hook panicked") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			session, _ := f.newScript(t, "greeter", recordingScript)
			_, err := session.RegisterFunction("onJoin", event.PriorityNormal, false, "Join")
			require.NoError(t, err)

			session.SetUnloadHook(tt.hook)
			assert.NotPanics(t, session.Unload)
			assert.Equal(t, 0, f.list(t, f.join).Len(), "cleanup completes despite the hook")
		})
	}
}

func TestSession_UnloadEmpty(t *testing.T) {
	f := newFixture(t)
	session, _ := f.newScript(t, "idle", ``)

	ran := false
	session.SetUnloadHook(func() error { ran = true; return nil })
	session.Unload()
	assert.True(t, ran)
	assert.Equal(t, 0, session.ListenerCount())
}
