package lua

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/eventscript/internal/event"
	"github.com/dshills/eventscript/internal/event/events"
)

func TestEventValue_Methods(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`
		function inspect(ev)
			name = ev:getEventName()
			qualified = ev:getQualifiedName()
			cancellable = ev:isCancellable()
			before = ev:isCancelled()
			ev:setCancelled(true)
			after = ev:isCancelled()
			str = tostring(ev)
		end
	`))

	ev := events.NewPlayerChat("alice", "hello")
	require.NoError(t, state.CallFunction(context.Background(), "inspect", ev))

	assert.Equal(t, glua.LString("PlayerChatEvent"), state.GetGlobal("name"))
	assert.Equal(t, glua.LString("host.event.player.PlayerChatEvent"), state.GetGlobal("qualified"))
	assert.Equal(t, glua.LTrue, state.GetGlobal("cancellable"))
	assert.Equal(t, glua.LFalse, state.GetGlobal("before"))
	assert.Equal(t, glua.LTrue, state.GetGlobal("after"))
	assert.Equal(t, glua.LString("PlayerChatEvent"), state.GetGlobal("str"))
	assert.True(t, ev.IsCancelled())
}

func TestEventValue_SetCancelledNotCancellable(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`function cancel(ev) ev:setCancelled(true) end`))

	err := state.CallFunction(context.Background(), "cancel", events.NewPlayerJoin("alice", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not cancellable")
}

func TestEventValue_Fields(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`
		function read(ev)
			player = ev.player
			goName = ev.Player
			x = ev.position.x
			missing = ev.nothing
		end
		function write(ev)
			ev.block = "stone"
			ev.Player = "bob"
		end
	`))
	ev := events.NewBlockBreak("alice", "dirt", events.Position{X: 4, Y: 64, Z: -2})

	require.NoError(t, state.CallFunction(context.Background(), "read", ev))
	assert.Equal(t, glua.LString("alice"), state.GetGlobal("player"))
	assert.Equal(t, glua.LString("alice"), state.GetGlobal("goName"))
	assert.Equal(t, glua.LNumber(4), state.GetGlobal("x"))
	assert.Equal(t, glua.LNil, state.GetGlobal("missing"))

	require.NoError(t, state.CallFunction(context.Background(), "write", ev))
	assert.Equal(t, "stone", ev.Block)
	assert.Equal(t, "bob", ev.Player)
}

func TestEventValue_FieldAssignmentErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"unknown field", `ev.nothing = 1`, "unknown field nothing"},
		{"wrong type", `ev.player = 5`, "cannot assign int64 to field player"},
		{"nil", `ev.player = nil`, "cannot assign nil"},
		{"struct field", `ev.position = {x = 1}`, "cannot assign"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newTestState(t)
			require.NoError(t, state.DoString(`function assign(ev) `+tt.code+` end`))

			err := state.CallFunction(context.Background(), "assign",
				events.NewBlockPlace("alice", "dirt", events.Position{}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEventValue_NumericFields(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.DoString(`function bump(ev) ev.scripts = ev.scripts + 1 end`))

	ev := events.NewServerStarted(2)
	require.NoError(t, state.CallFunction(context.Background(), "bump", ev))
	assert.Equal(t, 3, ev.Scripts)
}

func TestEventValue_Dynamic(t *testing.T) {
	typ := event.NewType("plugin.event.QuestCompleteEvent", event.Root, event.WithHandlerList())
	ev := event.NewDynamic(typ, "test")
	ev.Set("quest", "dragon")

	state := newTestState(t)
	require.NoError(t, state.DoString(`
		function complete(ev)
			quest = ev.quest
			ev.reward = 100
			name = ev:getEventName()
		end
	`))
	require.NoError(t, state.CallFunction(context.Background(), "complete", ev))

	assert.Equal(t, glua.LString("dragon"), state.GetGlobal("quest"))
	assert.Equal(t, glua.LString("QuestCompleteEvent"), state.GetGlobal("name"))
	reward, ok := ev.Get("reward")
	require.True(t, ok)
	assert.Equal(t, int64(100), reward)
}

func TestEventValue_RoundTrip(t *testing.T) {
	state := newTestState(t)
	ev := events.NewPlayerQuit("alice", "bye")

	lv := state.Bridge().EventValue(ev)
	assert.Same(t, ev, state.Bridge().ToGoValue(lv))
}
