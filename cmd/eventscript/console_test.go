package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/eventscript/internal/app"
	"github.com/dshills/eventscript/internal/config"
	"github.com/dshills/eventscript/internal/event"
	"github.com/dshills/eventscript/internal/event/events"
	"github.com/dshills/eventscript/internal/observability"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestConsole(t *testing.T, scripts map[string]string) (*Console, *bytes.Buffer, *app.Application) {
	t.Helper()
	cfg := config.Default()
	cfg.Scripts.Dir = filepath.Join(t.TempDir(), "scripts")
	cfg.Plugins.Dir = ""
	for name, code := range scripts {
		writeFile(t, filepath.Join(cfg.Scripts.Dir, name), code)
	}

	application, err := app.New(app.Options{Config: cfg, Logger: observability.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown(context.Background()) })
	require.NoError(t, application.Start(context.Background()))

	var out bytes.Buffer
	return NewConsole(application, &out), &out, application
}

func exec(t *testing.T, c *Console, line string) error {
	t.Helper()
	quit, err := c.Exec(context.Background(), line)
	assert.False(t, quit)
	return err
}

const shoutScript = `
function onChat(ev)
	ev.message = string.upper(ev.message)
end
plugin:registerListener("onChat", "normal", false, "PlayerChatEvent")
`

func TestConsole_HelpAndQuit(t *testing.T) {
	c, out, _ := newTestConsole(t, nil)

	require.NoError(t, exec(t, c, "help"))
	assert.Contains(t, out.String(), "fire <event> [json]")
	assert.Contains(t, out.String(), "quit")

	require.NoError(t, exec(t, c, "   "))

	quit, err := c.Exec(context.Background(), "quit")
	require.NoError(t, err)
	assert.True(t, quit)

	assert.ErrorContains(t, exec(t, c, "dance"), `unknown command "dance"`)
}

func TestConsole_Fire(t *testing.T) {
	c, out, _ := newTestConsole(t, map[string]string{"shout.lua": shoutScript})

	require.NoError(t, exec(t, c, `fire PlayerChatEvent {"player":"alice","message":"hello"}`))

	doc := out.String()
	require.True(t, gjson.Valid(doc), doc)
	assert.Equal(t, "PlayerChatEvent", gjson.Get(doc, "event").String())
	assert.Equal(t, "host", gjson.Get(doc, "source").String())
	assert.False(t, gjson.Get(doc, "cancelled").Bool())
	assert.Equal(t, "alice", gjson.Get(doc, "fields.player").String())
	assert.Equal(t, "HELLO", gjson.Get(doc, "fields.message").String())
	assert.False(t, gjson.Get(doc, "fields.ID").Exists())
}

func TestConsole_FireErrors(t *testing.T) {
	c, _, _ := newTestConsole(t, nil)

	tests := []struct {
		line string
		msg  string
	}{
		{"fire", "usage"},
		{"fire NoSuchEvent", "not found"},
		{"fire PlayerEvent", "not found"},
		{`fire PlayerChatEvent {"player":`, "not valid JSON"},
		{`fire PlayerChatEvent ["alice"]`, "JSON object"},
		{`fire PlayerChatEvent {"nickname":"alice"}`, "unknown field"},
		{`fire PlayerChatEvent {"ID":"x"}`, "cannot be set"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.ErrorContains(t, exec(t, c, tt.line), tt.msg)
		})
	}
}

func TestConsole_Types(t *testing.T) {
	c, out, application := newTestConsole(t, nil)

	require.NoError(t, exec(t, c, "types"))

	doc := out.String()
	require.True(t, gjson.Valid(doc), doc)
	assert.Equal(t, int64(application.Registry().Len()), gjson.Get(doc, "#").Int())

	firstJoin := gjson.Get(doc, `#(name=="PlayerFirstJoinEvent")`)
	require.True(t, firstJoin.Exists())
	assert.Equal(t, events.TypePlayerFirstJoin.Name(), firstJoin.Get("qualified").String())
	assert.Equal(t, events.TypePlayerJoin.Name(), firstJoin.Get("parent").String())
	assert.Equal(t, events.TypePlayerJoin.Name(), firstJoin.Get("endpoint").String())

	chat := gjson.Get(doc, `#(name=="PlayerChatEvent")`)
	assert.True(t, chat.Get("cancellable").Bool())
	assert.Equal(t, events.TypePlayerChat.Name(), chat.Get("endpoint").String(), "declaring type is its own endpoint")
}

func TestConsole_Scripts(t *testing.T) {
	c, out, application := newTestConsole(t, nil)

	require.NoError(t, exec(t, c, "scripts"))
	assert.Contains(t, out.String(), "no scripts loaded")

	path := filepath.Join(t.TempDir(), "shout.lua")
	writeFile(t, path, shoutScript)

	out.Reset()
	require.NoError(t, exec(t, c, "load "+path))
	assert.Contains(t, out.String(), "loaded shout with 1 listeners")
	assert.ErrorContains(t, exec(t, c, "load "+path), "already loaded")

	out.Reset()
	require.NoError(t, exec(t, c, "scripts"))
	assert.Contains(t, out.String(), "shout")

	require.NoError(t, exec(t, c, "unload shout"))
	assert.Equal(t, 0, application.Loader().Len())
	assert.ErrorContains(t, exec(t, c, "unload shout"), "not found")
	assert.ErrorContains(t, exec(t, c, "unload"), "usage")
	assert.ErrorContains(t, exec(t, c, "load"), "usage")
}

func TestConsole_Plugin(t *testing.T) {
	c, out, application := newTestConsole(t, nil)
	path := filepath.Join(t.TempDir(), "arena.yaml")
	writeFile(t, path, `
events:
  - name: plugin.arena.event.MatchStartEvent
    handlerList: true
`)

	require.NoError(t, exec(t, c, "plugin arena "+path))
	assert.Contains(t, out.String(), "plugin arena enabled")
	assert.True(t, application.Registry().IsKnown("MatchStartEvent"))

	out.Reset()
	require.NoError(t, exec(t, c, `fire MatchStartEvent {"arena":"north","round":2}`))
	doc := out.String()
	assert.Equal(t, "north", gjson.Get(doc, "fields.arena").String())
	assert.Equal(t, int64(2), gjson.Get(doc, "fields.round").Int())

	assert.ErrorContains(t, exec(t, c, "plugin arena"), "usage")
}

func TestConsole_CancelledCommand(t *testing.T) {
	c, out, _ := newTestConsole(t, map[string]string{"guard.lua": `
function onCommand(ev)
	if ev.command == "types" then
		ev:setCancelled(true)
	end
end
plugin:registerListener("onCommand", "normal", false, "ServerCommandEvent")
`})

	require.NoError(t, exec(t, c, "types"))
	assert.Empty(t, out.String())

	require.NoError(t, exec(t, c, "help"))
	assert.NotEmpty(t, out.String())
}

func TestConsole_Stats(t *testing.T) {
	c, out, _ := newTestConsole(t, map[string]string{"shout.lua": shoutScript})
	require.NoError(t, exec(t, c, `fire PlayerChatEvent {"player":"a","message":"b"}`))

	out.Reset()
	require.NoError(t, exec(t, c, "stats"))
	assert.Contains(t, out.String(), "events called:")
	assert.Contains(t, out.String(), "dispatched:        1 (ok 1, failed 0, panicked 0, skipped 0)")
	assert.Contains(t, out.String(), "dispatch time:")
	assert.Contains(t, out.String(), observability.MetricDeliveries)
}

func TestApplyPayload_Dynamic(t *testing.T) {
	typ := event.NewType("plugin.test.event.PayloadEvent", event.Root, event.WithHandlerList())
	ev := event.NewDynamic(typ, "test")

	require.NoError(t, applyPayload(ev, `{"n":3,"f":1.5,"s":"x","b":true,"z":null,"list":[1,2],"obj":{"k":"v"}}`))
	assert.Equal(t, map[string]any{
		"n":    int64(3),
		"f":    1.5,
		"s":    "x",
		"b":    true,
		"z":    nil,
		"list": []any{float64(1), float64(2)},
		"obj":  map[string]any{"k": "v"},
	}, ev.Data)

	require.NoError(t, applyPayload(ev, ""))
}

func TestRenderEvent_Struct(t *testing.T) {
	ev := events.NewServerStarted(2)

	doc, err := renderEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, "ServerStartedEvent", gjson.Get(doc, "event").String())
	assert.Equal(t, int64(2), gjson.Get(doc, "fields.scripts").Int())
	assert.False(t, gjson.Get(doc, "cancelled").Exists())
	assert.False(t, gjson.Get(doc, "fields.Timestamp").Exists())
}
