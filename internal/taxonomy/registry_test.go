package taxonomy

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/eventscript/internal/event"
	"github.com/dshills/eventscript/internal/event/events"
	"github.com/dshills/eventscript/internal/observability"
)

type hostTypes struct {
	player, join, firstJoin, chat, tick *event.Type
	marker, spawn                       *event.Type
	outside                             *event.Type
	unlisted                            *event.Type
}

func newHostTypes() hostTypes {
	player := event.NewType("host.event.player.PlayerEvent", event.Root, event.Abstract())
	join := event.NewType("host.event.player.PlayerJoinEvent", player, event.WithHandlerList())
	return hostTypes{
		player:    player,
		join:      join,
		firstJoin: event.NewType("host.event.player.PlayerFirstJoinEvent", join),
		chat:      event.NewType("host.event.player.PlayerChatEvent", player, event.WithHandlerList()),
		tick:      event.NewType("host.event.server.TickEvent", event.Root, event.Internal(), event.WithHandlerList()),
		marker:    event.NewType(events.ExtensionMarker, nil),
		spawn:     event.NewType("ext.event.player.PlayerSpawnLocationEvent", player, event.WithHandlerList()),
		outside:   event.NewType("host.util.NotAnEvent", event.Root),
		unlisted:  event.NewType("host.event.misc.UnlistedEvent", event.Root),
	}
}

func (h hostTypes) catalog(t *testing.T, withMarker bool) *Catalog {
	t.Helper()
	c := NewCatalog()
	require.NoError(t, c.Register(NewStaticModule(HostModule,
		h.player, h.join, h.firstJoin, h.chat, h.tick, h.outside, h.unlisted)))
	require.NoError(t, c.Register(NewStaticModule(ExtensionModule, h.marker, h.spawn)))
	c.Provide(h.player, h.join, h.firstJoin, h.chat, h.tick)
	if withMarker {
		c.Provide(h.marker)
	}
	return c
}

type failingModule struct{ name string }

func (m failingModule) Name() string                 { return m.name }
func (m failingModule) Open() ([]*event.Type, error) { return nil, errors.New("archive unreadable") }

func TestRegistry_Initialize(t *testing.T) {
	h := newHostTypes()
	r := New(h.catalog(t, false))

	require.NoError(t, r.Initialize())

	assert.Equal(t, []string{"PlayerChatEvent", "PlayerFirstJoinEvent", "PlayerJoinEvent", "UnlistedEvent"}, r.Names())
	assert.Equal(t, 4, r.Len())
	assert.False(t, r.IsKnown("PlayerEvent"), "abstract types are skipped")
	assert.False(t, r.IsKnown("TickEvent"), "internal types are skipped")
	assert.False(t, r.IsKnown("NotAnEvent"), "types outside the pattern are skipped")
	assert.False(t, r.IsKnown("PlayerSpawnLocationEvent"), "extension scan needs the marker")
	assert.True(t, r.Scanned(HostModule))
	assert.False(t, r.Scanned(ExtensionModule))
}

func TestRegistry_InitializeWithExtension(t *testing.T) {
	h := newHostTypes()
	r := New(h.catalog(t, true))

	require.NoError(t, r.Initialize())

	got, err := r.Resolve("PlayerSpawnLocationEvent")
	require.NoError(t, err)
	assert.Same(t, h.spawn, got)
	assert.False(t, r.IsKnown("ExtensionConfig"), "the marker is not an event")
	assert.True(t, r.Scanned(ExtensionModule))
}

func TestRegistry_DefaultMarkerIsBundledExtensionType(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(NewStaticModule(HostModule)))
	require.NoError(t, c.Register(NewStaticModule(ExtensionModule, events.Extension()...)))
	c.Provide(events.Extension()...)

	r := New(c)
	require.NoError(t, r.Initialize())

	typ, err := r.Resolve("PlayerSpawnLocationEvent")
	require.NoError(t, err)
	assert.Same(t, events.TypePlayerSpawnLocation, typ)
	assert.True(t, r.Scanned(ExtensionModule))
}

func TestRegistry_InitializeErrors(t *testing.T) {
	t.Run("missing host module", func(t *testing.T) {
		r := New(NewCatalog())
		assert.ErrorIs(t, r.Initialize(), ErrModuleNotFound)
	})

	t.Run("unreadable host module", func(t *testing.T) {
		c := NewCatalog()
		require.NoError(t, c.Register(failingModule{name: HostModule}))
		err := New(c).Initialize()

		var me *ModuleError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, HostModule, me.Module)
	})

	t.Run("marker without extension module", func(t *testing.T) {
		c := NewCatalog()
		require.NoError(t, c.Register(NewStaticModule(HostModule)))
		c.Provide(event.NewType(events.ExtensionMarker, nil))
		assert.ErrorIs(t, New(c).Initialize(), ErrModuleNotFound)
	})
}

func TestRegistry_InitializeIsIdempotent(t *testing.T) {
	h := newHostTypes()
	r := New(h.catalog(t, false))

	require.NoError(t, r.Initialize())
	require.NoError(t, r.Initialize())
	assert.Equal(t, 4, r.Len())
}

func TestRegistry_Resolve(t *testing.T) {
	h := newHostTypes()
	r := New(h.catalog(t, false))
	require.NoError(t, r.Initialize())

	got, err := r.Resolve("PlayerJoinEvent")
	require.NoError(t, err)
	assert.Same(t, h.join, got)

	got, err = r.Resolve("host.event.player.PlayerChatEvent")
	require.NoError(t, err)
	assert.Same(t, h.chat, got, "qualified names resolve too")

	_, err = r.Resolve("Join")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `"Join"`)
}

func TestRegistry_FirstWins(t *testing.T) {
	h := newHostTypes()
	c := h.catalog(t, false)
	impostor := event.NewType("plugin.rival.event.PlayerJoinEvent", event.Root, event.WithHandlerList())
	fresh := event.NewType("plugin.rival.event.RivalEvent", event.Root, event.WithHandlerList())
	require.NoError(t, c.Register(NewStaticModule("rival", impostor, fresh)))

	r := New(c)
	require.NoError(t, r.Initialize())

	ok, err := r.InitializePlugin("rival")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.Resolve("PlayerJoinEvent")
	require.NoError(t, err)
	assert.Same(t, h.join, got, "host type keeps the name")

	got, err = r.Resolve("plugin.rival.event.PlayerJoinEvent")
	require.NoError(t, err)
	assert.Same(t, impostor, got)

	assert.True(t, r.IsKnown("RivalEvent"))
}

func TestRegistry_InitializePlugin(t *testing.T) {
	h := newHostTypes()
	c := h.catalog(t, false)
	quest := event.NewType("plugin.quests.event.QuestEvent", event.Root, event.WithHandlerList())
	require.NoError(t, c.Register(NewStaticModule("quests", quest)))
	require.NoError(t, c.Register(NewStaticModule("nothing")))
	require.NoError(t, c.Register(failingModule{name: "broken"}))
	r := New(c)

	ok, err := r.InitializePlugin("quests")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, r.IsKnown("QuestEvent"))

	ok, err = r.InitializePlugin("quests")
	require.NoError(t, err)
	assert.False(t, ok, "already scanned")

	ok, err = r.InitializePlugin("nothing")
	require.NoError(t, err)
	assert.True(t, ok, "a scan without new types still succeeds")

	ok, err = r.InitializePlugin("absent")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.InitializePlugin("broken")
	assert.False(t, ok)
	var me *ModuleError
	assert.ErrorAs(t, err, &me)
	assert.False(t, r.Scanned("broken"), "failed scans can be retried")
}

func TestRegistry_InitializeManifestModule(t *testing.T) {
	h := newHostTypes()
	c := h.catalog(t, false)
	path := filepath.Join(t.TempDir(), "quests.yaml")
	writeFile(t, path, questManifest)
	m := NewManifestModule("quests", path, c.LookupType)

	r := New(c)
	ok, err := r.InitializeModule(m)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"PlayerQuestEvent", "QuestCompleteEvent", "QuestStartEvent"}, r.Names())

	playerQuest, err := r.Resolve("PlayerQuestEvent")
	require.NoError(t, err)
	assert.Same(t, h.player, playerQuest.Parent())

	_, ok = c.LookupType("plugin.quests.event.QuestEvent")
	assert.True(t, ok, "scanned types become known to the catalog")

	ok, err = r.InitializeModule(m)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_Endpoint(t *testing.T) {
	h := newHostTypes()
	r := New(h.catalog(t, false))

	list, err := r.Endpoint(h.join)
	require.NoError(t, err)
	assert.Same(t, h.join.DeclaredHandlerList(), list)

	list, err = r.Endpoint(h.firstJoin)
	require.NoError(t, err)
	assert.Same(t, h.join.DeclaredHandlerList(), list, "inherits the parent's list")

	deep := event.NewType("host.event.player.VeryFirstJoinEvent", h.firstJoin)
	list, err = r.Endpoint(deep)
	require.NoError(t, err)
	assert.Same(t, h.join.DeclaredHandlerList(), list, "climbs as many levels as needed")

	_, err = r.Endpoint(h.unlisted)
	assert.ErrorIs(t, err, ErrMisconfiguredType)

	_, err = r.Endpoint(nil)
	assert.ErrorIs(t, err, ErrMisconfiguredType)
}

func TestRegistry_RecordsDiscoveredTypes(t *testing.T) {
	ctx := context.Background()
	collector := observability.NewCollector()
	defer collector.Shutdown(ctx)

	h := newHostTypes()
	r := New(h.catalog(t, false), WithMetrics(observability.NewMetricsRecorder(collector.MeterProvider())))
	require.NoError(t, r.Initialize())

	samples, err := collector.Snapshot(ctx)
	require.NoError(t, err)

	var found bool
	for _, s := range samples {
		if s.Name == observability.MetricTypesDiscovered {
			found = true
			assert.Equal(t, float64(4), s.Value)
			assert.Contains(t, s.Attributes, "module=host")
		}
	}
	assert.True(t, found)
}
