package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/eventscript/internal/event"
)

const questManifest = `
version: "1.0"
description: Quest events
events:
  - name: plugin.quests.event.QuestEvent
    abstract: true
    handlerList: true
  - name: plugin.quests.event.QuestStartEvent
    parent: plugin.quests.event.QuestEvent
    fields:
      quest: unknown
      reward: 10
  - name: plugin.quests.event.QuestCompleteEvent
    parent: plugin.quests.event.QuestEvent
  - name: plugin.quests.event.PlayerQuestEvent
    parent: host.event.player.PlayerEvent
    handlerList: true
  - name: plugin.quests.event.OrphanEvent
    parent: plugin.missing.event.MissingEvent
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(questManifest))
	require.NoError(t, err)

	assert.Equal(t, "1.0", m.Version)
	require.Len(t, m.Events, 5)
	assert.True(t, m.Events[0].Abstract)
	assert.True(t, m.Events[0].HandlerList)
	assert.Equal(t, "plugin.quests.event.QuestEvent", m.Events[1].Parent)
	assert.Equal(t, map[string]any{"quest": "unknown", "reward": 10}, m.Events[1].Fields)
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ``},
		{"not yaml", "events: [\n"},
		{"missing events", `version: "1"`},
		{"event without name", "events:\n  - parent: x\n"},
		{"bad name", "events:\n  - name: \"has space\"\n"},
		{"unknown key", "events:\n  - name: a.B\n    priority: high\n"},
		{"wrong type", "events:\n  - name: a.B\n    abstract: maybe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}

func TestManifestModule_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quests.yaml")
	writeFile(t, path, questManifest)

	player := event.NewType("host.event.player.PlayerEvent", event.Root, event.Abstract())
	lookup := func(name string) (*event.Type, bool) {
		if name == player.Name() {
			return player, true
		}
		return nil, false
	}

	m := NewManifestModule("quests", path, lookup)
	assert.Nil(t, m.Manifest())

	types, err := m.Open()
	require.NoError(t, err)
	require.Len(t, types, 4, "orphan with unresolved parent is skipped")
	require.NotNil(t, m.Manifest())

	quest, start, complete, playerQuest := types[0], types[1], types[2], types[3]
	assert.True(t, quest.IsAbstract())
	assert.Same(t, quest, start.Parent())
	assert.Same(t, player, playerQuest.Parent())

	list, ok := complete.HandlerList()
	require.True(t, ok)
	assert.Same(t, quest.DeclaredHandlerList(), list)

	again, err := m.Open()
	require.NoError(t, err)
	assert.Equal(t, types, again, "descriptors are stable across opens")

	ev, ok := start.New()
	require.True(t, ok)
	dyn, ok := ev.(*event.Dynamic)
	require.True(t, ok)
	assert.Same(t, start, dyn.EventType())
	v, _ := dyn.Get("quest")
	assert.Equal(t, "unknown", v)
	assert.Equal(t, "quests", dyn.Source)

	_, ok = quest.New()
	assert.False(t, ok, "abstract types cannot be instantiated")
}

func TestManifestModule_OpenErrors(t *testing.T) {
	_, err := NewManifestModule("missing", filepath.Join(t.TempDir(), "nope.yaml"), nil).Open()
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "events: 3\n")
	_, err = NewManifestModule("bad", path, nil).Open()
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestDiscoverManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "quests", ManifestFile), questManifest)
	writeFile(t, filepath.Join(dir, "economy.yml"), "events: []\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))

	modules, err := DiscoverManifests(dir, nil)
	require.NoError(t, err)

	var names []string
	for _, m := range modules {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"economy", "quests"}, names)
	assert.Equal(t, filepath.Join(dir, "quests", ManifestFile), modules[1].Path())
}

func TestDiscoverManifests_MissingDir(t *testing.T) {
	modules, err := DiscoverManifests(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.Empty(t, modules)
}
