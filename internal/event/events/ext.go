package events

import "github.com/dshills/eventscript/internal/event"

// ExtensionMarker is the qualified name of the type whose presence signals
// that the extension is installed.
const ExtensionMarker = "ext.ExtensionConfig"

// Extension types.
var (
	// TypeExtensionConfig marks the extension as installed. It is not an event.
	TypeExtensionConfig = event.NewType(ExtensionMarker, nil)

	// TypePlayerSpawnLocation is called when the host picks where a joining
	// player spawns.
	TypePlayerSpawnLocation = event.NewType("ext.event.player.PlayerSpawnLocationEvent", TypePlayer,
		event.WithHandlerList(),
		event.WithFactory(func(t *event.Type) event.Event {
			return &PlayerSpawnLocation{base: newBase(t)}
		}))
)

// Extension returns the extension's types, the marker included.
func Extension() []*event.Type {
	return []*event.Type{TypeExtensionConfig, TypePlayerSpawnLocation}
}

// PlayerSpawnLocation is called when the host picks where a joining player
// spawns. Handlers may move the spawn point.
type PlayerSpawnLocation struct {
	base

	Player   string   `json:"player"`
	Position Position `json:"position"`
}

// NewPlayerSpawnLocation creates a PlayerSpawnLocation event.
func NewPlayerSpawnLocation(player string, pos Position) *PlayerSpawnLocation {
	return &PlayerSpawnLocation{base: newBase(TypePlayerSpawnLocation), Player: player, Position: pos}
}
