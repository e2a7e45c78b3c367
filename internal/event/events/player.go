package events

import "github.com/dshills/eventscript/internal/event"

// Player event types.
var (
	// TypePlayer is the abstract parent of player events.
	TypePlayer = event.NewType("host.event.player.PlayerEvent", event.Root, event.Abstract())

	// TypePlayerJoin is called when a player joins.
	TypePlayerJoin = event.NewType("host.event.player.PlayerJoinEvent", TypePlayer,
		event.WithHandlerList(),
		event.WithFactory(newPlayerJoin))

	// TypePlayerFirstJoin is called instead of TypePlayerJoin the first time
	// a player joins. It has no handler list of its own and is delivered
	// through TypePlayerJoin's.
	TypePlayerFirstJoin = event.NewType("host.event.player.PlayerFirstJoinEvent", TypePlayerJoin,
		event.WithFactory(newPlayerJoin))

	// TypePlayerQuit is called when a player leaves.
	TypePlayerQuit = event.NewType("host.event.player.PlayerQuitEvent", TypePlayer,
		event.WithHandlerList(),
		event.WithFactory(func(t *event.Type) event.Event {
			return &PlayerQuit{base: newBase(t)}
		}))

	// TypePlayerChat is called when a player sends a chat message.
	TypePlayerChat = event.NewType("host.event.player.PlayerChatEvent", TypePlayer,
		event.WithHandlerList(),
		event.WithFactory(func(t *event.Type) event.Event {
			return &PlayerChat{base: newBase(t)}
		}))
)

// PlayerJoin is called when a player joins. The same payload is used for
// TypePlayerJoin and TypePlayerFirstJoin.
type PlayerJoin struct {
	base

	Player      string `json:"player"`
	JoinMessage string `json:"joinMessage"`
}

func newPlayerJoin(t *event.Type) event.Event {
	return &PlayerJoin{base: newBase(t)}
}

// NewPlayerJoin creates a PlayerJoin event.
func NewPlayerJoin(player, message string) *PlayerJoin {
	return &PlayerJoin{base: newBase(TypePlayerJoin), Player: player, JoinMessage: message}
}

// NewPlayerFirstJoin creates a first-join event.
func NewPlayerFirstJoin(player, message string) *PlayerJoin {
	return &PlayerJoin{base: newBase(TypePlayerFirstJoin), Player: player, JoinMessage: message}
}

// PlayerQuit is called when a player leaves.
type PlayerQuit struct {
	base

	Player      string `json:"player"`
	QuitMessage string `json:"quitMessage"`
}

// NewPlayerQuit creates a PlayerQuit event.
func NewPlayerQuit(player, message string) *PlayerQuit {
	return &PlayerQuit{base: newBase(TypePlayerQuit), Player: player, QuitMessage: message}
}

// PlayerChat is called when a player sends a chat message. Cancelling it
// stops the message from being broadcast.
type PlayerChat struct {
	base
	event.Cancellation

	Player  string `json:"player"`
	Message string `json:"message"`
}

// NewPlayerChat creates a PlayerChat event.
func NewPlayerChat(player, message string) *PlayerChat {
	return &PlayerChat{base: newBase(TypePlayerChat), Player: player, Message: message}
}
