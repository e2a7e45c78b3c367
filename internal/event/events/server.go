package events

import "github.com/dshills/eventscript/internal/event"

// Server event types.
var (
	// TypeServer is the abstract parent of server events.
	TypeServer = event.NewType("host.event.server.ServerEvent", event.Root, event.Abstract())

	// TypeServerStarted is called once the host finished starting.
	TypeServerStarted = event.NewType("host.event.server.ServerStartedEvent", TypeServer,
		event.WithHandlerList(),
		event.WithFactory(func(t *event.Type) event.Event {
			return &ServerStarted{base: newBase(t)}
		}))

	// TypeServerCommand is called when a command is entered on the console.
	TypeServerCommand = event.NewType("host.event.server.ServerCommandEvent", TypeServer,
		event.WithHandlerList(),
		event.WithFactory(func(t *event.Type) event.Event {
			return &ServerCommand{base: newBase(t)}
		}))

	// TypeServerTick is called on every host tick. It is internal to the host
	// and not available to scripts.
	TypeServerTick = event.NewType("host.event.server.ServerTickEvent", TypeServer,
		event.Internal(),
		event.WithHandlerList(),
		event.WithFactory(func(t *event.Type) event.Event {
			return &ServerTick{base: newBase(t)}
		}))
)

// ServerStarted is called once the host finished starting.
type ServerStarted struct {
	base

	// Scripts is the number of scripts loaded at startup.
	Scripts int `json:"scripts"`
}

// NewServerStarted creates a ServerStarted event.
func NewServerStarted(scripts int) *ServerStarted {
	return &ServerStarted{base: newBase(TypeServerStarted), Scripts: scripts}
}

// ServerCommand is called when a command is entered on the console.
// Cancelling it suppresses the built-in handling of the command.
type ServerCommand struct {
	base
	event.Cancellation

	Sender  string `json:"sender"`
	Command string `json:"command"`
}

// NewServerCommand creates a ServerCommand event.
func NewServerCommand(sender, command string) *ServerCommand {
	return &ServerCommand{base: newBase(TypeServerCommand), Sender: sender, Command: command}
}

// ServerTick is called on every host tick.
type ServerTick struct {
	base

	Tick uint64 `json:"tick"`
}
