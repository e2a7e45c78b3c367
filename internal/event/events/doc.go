// Package events defines the host's bundled event types.
//
// Host events live under the host.event namespace and are grouped by
// subject:
//
//   - Server events: startup, console commands, ticks
//   - Player events: join, first join, quit, chat
//   - Block events: break, place
//
// The optional extension adds events under ext.event. Its presence is
// advertised by the ExtensionConfig marker type, which is not itself an event.
//
// Each event type has a *event.Type descriptor (TypePlayerJoin, ...) and a
// payload struct built with its constructor:
//
//	ev := events.NewPlayerJoin("alice", "alice joined the game")
//	err := bus.Call(ctx, ev)
//
// Events can also be built by name through the descriptor's factory, which
// the console uses for events fired interactively:
//
//	ev, ok := events.TypePlayerChat.New()
package events

import "github.com/dshills/eventscript/internal/event"

// base carries the fields shared by every bundled event.
type base struct {
	event.Metadata
	typ *event.Type
}

func newBase(t *event.Type) base {
	return base{Metadata: event.NewMetadata("host"), typ: t}
}

// EventType implements event.Event.
func (b *base) EventType() *event.Type {
	return b.typ
}

// Host returns every type bundled with the host, abstract and internal
// types included.
func Host() []*event.Type {
	return []*event.Type{
		TypeServer,
		TypeServerStarted,
		TypeServerCommand,
		TypeServerTick,
		TypePlayer,
		TypePlayerJoin,
		TypePlayerFirstJoin,
		TypePlayerQuit,
		TypePlayerChat,
		TypeBlock,
		TypeBlockBreak,
		TypeBlockPlace,
	}
}
