// Package event provides the host's typed event model and the bus that
// delivers events to registered handlers.
//
// # Event Types
//
// Every event class is described by a *Type: a qualified dot-separated name
// (host.event.player.PlayerJoinEvent), a parent type and flags. All host
// events descend from Root. Types are compared by identity, never by name.
//
//	Root (Event)
//	 └── host.event.player.PlayerEvent        abstract
//	      ├── host.event.player.PlayerJoinEvent     declares a HandlerList
//	      │    └── host.event.player.PlayerFirstJoinEvent
//	      └── host.event.player.PlayerChatEvent     declares a HandlerList
//
// # Handler Lists
//
// A HandlerList is the dispatch endpoint of the type that declares it. An
// event is delivered through the nearest list on its type's ancestor chain,
// so PlayerFirstJoinEvent above is delivered to every handler registered
// for PlayerJoinEvent. Handlers that only want one exact type must filter
// on ev.EventType() themselves.
//
// # Priority Ordering
//
// Handlers execute from PriorityLowest to PriorityMonitor. Handlers of the
// same priority run in registration order. A handler registered with
// IgnoreCancelled is skipped once a Cancellable event has been cancelled.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//	if err := bus.Start(); err != nil {
//	    return err
//	}
//	defer bus.Stop()
//
//	err := bus.Register(events.TypePlayerJoin, event.RegisteredListener{
//	    Handler:  handler,
//	    Priority: event.PriorityNormal,
//	})
//
//	err = bus.Call(ctx, &events.PlayerJoin{Player: "alice"})
//
// # Failure Handling
//
// Errors and panics from handlers are recovered by the dispatch package,
// logged with slog, counted and returned joined from Call as *DeliveryError
// values. They never interrupt delivery to the remaining handlers.
//
// # Thread Safety
//
// The Bus and HandlerList are safe for concurrent use. Handlers may register
// and unregister while an event is being delivered; the change takes effect
// for the next event.
//
// # Subpackages
//
//   - events: the host's bundled event types
//   - dispatch: synchronous handler execution with panic recovery
package event
