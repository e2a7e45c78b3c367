package listener

import (
	"cmp"
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/dshills/eventscript/internal/event"
)

// State is the binding state of a Listener.
type State int

const (
	// StateUnbound listeners have not been registered yet.
	StateUnbound State = iota

	// StateBound listeners are registered on a handler list.
	StateBound

	// StateReleased listeners were unbound and are discarded.
	StateReleased
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Registrar adds and removes handlers on the handler list serving an event
// type. event.Bus implements it.
type Registrar interface {
	Register(t *event.Type, rl event.RegisteredListener) error
	Unregister(t *event.Type, h event.Handler) bool
}

// Listener couples an executor to the one event type it handles. It
// implements event.Handler and is what gets registered on the handler list.
type Listener[E Executor[E]] struct {
	executor  E
	eventType *event.Type

	mu        sync.Mutex
	state     State
	registrar Registrar
}

// New creates an unbound listener.
func New[E Executor[E]](executor E, eventType *event.Type) *Listener[E] {
	return &Listener[E]{executor: executor, eventType: eventType}
}

// Executor returns the executor.
func (l *Listener[E]) Executor() E { return l.executor }

// EventType returns the declared event type.
func (l *Listener[E]) EventType() *event.Type { return l.eventType }

// State returns the binding state.
func (l *Listener[E]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Handle invokes the executor with ev as its only argument when ev is
// exactly of the declared type. Events of subtypes, supertypes and siblings
// sharing the handler list are ignored.
//
// Executor errors and panics are returned as *event.DeliveryError.
func (l *Listener[E]) Handle(ctx context.Context, ev event.Event) (err error) {
	if ev == nil || ev.EventType() != l.eventType {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = l.deliveryError(&event.PanicError{Value: r, Stack: string(debug.Stack())})
		}
	}()

	if err := l.executor.Execute(ctx, ev); err != nil {
		return l.deliveryError(err)
	}
	return nil
}

func (l *Listener[E]) deliveryError(err error) error {
	return &event.DeliveryError{Type: l.eventType, Handler: l.String(), Err: err}
}

// Bind registers the listener through reg on the handler list serving its
// event type. A listener is bound at most once.
func (l *Listener[E]) Bind(reg Registrar, priority event.Priority, ignoreCancelled bool, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateBound:
		return ErrAlreadyBound
	case StateReleased:
		return ErrReleased
	}
	if reg == nil {
		return ErrNoRegistrar
	}

	err := reg.Register(l.eventType, event.RegisteredListener{
		Handler:         l,
		Priority:        priority,
		IgnoreCancelled: ignoreCancelled,
		Owner:           owner,
	})
	if err != nil {
		return err
	}
	l.registrar = reg
	l.state = StateBound
	return nil
}

// Unbind removes the listener from its handler list and releases it. It
// reports whether the handler list still held the listener.
func (l *Listener[E]) Unbind() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateBound {
		return false
	}
	removed := l.registrar.Unregister(l.eventType, l)
	l.registrar = nil
	l.state = StateReleased
	return removed
}

// Compare orders listeners by event type, executor kind, then executor.
func (l *Listener[E]) Compare(other *Listener[E]) int {
	if c := cmp.Compare(l.eventType.Ordinal(), other.eventType.Ordinal()); c != 0 {
		return c
	}
	if c := cmp.Compare(l.executor.Kind(), other.executor.Kind()); c != 0 {
		return c
	}
	return l.executor.Compare(other.executor)
}

// Equal reports whether both listeners have the same event type and an
// equal executor.
func (l *Listener[E]) Equal(other *Listener[E]) bool {
	return l.eventType == other.eventType && l.executor.Compare(other.executor) == 0
}

func (l *Listener[E]) String() string {
	return fmt.Sprintf("%s %s(%s)", l.executor.Kind(), l.executor, l.eventType.SimpleName())
}
