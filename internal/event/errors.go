package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrBusNotRunning is returned when events are called on a stopped bus.
	ErrBusNotRunning = errors.New("event bus is not running")

	// ErrBusAlreadyRunning is returned when Start is called on a running bus.
	ErrBusAlreadyRunning = errors.New("event bus is already running")

	// ErrInvalidEvent is returned for nil events or events without a type.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrNoHandlerList is returned when neither a type nor any ancestor
	// declares a handler list.
	ErrNoHandlerList = errors.New("no handler list on type hierarchy")

	// ErrInvalidPriority is returned for unknown priority names.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrAlreadyRegistered is returned when a handler is registered twice on
	// the same handler list.
	ErrAlreadyRegistered = errors.New("handler already registered")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")
)

// DeliveryError reports a handler failure during delivery of one event.
type DeliveryError struct {
	// Type is the runtime type of the event being delivered.
	Type *Type

	// Handler describes the failing handler.
	Handler string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("could not pass event %s to %s: %v", e.Type.SimpleName(), e.Handler, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic value as an error.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
