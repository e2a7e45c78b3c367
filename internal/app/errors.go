package app

import "errors"

// Application errors.
var (
	// ErrAlreadyRunning indicates Start was called twice.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNotRunning indicates the application has not been started or was
	// shut down.
	ErrNotRunning = errors.New("application not running")

	// ErrNotInstantiable indicates an event type that cannot be built by
	// name, such as an abstract type.
	ErrNotInstantiable = errors.New("event type cannot be instantiated")
)

// InitError reports a component that failed to initialize.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
