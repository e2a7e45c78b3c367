package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution times out.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrFunctionNotFound is returned when a named global or field is nil.
	ErrFunctionNotFound = errors.New("lua function not found")

	// ErrNotCallable is returned when a named value is not a function.
	ErrNotCallable = errors.New("lua value is not callable")

	// ErrNotInstance is returned when a method receiver is not a table or userdata.
	ErrNotInstance = errors.New("lua value is not an object")
)
