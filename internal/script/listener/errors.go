package listener

import "errors"

// Sentinel errors for listeners and executors.
var (
	// ErrInvocation is returned when the script callback is missing or raises.
	ErrInvocation = errors.New("script invocation failed")

	// ErrInvalidExecutor is returned when an executor is built without an
	// engine or a callable name.
	ErrInvalidExecutor = errors.New("invalid executor")

	// ErrInvalidInstance is returned when a method executor's instance is not
	// a script object.
	ErrInvalidInstance = errors.New("invalid script instance")

	// ErrAlreadyBound is returned when a bound listener is bound again.
	ErrAlreadyBound = errors.New("listener already bound")

	// ErrReleased is returned when a released listener is bound.
	ErrReleased = errors.New("listener released")

	// ErrNoRegistrar is returned when a listener is bound without a registrar.
	ErrNoRegistrar = errors.New("no registrar")
)
