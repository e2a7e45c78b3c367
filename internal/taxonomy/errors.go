package taxonomy

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy.
var (
	// ErrNotFound is returned when an event name is not in the taxonomy.
	ErrNotFound = errors.New("event type not found")

	// ErrMisconfiguredType is returned when neither a type nor any of its
	// ancestors declares a handler list.
	ErrMisconfiguredType = errors.New("event type has no handler list")

	// ErrDuplicateModule is returned when a module name is registered twice.
	ErrDuplicateModule = errors.New("module already registered")

	// ErrModuleNotFound is returned when a required module is not in the
	// catalog.
	ErrModuleNotFound = errors.New("module not found")

	// ErrInvalidManifest is returned when a manifest fails validation.
	ErrInvalidManifest = errors.New("invalid event manifest")
)

// ModuleError reports a module that could not be opened.
type ModuleError struct {
	Module string
	Err    error
}

// Error implements the error interface.
func (e *ModuleError) Error() string {
	return fmt.Sprintf("open module %s: %v", e.Module, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModuleError) Unwrap() error {
	return e.Err
}
