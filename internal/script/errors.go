package script

import "errors"

// Sentinel errors for sessions and the loader.
var (
	// ErrValidation is returned for missing or malformed registration
	// arguments.
	ErrValidation = errors.New("invalid listener registration")

	// ErrSessionUnloaded is returned when registering on an unloaded session.
	ErrSessionUnloaded = errors.New("session unloaded")

	// ErrDuplicateScript is returned when a script name is already loaded.
	ErrDuplicateScript = errors.New("script already loaded")

	// ErrScriptNotFound is returned when unloading an unknown script.
	ErrScriptNotFound = errors.New("script not found")
)
