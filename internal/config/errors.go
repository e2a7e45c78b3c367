package config

import "errors"

// Errors returned by configuration operations.
var (
	// ErrInvalidConfig indicates a value failed decoding or validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)
