package engine

import "errors"

var (
	// ErrInvalidMessage is returned when a message is missing its session
	// marker or the marker cannot be parsed. The whole batch is rejected.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrNotConfigured is returned when an engine dependency is missing.
	ErrNotConfigured = errors.New("engine not configured")
)
