package store

import "errors"

var (
	// ErrNotFound is returned when a record is not in the store.
	ErrNotFound = errors.New("record not found")

	// ErrDimensionMismatch is returned when an embedding's length does not
	// equal the store's configured dimension. This is a fatal configuration
	// error, not a per-record condition.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrImmutableField names an attempt to change a write-once field. The
	// drivers in this module do not return it: Patch has no slot for
	// write-once fields.
	ErrImmutableField = errors.New("immutable field")
)
