package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails (e.g. empty primary key).
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable is returned when the persistence engine cannot be opened.
	// Callers are expected to degrade to a memory-only backend.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
