package cache

import "errors"

// Sentinel errors for caching operations.
var (
	// ErrEmptyKey is returned when a cache operation is given an empty key.
	ErrEmptyKey = errors.New("cache: empty key")

	// ErrUnknownBackend is returned by Open for an unrecognised backend name.
	ErrUnknownBackend = errors.New("cache: unknown backend")
)
