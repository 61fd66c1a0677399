// Package cache stores fetched responses, computed layouts and rendered
// artifacts behind a small key/value interface.
//
// Three backends are provided: [FileCache] for the CLI, [RedisCache] for the
// server, and [NullCache] when caching is disabled. Keys are built by a
// [Keyer] so the pipeline never assembles key strings by hand.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored bytes and true on a hit. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Default lifetimes per entry type. Layouts and artifacts are pure functions
// of their inputs, so they live longer than backend responses.
const (
	TTLResponse = 1 * time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Key types reported to observability hooks.
const (
	KeyTypeResponse = "response"
	KeyTypeLayout   = "layout"
	KeyTypeArtifact = "artifact"
)
