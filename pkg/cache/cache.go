// Package cache provides byte caches for fetched textures and rendered
// artifacts.
//
// A [Cache] stores opaque byte slices under string keys with an optional
// TTL. Implementations:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for the API server
//   - [NullCache]: stores nothing, for tests or when caching is disabled
//
// Keys are built by a [Keyer] so that every producer hashes its inputs the
// same way. [NewScopedKeyer] prefixes keys, e.g. per asset root.
package cache

import (
	"context"
	"time"
)

// Cache is a key-value store for byte slices.
type Cache interface {
	// Get returns the value for key. hit is false on a miss or an expired
	// entry; err is reserved for backend failures.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
