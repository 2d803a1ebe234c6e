// Package cache stores solved assignments keyed by instance content.
//
// Searches are deterministic, so the result for a given instance and strategy
// never changes. The pipeline looks a solution up before searching and stores
// it afterwards. Three backends are provided:
//
//   - [FileCache] for the command line, one JSON file per entry
//   - [RedisCache] for the HTTP server, shared across replicas
//   - [NullCache] when caching is disabled
//
// Keys come from a [Keyer], which hashes the canonical instance text together
// with everything else that influences the result.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}
