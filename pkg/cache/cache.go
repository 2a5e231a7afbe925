// Package cache stores computed layouts so repeated force-directed runs over
// the same graph are served without iterating again.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry below a directory, for the CLI
//   - [RedisCache]: shared cache for servers, via go-redis
//   - [NullCache]: disables caching
//
// # Keys
//
// A [Keyer] derives cache keys. [DefaultKeyer] hashes the graph hash together
// with the layout kind and configuration; [ScopedKeyer] prefixes keys so
// several tenants can share one backend.
//
// [LayoutCache] is the typed front end the session uses. It reports hits,
// misses and writes to [observability.Cache].
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value stored under key and whether it was found.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// LayoutKeyOpts are the layout parameters that change a layout result.
type LayoutKeyOpts struct {
	Kind   string `json:"kind"`
	Config any    `json:"config"`
}

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey returns the key of a layout computed for graphHash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
}

// DefaultKeyer hashes all key components.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey returns "layout:" followed by a SHA-256 of the inputs.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}
