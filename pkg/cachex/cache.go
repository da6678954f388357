package cachex

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a key that is absent or already expired.
var ErrNotFound = errors.New("cachex: key not found")

// Cache is a key-value store with per-key expiry. The auth core uses it for
// session blacklist entries, per-user revocation thresholds and the
// rate-limit counters. Implementations must provide atomic Incr so callers
// never fall back to read-modify-write loops.
type Cache interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Incr atomically increments the integer value at key, creating it at 1
	// when absent, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire resets the ttl of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
