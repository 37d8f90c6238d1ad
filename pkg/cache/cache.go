// Package cache provides pluggable response caching for texpm.
//
// Three backends are available:
//   - FileCache: directory-backed cache for normal CLI usage
//   - RedisCache: shared cache for CI runners and build farms
//   - NullCache: disables caching entirely
//
// The backend is selected through the global configuration key
// "cache_backend" (file, redis, or none). Cached payloads are opaque
// byte slices; callers are responsible for serialization.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the interface implemented by all cache backends.
// Implementations must be safe for sequential use from a single
// goroutine; texpm performs no concurrent cache access.
type Cache interface {
	// Get retrieves a value. The second return value reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
