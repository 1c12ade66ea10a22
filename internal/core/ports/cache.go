package ports

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value cache used for cache-aside lookups.
// Errors are advisory: callers fall back to the primary store.
type Cache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key; ttl <= 0 stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
