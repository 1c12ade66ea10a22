package ports

import (
	"context"
	"time"

	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
)

// CounterStore is the shared key-value store behind the rate limiter.
// Implementations must make Increment atomic across every service instance;
// that primitive is the only thing the limiter relies on for correctness.
type CounterStore interface {
	// Increment atomically adds one to key and returns the post-increment value.
	Increment(ctx context.Context, key string) (int64, error)
	// Expire sets the time-to-live of key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining time-to-live of key. A negative value means the
	// key has no expiry (or does not exist).
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// AtomicCounterStore can increment and set a missing expiry in one round trip.
type AtomicCounterStore interface {
	CounterStore
	// IncrementWithExpiry increments key, applies ttl when the key has no expiry,
	// and returns the new count with the remaining time-to-live.
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
}

// RateLimiter counts events in epoch-aligned fixed windows.
// Implementations MUST be safe for concurrent use by many instances.
type RateLimiter interface {
	// Hit records one event for key and reports whether it fits within limit
	// events per window.
	Hit(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error)
}
