package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
	"github.com/shopstack/auth-service/internal/core/ports"
)

// RateLimiterService implements RateLimiter with epoch-aligned fixed windows
// on top of a shared CounterStore.
//
// In two-step mode the INCR and EXPIRE are separate round trips. A reader in
// between sees a key without TTL (reported as reset "now"), and a writer that
// dies between them leaves a counter that outlives its window. Atomic mode
// runs both in one script and heals such keys on the next hit.
type RateLimiterService struct {
	store        ports.CounterStore
	atomicStore  ports.AtomicCounterStore
	storeTimeout time.Duration
	now          func() time.Time
	logger       *logrus.Logger
	// set once the store rejected the script; later hits use two-step
	scriptsOff atomic.Bool
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	Atomic       bool
	StoreTimeout time.Duration
}

// RateLimiterOption customizes a RateLimiterService.
type RateLimiterOption func(*RateLimiterService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(s *RateLimiterService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRateLimiterService(store ports.CounterStore, cfg *RateLimiterConfig, logger *logrus.Logger, opts ...RateLimiterOption) (*RateLimiterService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: counter store is required", ratelimit.ErrConfiguration)
	}
	timeout := 250 * time.Millisecond
	useAtomic := true
	if cfg != nil {
		if cfg.StoreTimeout < 0 {
			return nil, fmt.Errorf("%w: store timeout must be positive", ratelimit.ErrConfiguration)
		}
		if cfg.StoreTimeout > 0 {
			timeout = cfg.StoreTimeout
		}
		useAtomic = cfg.Atomic
	}
	s := &RateLimiterService{store: store, storeTimeout: timeout, now: time.Now, logger: logger}
	if useAtomic {
		if as, ok := store.(ports.AtomicCounterStore); ok {
			s.atomicStore = as
		} else if logger != nil {
			logger.Warn("rate limiter: store has no atomic increment, using two-step mode")
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Hit implements RateLimiter.Hit. The window must be a whole number of
// seconds since counters are bucketed by unix second.
func (s *RateLimiterService) Hit(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	if limit <= 0 || window < time.Second || window%time.Second != 0 {
		return ratelimit.Decision{}, fmt.Errorf("%w: limit=%d window=%s", ratelimit.ErrConfiguration, limit, window)
	}
	windowSeconds := int64(window / time.Second)
	now := s.now().Unix()
	counterKey := fmt.Sprintf("%s:%d", key, now/windowSeconds)

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	count, ttl, err := s.increment(ctx, counterKey, window)
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("%w: %w", ratelimit.ErrStoreUnavailable, err)
	}

	ttlSeconds := int64(ttl / time.Second)
	if ttlSeconds < 0 {
		ttlSeconds = 0
	}
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	d := ratelimit.Decision{
		Allowed:    count <= int64(limit),
		Remaining:  int(remaining),
		ResetEpoch: now + ttlSeconds,
		Count:      count,
		Limit:      limit,
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": counterKey, "count": count, "limit": limit, "ttl": ttlSeconds}).Debug("rate limiter window state")
	}
	return d, nil
}

func (s *RateLimiterService) increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s.atomicStore != nil && !s.scriptsOff.Load() {
		count, ttl, err := s.atomicStore.IncrementWithExpiry(ctx, key, window)
		if !errors.Is(err, ratelimit.ErrScriptUnsupported) {
			return count, ttl, err
		}
		s.scriptsOff.Store(true)
		if s.logger != nil {
			s.logger.WithError(err).Warn("rate limiter: atomic script rejected, falling back to two-step mode")
		}
	}

	count, err := s.store.Increment(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.store.Expire(ctx, key, window); err != nil {
			return 0, 0, fmt.Errorf("%w: %w", ratelimit.ErrIncrementApplied, err)
		}
	}
	ttl, err := s.store.TTL(ctx, key)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ratelimit.ErrIncrementApplied, err)
	}
	return count, ttl, nil
}
