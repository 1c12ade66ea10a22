package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
)

// incrementWithExpiry bumps the counter and sets the window expiry when the key
// has none. That covers the first hit of a window as well as a key left without
// a TTL by a crashed two-step writer.
var incrementWithExpiry = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("TTL", KEYS[1])
if ttl < 0 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RateLimitRedisRepository implements fixed-window counter storage with Redis.
type RateLimitRedisRepository struct {
	r redis.Cmdable
}

func NewRateLimitRedisRepository(r redis.Cmdable) *RateLimitRedisRepository {
	return &RateLimitRedisRepository{r: r}
}

// Increment implements CounterStore.Increment.
func (repo *RateLimitRedisRepository) Increment(ctx context.Context, key string) (int64, error) {
	return repo.r.Incr(ctx, key).Result()
}

// Expire implements CounterStore.Expire.
func (repo *RateLimitRedisRepository) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return repo.r.Expire(ctx, key, ttl).Err()
}

// TTL implements CounterStore.TTL. Keys without expiry (or missing keys)
// report a negative duration.
func (repo *RateLimitRedisRepository) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := repo.r.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return ttl, nil
}

// IncrementWithExpiry implements AtomicCounterStore.IncrementWithExpiry with a
// single Lua script.
func (repo *RateLimitRedisRepository) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	seconds := int64(ttl / time.Second)
	res, err := incrementWithExpiry.Run(ctx, repo.r, []string{key}, seconds).Slice()
	if err != nil {
		if isScriptUnsupported(err) {
			return 0, 0, fmt.Errorf("%w: %v", ratelimit.ErrScriptUnsupported, err)
		}
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected script reply length %d", len(res))
	}
	count, ok := res[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected script count type %T", res[0])
	}
	remaining, ok := res[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected script ttl type %T", res[1])
	}
	return count, time.Duration(remaining) * time.Second, nil
}

func isScriptUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown command") || strings.Contains(msg, "scripting is disabled")
}
