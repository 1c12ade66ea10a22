package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shopstack/auth-service/internal/core/domain/account"
	"github.com/shopstack/auth-service/internal/core/ports"
)

// sf coalesces concurrent loads of the same key within this process.
var sf singleflight.Group

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func accountEmailKey(email string) string {
	return "account:email:" + email
}

// CachingAccountRepository decorates an AccountRepository with cache-aside
// lookups by email. Only hits are cached, so a newly registered email is
// visible immediately; a ttl <= 0 turns the cache off.
type CachingAccountRepository struct {
	inner ports.AccountRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingAccountRepository(inner ports.AccountRepository, cache ports.Cache, ttl time.Duration) *CachingAccountRepository {
	return &CachingAccountRepository{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachingAccountRepository) enabled() bool {
	return c.cache != nil && c.ttl > 0
}

func (c *CachingAccountRepository) Create(ctx context.Context, a *account.Account) error {
	if err := c.inner.Create(ctx, a); err != nil {
		return err
	}
	if c.enabled() {
		cacheSetSilently(c.cache, ctx, accountEmailKey(a.Email), a, c.ttl)
	}
	return nil
}

func (c *CachingAccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	if !c.enabled() {
		return c.inner.GetByEmail(ctx, email)
	}
	key := accountEmailKey(email)
	if v, ok := cacheGet[account.Account](c.cache, ctx, key); ok {
		return v, nil
	}
	res, err, _ := sf.Do(key, func() (any, error) {
		a, err := c.inner.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		cacheSetSilently(c.cache, ctx, key, a, c.ttl)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	a, ok := res.(*account.Account)
	if !ok || a == nil {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	// callers may mutate the result; do not share one pointer across them
	cp := *a
	return &cp, nil
}
