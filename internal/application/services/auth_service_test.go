package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	config "github.com/shopstack/auth-service/configs"
	impl "github.com/shopstack/auth-service/internal/application/services"
	"github.com/shopstack/auth-service/internal/core/domain/account"
	"github.com/shopstack/auth-service/internal/core/domain/auth"
	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
	"github.com/shopstack/auth-service/internal/core/ports"
	"github.com/shopstack/auth-service/internal/infrastructure/repositories"
	tmocks "github.com/shopstack/auth-service/internal/mocks"
)

var testRateLimits = &config.RateLimitConfig{
	LoginIP:    config.RateLimitRule{Limit: 20, Window: time.Minute},
	LoginEmail: config.RateLimitRule{Limit: 10, Window: time.Minute},
}

func knownAccount() *account.Account {
	return &account.Account{
		ID:           uuid.MustParse("6f1c7c55-27a4-4b5c-9c55-0d9d4f1e8a11"),
		Email:        "user@example.com",
		PasswordHash: "hashed:correct horse",
		IsActive:     true,
	}
}

func accountsWith(accts ...*account.Account) *tmocks.AccountRepositoryMock {
	return &tmocks.AccountRepositoryMock{GetByEmailFn: func(ctx context.Context, email string) (*account.Account, error) {
		for _, a := range accts {
			if a.Email == email {
				cp := *a
				return &cp, nil
			}
		}
		return nil, account.ErrNotFound
	}}
}

type authFixture struct {
	limiter ports.RateLimiter
	repo    ports.AccountRepository
	creds   ports.CredentialService
	hasher  *tmocks.PasswordHasherMock
	cfg     impl.AuthServiceConfig
}

func newAuthFixture() *authFixture {
	return &authFixture{
		limiter: &tmocks.RateLimiterMock{},
		repo:    accountsWith(knownAccount()),
		creds:   &tmocks.CredentialServiceMock{},
		hasher:  &tmocks.PasswordHasherMock{},
		cfg: impl.AuthServiceConfig{
			KeyPrefix:  "rl:auth",
			Dimensions: impl.DefaultLoginDimensions(testRateLimits),
		},
	}
}

func (f *authFixture) build(t *testing.T) *impl.AuthService {
	t.Helper()
	svc, err := impl.NewAuthService(f.limiter, f.repo, f.creds, f.hasher, &f.cfg, nil)
	require.NoError(t, err)
	return svc
}

func attempt(email, password string) *auth.LoginAttempt {
	return &auth.LoginAttempt{Email: email, Password: password, SourceAddress: "203.0.113.7"}
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture()
	limiter := &tmocks.RateLimiterMock{}
	f.limiter = limiter
	var issued struct {
		subject, email string
		roles          []string
	}
	f.creds = &tmocks.CredentialServiceMock{
		TTLValue: 30 * time.Minute,
		IssueFn: func(subject, email string, roles []string) (string, error) {
			issued.subject, issued.email, issued.roles = subject, email, roles
			return "signed", nil
		},
	}
	svc := f.build(t)

	res, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.NoError(t, err)
	require.Equal(t, auth.AccessToken{AccessToken: "signed", TokenType: "bearer", ExpiresIn: 1800}, res.Token)
	require.Equal(t, knownAccount().ID.String(), issued.subject)
	require.Equal(t, "user@example.com", issued.email)
	require.NotNil(t, issued.roles)
	require.Empty(t, issued.roles)

	require.Equal(t, []string{"rl:auth:login:ip:203.0.113.7", "rl:auth:login:email:user@example.com"}, limiter.Calls())
	require.Len(t, res.Dimensions, 2)
	require.Equal(t, "IP", res.Dimensions[0].Name)
	require.Equal(t, 19, res.Dimensions[0].Decision.Remaining)
	require.Equal(t, "Email", res.Dimensions[1].Name)
	require.Equal(t, 9, res.Dimensions[1].Decision.Remaining)
}

func TestLogin_EmailCaseInsensitive(t *testing.T) {
	f := newAuthFixture()
	limiter := &tmocks.RateLimiterMock{}
	f.limiter = limiter
	var lookups []string
	inner := accountsWith(knownAccount())
	f.repo = &tmocks.AccountRepositoryMock{GetByEmailFn: func(ctx context.Context, email string) (*account.Account, error) {
		lookups = append(lookups, email)
		return inner.GetByEmail(ctx, email)
	}}
	svc := f.build(t)

	_, err := svc.Login(context.Background(), attempt("  USER@Example.com ", "correct horse"))
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.NoError(t, err)

	keys := limiter.Calls()
	require.Equal(t, keys[1], keys[3], "both spellings share the email bucket")
	require.Equal(t, []string{"user@example.com", "user@example.com"}, lookups)
}

func TestLogin_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	f := newAuthFixture()
	svc := f.build(t)

	_, wrongPassword := svc.Login(context.Background(), attempt("user@example.com", "battery staple"))
	_, unknown := svc.Login(context.Background(), attempt("nobody@example.com", "correct horse"))

	require.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)
	require.ErrorIs(t, unknown, auth.ErrInvalidCredentials)
	require.Equal(t, wrongPassword.Error(), unknown.Error())
	require.Equal(t, 2, f.hasher.VerifyCalls, "a missing account still pays for a digest check")

	for _, err := range []error{wrongPassword, unknown} {
		dims := auth.DimensionsOf(err)
		require.Len(t, dims, 2, "quota state survives a credential rejection")
		require.Equal(t, "IP", dims[0].Name)
		require.Equal(t, "Email", dims[1].Name)
	}
}

func TestLogin_InactiveAccountIsInvalidCredentials(t *testing.T) {
	f := newAuthFixture()
	inactive := knownAccount()
	inactive.IsActive = false
	f.repo = accountsWith(inactive)
	svc := f.build(t)

	_, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_RepositoryFailureIsServiceUnavailable(t *testing.T) {
	f := newAuthFixture()
	f.repo = &tmocks.AccountRepositoryMock{GetByEmailFn: func(ctx context.Context, email string) (*account.Account, error) {
		return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
	}}
	svc := f.build(t)

	_, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.ErrorIs(t, err, auth.ErrServiceUnavailable)
	require.NotContains(t, err.Error(), "10.0.0.5")
}

func TestLogin_LookupRunsUnderTimeout(t *testing.T) {
	f := newAuthFixture()
	f.cfg.LookupTimeout = 20 * time.Millisecond
	f.repo = &tmocks.AccountRepositoryMock{GetByEmailFn: func(ctx context.Context, email string) (*account.Account, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc := f.build(t)

	start := time.Now()
	_, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.ErrorIs(t, err, auth.ErrServiceUnavailable)
	require.Less(t, time.Since(start), time.Second)
}

func TestLogin_BothDimensionsHitEvenWhenFirstDenied(t *testing.T) {
	f := newAuthFixture()
	limiter := &tmocks.RateLimiterMock{HitFn: func(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
		if key == "rl:auth:login:ip:203.0.113.7" {
			return ratelimit.Decision{Allowed: false, Remaining: 0, ResetEpoch: 100, Count: 21, Limit: limit}, nil
		}
		return ratelimit.Decision{Allowed: true, Remaining: 4, ResetEpoch: 90, Count: 6, Limit: limit}, nil
	}}
	f.limiter = limiter
	lookedUp := false
	f.repo = &tmocks.AccountRepositoryMock{GetByEmailFn: func(ctx context.Context, email string) (*account.Account, error) {
		lookedUp = true
		return nil, account.ErrNotFound
	}}
	svc := f.build(t)

	_, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.ErrorIs(t, err, auth.ErrRateLimited)

	var rl *auth.RateLimitedError
	require.ErrorAs(t, err, &rl)
	require.Equal(t, time.Minute, rl.RetryAfter)
	require.False(t, rl.StoreUnavailable)
	require.Equal(t, []ratelimit.DimensionDecision{
		{Name: "IP", Decision: ratelimit.Decision{Allowed: false, Remaining: 0, ResetEpoch: 100, Count: 21, Limit: 20}},
		{Name: "Email", Decision: ratelimit.Decision{Allowed: true, Remaining: 4, ResetEpoch: 90, Count: 6, Limit: 10}},
	}, rl.Dimensions)
	require.Len(t, limiter.Calls(), 2)
	require.False(t, lookedUp, "rate limited attempts never reach the repository")
}

func TestLogin_RetryAfterIsLargestWindow(t *testing.T) {
	f := newAuthFixture()
	f.cfg.Dimensions = impl.DefaultLoginDimensions(&config.RateLimitConfig{
		LoginIP:    config.RateLimitRule{Limit: 1, Window: 5 * time.Minute},
		LoginEmail: config.RateLimitRule{Limit: 1, Window: time.Minute},
	})
	f.limiter = &tmocks.RateLimiterMock{HitFn: func(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
		return ratelimit.Decision{Allowed: false, Limit: limit}, nil
	}}
	svc := f.build(t)

	_, err := svc.Login(context.Background(), attempt("user@example.com", "x"))
	var rl *auth.RateLimitedError
	require.ErrorAs(t, err, &rl)
	require.Equal(t, 5*time.Minute, rl.RetryAfter)
}

func TestLogin_ExtraDimensionNeedsNoCodeChange(t *testing.T) {
	f := newAuthFixture()
	limiter := &tmocks.RateLimiterMock{}
	f.limiter = limiter
	f.cfg.Dimensions = append(impl.DefaultLoginDimensions(testRateLimits), impl.LoginDimension{
		Name:     "Device",
		Scope:    "login:device",
		Limit:    5,
		Window:   time.Hour,
		Identify: func(a *auth.LoginAttempt) string { return "fp-" + a.SourceAddress },
	})
	svc := f.build(t)

	res, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.NoError(t, err)
	require.Len(t, res.Dimensions, 3)
	require.Equal(t, "Device", res.Dimensions[2].Name)
	require.Contains(t, limiter.Calls(), "rl:auth:login:device:fp-203.0.113.7")
}

func TestLogin_StoreOutageRetriesOnceThenFailsClosed(t *testing.T) {
	f := newAuthFixture()
	var mu sync.Mutex
	calls := map[string]int{}
	f.limiter = &tmocks.RateLimiterMock{HitFn: func(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
		mu.Lock()
		calls[key]++
		mu.Unlock()
		return ratelimit.Decision{}, ratelimit.ErrStoreUnavailable
	}}
	f.cfg.RetryBackoff = time.Millisecond
	svc := f.build(t)

	before := time.Now().Unix()
	_, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.ErrorIs(t, err, auth.ErrRateLimited)
	require.NotErrorIs(t, err, ratelimit.ErrStoreUnavailable, "store errors are never surfaced")

	var rl *auth.RateLimitedError
	require.ErrorAs(t, err, &rl)
	require.True(t, rl.StoreUnavailable)
	for _, d := range rl.Dimensions {
		require.False(t, d.Decision.Allowed)
		require.Zero(t, d.Decision.Remaining)
		require.GreaterOrEqual(t, d.Decision.ResetEpoch, before+60)
	}
	require.Equal(t, map[string]int{
		"rl:auth:login:ip:203.0.113.7":         2,
		"rl:auth:login:email:user@example.com": 2,
	}, calls)
}

func TestLogin_NoRetryOnceCounterIncremented(t *testing.T) {
	f := newAuthFixture()
	var mu sync.Mutex
	calls := map[string]int{}
	f.limiter = &tmocks.RateLimiterMock{HitFn: func(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
		mu.Lock()
		calls[key]++
		mu.Unlock()
		return ratelimit.Decision{}, fmt.Errorf("%w: %w: ttl timed out", ratelimit.ErrStoreUnavailable, ratelimit.ErrIncrementApplied)
	}}
	f.cfg.RetryBackoff = time.Millisecond
	svc := f.build(t)

	_, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.ErrorIs(t, err, auth.ErrRateLimited)
	require.Equal(t, map[string]int{
		"rl:auth:login:ip:203.0.113.7":         1,
		"rl:auth:login:email:user@example.com": 1,
	}, calls)
}

func TestLogin_StoreRecoversOnRetry(t *testing.T) {
	f := newAuthFixture()
	var mu sync.Mutex
	failed := map[string]bool{}
	f.limiter = &tmocks.RateLimiterMock{HitFn: func(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
		mu.Lock()
		defer mu.Unlock()
		if !failed[key] {
			failed[key] = true
			return ratelimit.Decision{}, ratelimit.ErrStoreUnavailable
		}
		return ratelimit.Decision{Allowed: true, Remaining: limit - 1, Count: 1, Limit: limit}, nil
	}}
	svc := f.build(t)

	res, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.NoError(t, err)
	require.Len(t, res.Dimensions, 2)
}

func TestLogin_FailOpenLetsLoginThrough(t *testing.T) {
	f := newAuthFixture()
	f.cfg.FailOpen = true
	f.limiter = &tmocks.RateLimiterMock{HitFn: func(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
		return ratelimit.Decision{}, ratelimit.ErrStoreUnavailable
	}}
	svc := f.build(t)

	res, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.NoError(t, err)
	require.True(t, res.Dimensions[0].Decision.Allowed)
	require.Equal(t, 20, res.Dimensions[0].Decision.Remaining)
	require.Equal(t, 10, res.Dimensions[1].Decision.Remaining)

	_, err = svc.Login(context.Background(), attempt("user@example.com", "wrong"))
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_ConfigurationErrorsPropagate(t *testing.T) {
	f := newAuthFixture()
	f.limiter = &tmocks.RateLimiterMock{HitFn: func(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
		return ratelimit.Decision{}, ratelimit.ErrConfiguration
	}}
	svc := f.build(t)

	_, err := svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.ErrorIs(t, err, ratelimit.ErrConfiguration)
}

func TestNewAuthService_ValidatesDimensions(t *testing.T) {
	f := newAuthFixture()
	for name, dims := range map[string][]impl.LoginDimension{
		"none":          nil,
		"zero limit":    {{Name: "IP", Scope: "login:ip", Limit: 0, Window: time.Minute, Identify: func(*auth.LoginAttempt) string { return "" }}},
		"short window":  {{Name: "IP", Scope: "login:ip", Limit: 1, Window: time.Millisecond, Identify: func(*auth.LoginAttempt) string { return "" }}},
		"split second":  {{Name: "IP", Scope: "login:ip", Limit: 1, Window: 1500 * time.Millisecond, Identify: func(*auth.LoginAttempt) string { return "" }}},
		"no identifier": {{Name: "IP", Scope: "login:ip", Limit: 1, Window: time.Minute}},
	} {
		cfg := f.cfg
		cfg.Dimensions = dims
		_, err := impl.NewAuthService(f.limiter, f.repo, f.creds, f.hasher, &cfg, nil)
		require.ErrorIs(t, err, ratelimit.ErrConfiguration, name)
	}
}

// End to end through miniredis: the email bucket is shared across case
// variants, and the eleventh attempt is refused while the IP bucket still has room.
func TestLogin_EmailBucketExhaustsAgainstRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := impl.NewRateLimiterService(repositories.NewRateLimitRedisRepository(client), &impl.RateLimiterConfig{Atomic: true}, nil,
		impl.WithClock(func() time.Time { return windowStart }))
	require.NoError(t, err)

	f := newAuthFixture()
	f.limiter = limiter
	svc := f.build(t)

	spellings := []string{"user@example.com", "USER@example.com", "User@Example.Com"}
	for i := 0; i < 10; i++ {
		_, err := svc.Login(context.Background(), attempt(spellings[i%len(spellings)], "wrong"))
		require.ErrorIs(t, err, auth.ErrInvalidCredentials, "attempt %d", i+1)
	}

	_, err = svc.Login(context.Background(), attempt("USER@EXAMPLE.COM", "correct horse"))
	var rl *auth.RateLimitedError
	require.ErrorAs(t, err, &rl)
	require.Equal(t, "IP", rl.Dimensions[0].Name)
	require.True(t, rl.Dimensions[0].Decision.Allowed)
	require.Equal(t, 9, rl.Dimensions[0].Decision.Remaining)
	require.Equal(t, "Email", rl.Dimensions[1].Name)
	require.False(t, rl.Dimensions[1].Decision.Allowed)
	require.Equal(t, 0, rl.Dimensions[1].Decision.Remaining)

	val, err := mr.Get("rl:auth:login:email:user@example.com:28333334")
	require.NoError(t, err)
	require.Equal(t, "11", val)
}

func TestLogin_StoreDownAgainstRedisFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := impl.NewRateLimiterService(repositories.NewRateLimitRedisRepository(client), &impl.RateLimiterConfig{Atomic: true, StoreTimeout: 100 * time.Millisecond}, nil)
	require.NoError(t, err)

	f := newAuthFixture()
	f.limiter = limiter
	f.cfg.RetryBackoff = time.Millisecond
	svc := f.build(t)
	mr.Close()

	_, err = svc.Login(context.Background(), attempt("user@example.com", "correct horse"))
	require.ErrorIs(t, err, auth.ErrRateLimited)
	var rl *auth.RateLimitedError
	require.ErrorAs(t, err, &rl)
	require.True(t, rl.StoreUnavailable)
}
