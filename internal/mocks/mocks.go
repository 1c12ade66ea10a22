package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopstack/auth-service/internal/core/domain/account"
	"github.com/shopstack/auth-service/internal/core/domain/auth"
	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
)

// RateLimiterMock is a lightweight mock for RateLimiter
type RateLimiterMock struct {
	HitFn func(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error)

	mu   sync.Mutex
	Keys []string
}

func (m *RateLimiterMock) Hit(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	m.mu.Lock()
	m.Keys = append(m.Keys, key)
	m.mu.Unlock()
	if m.HitFn != nil {
		return m.HitFn(ctx, key, limit, window)
	}
	return ratelimit.Decision{Allowed: true, Remaining: limit - 1, Count: 1, Limit: limit}, nil
}

// Calls returns the keys hit so far.
func (m *RateLimiterMock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Keys...)
}

// AccountRepositoryMock is a lightweight mock for AccountRepository
type AccountRepositoryMock struct {
	CreateFn     func(ctx context.Context, a *account.Account) error
	GetByEmailFn func(ctx context.Context, email string) (*account.Account, error)
}

func (m *AccountRepositoryMock) Create(ctx context.Context, a *account.Account) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}
func (m *AccountRepositoryMock) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, account.ErrNotFound
}

// PasswordHasherMock stores passwords as "hashed:<password>".
type PasswordHasherMock struct {
	HashFn   func(password string) (string, error)
	VerifyFn func(password, digest string) bool

	mu          sync.Mutex
	VerifyCalls int
}

func (m *PasswordHasherMock) Hash(password string) (string, error) {
	if m.HashFn != nil {
		return m.HashFn(password)
	}
	return "hashed:" + password, nil
}
func (m *PasswordHasherMock) Verify(password, digest string) bool {
	m.mu.Lock()
	m.VerifyCalls++
	m.mu.Unlock()
	if m.VerifyFn != nil {
		return m.VerifyFn(password, digest)
	}
	return digest == "hashed:"+password
}

// CredentialServiceMock is a lightweight mock for CredentialService
type CredentialServiceMock struct {
	IssueFn  func(subject, email string, roles []string) (string, error)
	VerifyFn func(token string) (*auth.Claims, error)
	TTLValue time.Duration
}

func (m *CredentialServiceMock) Issue(subject, email string, roles []string) (string, error) {
	if m.IssueFn != nil {
		return m.IssueFn(subject, email, roles)
	}
	return "token-for-" + subject, nil
}
func (m *CredentialServiceMock) Verify(token string) (*auth.Claims, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(token)
	}
	return nil, auth.ErrInvalidToken
}
func (m *CredentialServiceMock) TTL() time.Duration {
	if m.TTLValue > 0 {
		return m.TTLValue
	}
	return 30 * time.Minute
}

// AuthServiceMock is a lightweight mock for AuthService
type AuthServiceMock struct {
	LoginFn  func(ctx context.Context, attempt *auth.LoginAttempt) (*auth.LoginResult, error)
	VerifyFn func(ctx context.Context, token string) (*auth.Claims, error)
}

func (m *AuthServiceMock) Login(ctx context.Context, attempt *auth.LoginAttempt) (*auth.LoginResult, error) {
	if m.LoginFn != nil {
		return m.LoginFn(ctx, attempt)
	}
	return nil, auth.ErrInvalidCredentials
}
func (m *AuthServiceMock) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, token)
	}
	return nil, auth.ErrInvalidToken
}

// AccountServiceMock is a lightweight mock for AccountService
type AccountServiceMock struct {
	RegisterFn func(ctx context.Context, req *account.RegisterRequest) (*account.Account, error)
}

func (m *AccountServiceMock) Register(ctx context.Context, req *account.RegisterRequest) (*account.Account, error) {
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, req)
	}
	return nil, fmt.Errorf("register not implemented")
}

// HealthCheckerMock is a lightweight mock for HealthChecker
type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

// MemoryCache is an in-memory ports.Cache.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	Sets int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: map[string][]byte{}}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.Sets++
	return nil
}
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
