package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/shopstack/auth-service/configs"
	"github.com/shopstack/auth-service/internal/core/domain/account"
	"github.com/shopstack/auth-service/internal/core/domain/auth"
	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
	"github.com/shopstack/auth-service/internal/core/ports"
)

// dummyPassword is hashed once at startup; unknown emails are verified
// against it so a miss costs as much as a wrong password.
const dummyPassword = "login-timing-equalizer"

// LoginDimension is one rate limit applied to every login attempt.
type LoginDimension struct {
	// Name is reported to clients, e.g. X-RateLimit-Remaining-<Name>.
	Name   string
	Scope  string
	Limit  int
	Window time.Duration
	// Identify picks the bucket identifier from a normalized attempt.
	Identify func(*auth.LoginAttempt) string
}

// DefaultLoginDimensions limits by source address, then by email.
func DefaultLoginDimensions(cfg *config.RateLimitConfig) []LoginDimension {
	return []LoginDimension{
		{
			Name:     "IP",
			Scope:    "login:ip",
			Limit:    cfg.LoginIP.Limit,
			Window:   cfg.LoginIP.Window,
			Identify: func(a *auth.LoginAttempt) string { return a.SourceAddress },
		},
		{
			Name:     "Email",
			Scope:    "login:email",
			Limit:    cfg.LoginEmail.Limit,
			Window:   cfg.LoginEmail.Window,
			Identify: func(a *auth.LoginAttempt) string { return a.Email },
		},
	}
}

// AuthServiceConfig groups the login policy knobs.
type AuthServiceConfig struct {
	KeyPrefix     string
	Dimensions    []LoginDimension
	FailOpen      bool
	RetryBackoff  time.Duration
	LookupTimeout time.Duration
}

type AuthService struct {
	limiter       ports.RateLimiter
	accounts      ports.AccountRepository
	credentials   ports.CredentialService
	hasher        ports.PasswordHasher
	dimensions    []LoginDimension
	keyPrefix     string
	failOpen      bool
	retryBackoff  time.Duration
	lookupTimeout time.Duration
	retryAfter    time.Duration
	dummyDigest   string
	now           func() time.Time
	logger        *logrus.Logger
}

func NewAuthService(limiter ports.RateLimiter, accounts ports.AccountRepository, credentials ports.CredentialService, hasher ports.PasswordHasher, cfg *AuthServiceConfig, logger *logrus.Logger) (*AuthService, error) {
	if limiter == nil || accounts == nil || credentials == nil || hasher == nil {
		return nil, fmt.Errorf("%w: auth service dependencies are required", ratelimit.ErrConfiguration)
	}
	if cfg == nil || len(cfg.Dimensions) == 0 {
		return nil, fmt.Errorf("%w: at least one login dimension is required", ratelimit.ErrConfiguration)
	}

	var retryAfter time.Duration
	for _, dim := range cfg.Dimensions {
		if dim.Name == "" || dim.Scope == "" || dim.Identify == nil {
			return nil, fmt.Errorf("%w: login dimension %q is incomplete", ratelimit.ErrConfiguration, dim.Name)
		}
		if dim.Limit <= 0 || dim.Window < time.Second || dim.Window%time.Second != 0 {
			return nil, fmt.Errorf("%w: login dimension %q needs a positive limit and a whole number of seconds as window", ratelimit.ErrConfiguration, dim.Name)
		}
		if dim.Window > retryAfter {
			retryAfter = dim.Window
		}
	}

	digest, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy digest: %w", err)
	}

	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = 2 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff < 0 {
		backoff = 0
	}

	return &AuthService{
		limiter:       limiter,
		accounts:      accounts,
		credentials:   credentials,
		hasher:        hasher,
		dimensions:    cfg.Dimensions,
		keyPrefix:     cfg.KeyPrefix,
		failOpen:      cfg.FailOpen,
		retryBackoff:  backoff,
		lookupTimeout: lookupTimeout,
		retryAfter:    retryAfter,
		dummyDigest:   digest,
		now:           time.Now,
		logger:        logger,
	}, nil
}

// Login runs every rate limit dimension, then checks the password and issues
// an access token. Rate limit decisions for all dimensions are returned on both
// success and rejection.
func (s *AuthService) Login(ctx context.Context, attempt *auth.LoginAttempt) (*auth.LoginResult, error) {
	if attempt == nil {
		return nil, auth.ErrInvalidCredentials
	}
	normalized := *attempt
	normalized.Email = account.NormalizeEmail(attempt.Email)

	decisions := make([]ratelimit.DimensionDecision, 0, len(s.dimensions))
	denied, storeDown := false, false
	for _, dim := range s.dimensions {
		d, unavailable, err := s.hit(ctx, dim, &normalized)
		if err != nil {
			return nil, err
		}
		storeDown = storeDown || unavailable
		denied = denied || !d.Allowed
		decisions = append(decisions, ratelimit.DimensionDecision{Name: dim.Name, Decision: d})
	}
	if denied {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": normalized.Email, "ip": normalized.SourceAddress, "store_unavailable": storeDown}).Info("login rate limited")
		}
		return nil, &auth.RateLimitedError{Dimensions: decisions, RetryAfter: s.retryAfter, StoreUnavailable: storeDown}
	}

	reject := func(err error) error {
		return &auth.RejectedError{Err: err, Dimensions: decisions}
	}

	acct, err := s.lookup(ctx, normalized.Email)
	if err != nil {
		return nil, reject(err)
	}
	if acct == nil {
		s.hasher.Verify(normalized.Password, s.dummyDigest)
		return nil, reject(auth.ErrInvalidCredentials)
	}
	if !s.hasher.Verify(normalized.Password, acct.PasswordHash) || !acct.IsActive {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": normalized.Email, "active": acct.IsActive}).Debug("login credentials rejected")
		}
		return nil, reject(auth.ErrInvalidCredentials)
	}

	token, err := s.credentials.Issue(acct.ID.String(), acct.Email, []string{})
	if err != nil {
		return nil, reject(err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": acct.ID, "email": acct.Email}).Info("login succeeded")
	}
	return &auth.LoginResult{
		Token: auth.AccessToken{
			AccessToken: token,
			TokenType:   auth.TokenType,
			ExpiresIn:   int64(s.credentials.TTL() / time.Second),
		},
		Dimensions: decisions,
	}, nil
}

// Verify checks an access token.
func (s *AuthService) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	return s.credentials.Verify(token)
}

// hit applies one dimension, retrying once on store failure unless the
// counter was already incremented. When the store stays down the decision is
// synthesized from the fail-open flag and the second return value is true.
func (s *AuthService) hit(ctx context.Context, dim LoginDimension, attempt *auth.LoginAttempt) (ratelimit.Decision, bool, error) {
	key := ratelimit.Key(s.keyPrefix, dim.Scope, dim.Identify(attempt))
	d, err := s.limiter.Hit(ctx, key, dim.Limit, dim.Window)
	if errors.Is(err, ratelimit.ErrStoreUnavailable) && !errors.Is(err, ratelimit.ErrIncrementApplied) {
		timer := time.NewTimer(s.retryBackoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
		d, err = s.limiter.Hit(ctx, key, dim.Limit, dim.Window)
	}
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, ratelimit.ErrStoreUnavailable) {
		return ratelimit.Decision{}, false, err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"dimension": dim.Name, "key": key, "fail_open": s.failOpen}).WithError(err).Error("rate limit store unavailable")
	}
	reset := s.now().Unix() + int64(dim.Window/time.Second)
	if s.failOpen {
		return ratelimit.Decision{Allowed: true, Remaining: dim.Limit, ResetEpoch: reset, Limit: dim.Limit}, true, nil
	}
	return ratelimit.Decision{Allowed: false, Remaining: 0, ResetEpoch: reset, Limit: dim.Limit}, true, nil
}

// lookup returns nil without error when the account does not exist.
func (s *AuthService) lookup(ctx context.Context, email string) (*account.Account, error) {
	if email == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	acct, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return acct, nil
	case errors.Is(err, account.ErrNotFound):
		return nil, nil
	default:
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": email}).WithError(err).Error("account lookup failed")
		}
		return nil, fmt.Errorf("%w: account lookup failed", auth.ErrServiceUnavailable)
	}
}
