package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	config "github.com/shopstack/auth-service/configs"
	"github.com/shopstack/auth-service/internal/core/domain/auth"
	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
)

// CredentialService issues and verifies HMAC-signed access tokens. It holds no
// state besides the signing key, so any instance can verify tokens minted by
// any other. There is no revocation: a token stays valid until it expires.
type CredentialService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
	logger *logrus.Logger
}

// CredentialOption customizes a CredentialService.
type CredentialOption func(*CredentialService)

// WithTokenClock replaces time.Now for issuing and verifying tokens.
func WithTokenClock(now func() time.Time) CredentialOption {
	return func(s *CredentialService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewCredentialService(cfg *config.JWTConfig, logger *logrus.Logger, opts ...CredentialOption) (*CredentialService, error) {
	if cfg == nil || cfg.Secret == "" {
		return nil, fmt.Errorf("%w: signing secret is required", ratelimit.ErrConfiguration)
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("%w: token lifetime must be positive", ratelimit.ErrConfiguration)
	}
	if cfg.ClockSkew < 0 {
		return nil, fmt.Errorf("%w: clock skew must not be negative", ratelimit.ErrConfiguration)
	}
	var method jwt.SigningMethod
	switch strings.ToUpper(cfg.Algorithm) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", ratelimit.ErrConfiguration, cfg.Algorithm)
	}

	s := &CredentialService{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    cfg.AccessTokenTTL,
		issuer: cfg.Issuer,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	s.parser = jwt.NewParser(parserOpts...)
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *CredentialService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject. A nil roles slice is encoded as [].
func (s *CredentialService) Issue(subject, email string, roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}
	now := s.now()
	claims := &auth.Claims{
		Email: email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// Verify checks signature, algorithm, expiry and issuer in one pass. Time
// checks allow the configured clock skew between instances. Every
// failure is reported as auth.ErrInvalidToken; the cause is only logged.
func (s *CredentialService) Verify(tokenString string) (*auth.Claims, error) {
	claims := &auth.Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		if s.logger != nil {
			s.logger.WithError(err).Debug("access token rejected")
		}
		return nil, auth.ErrInvalidToken
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}
	return claims, nil
}
