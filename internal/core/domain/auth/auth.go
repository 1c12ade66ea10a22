package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
)

var (
	ErrRateLimited        = errors.New("too many login attempts")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("token invalid or expired")
	ErrMissingToken       = errors.New("missing bearer token")
	ErrServiceUnavailable = errors.New("authentication temporarily unavailable")
)

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginAttempt is a login request together with the address it came from.
type LoginAttempt struct {
	Email         string
	Password      string
	SourceAddress string
}

// AccessToken is the body returned by a successful login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// LoginResult carries the issued token and the quota state of every
// rate limit dimension checked on the way.
type LoginResult struct {
	Token      AccessToken
	Dimensions []ratelimit.DimensionDecision
}

// RateLimitedError rejects a login because at least one dimension is exhausted.
// It always carries the decisions of all dimensions.
type RateLimitedError struct {
	Dimensions       []ratelimit.DimensionDecision
	RetryAfter       time.Duration
	StoreUnavailable bool
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RejectedError is a login failure that happened after every dimension was
// checked, so the quota state can still be reported to the client.
type RejectedError struct {
	Err        error
	Dimensions []ratelimit.DimensionDecision
}

func (e *RejectedError) Error() string { return e.Err.Error() }

func (e *RejectedError) Unwrap() error { return e.Err }

// DimensionsOf returns the rate limit decisions carried by a login error, if any.
func DimensionsOf(err error) []ratelimit.DimensionDecision {
	var limited *RateLimitedError
	if errors.As(err, &limited) {
		return limited.Dimensions
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Dimensions
	}
	return nil
}

// Claims is the signed payload of an access token.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`

	jwt.RegisteredClaims
}

// VerifyResponse is returned by the token verification endpoint.
type VerifyResponse struct {
	Valid  bool     `json:"valid"`
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// TokenType is the token_type reported for issued credentials.
const TokenType = "bearer"
