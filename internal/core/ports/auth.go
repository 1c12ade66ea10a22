package ports

import (
	"context"
	"time"

	"github.com/shopstack/auth-service/internal/core/domain/auth"
)

// CredentialService issues and verifies self-contained access tokens.
type CredentialService interface {
	Issue(subject, email string, roles []string) (string, error)
	Verify(token string) (*auth.Claims, error)
	TTL() time.Duration
}

// AuthService defines the login path.
type AuthService interface {
	Login(ctx context.Context, attempt *auth.LoginAttempt) (*auth.LoginResult, error)
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// PasswordHasher produces and checks one-way password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches digest. Malformed digests never match.
	Verify(password, digest string) bool
}
