package ports

import (
	"context"

	"github.com/shopstack/auth-service/internal/core/domain/account"
)

// AccountRepository defines the interface for account data operations
type AccountRepository interface {
	// Create stores a new account; a taken email yields account.ErrDuplicate.
	Create(ctx context.Context, a *account.Account) error
	// GetByEmail looks up a normalized email; missing accounts yield account.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
}

// AccountService defines the registration flow
type AccountService interface {
	Register(ctx context.Context, req *account.RegisterRequest) (*account.Account, error)
}
