package password

import (
	"fmt"

	"github.com/shopstack/auth-service/internal/core/ports"
)

// New returns the hasher named by kind ("bcrypt" or "argon2id").
func New(kind string, bcryptCost int) (ports.PasswordHasher, error) {
	switch kind {
	case "", "bcrypt":
		return NewBcryptHasher(bcryptCost), nil
	case argon2Algorithm:
		return NewArgon2Hasher(DefaultArgon2Params)
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", kind)
	}
}
