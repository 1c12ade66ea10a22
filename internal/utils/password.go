package utils

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/shopstack/auth-service/internal/core/domain/account"
)

// maxPasswordBytes is bcrypt's input limit; longer passwords would be
// silently truncated.
const maxPasswordBytes = 72

// ValidatePasswordStrength checks the length policy applied at registration.
func ValidatePasswordStrength(password string, minLength int) error {
	if utf8.RuneCountInString(password) < minLength {
		return fmt.Errorf("%w: must be at least %d characters long", account.ErrWeakPassword, minLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes long", account.ErrWeakPassword, maxPasswordBytes)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: must not be blank", account.ErrWeakPassword)
	}
	return nil
}

// ValidateEmail accepts a bare addr-spec such as user@example.com. Display
// names ("Jane <jane@example.com>") are rejected.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return fmt.Errorf("%w: %q", account.ErrInvalidEmail, email)
	}
	return nil
}
