package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopstack/auth-service/internal/core/domain/account"
)

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, ValidatePasswordStrength("correct horse", 8))
	require.ErrorIs(t, ValidatePasswordStrength("short", 8), account.ErrWeakPassword)
	require.ErrorIs(t, ValidatePasswordStrength("        ", 8), account.ErrWeakPassword)
	require.ErrorIs(t, ValidatePasswordStrength(strings.Repeat("a", 73), 8), account.ErrWeakPassword)
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"user@example.com", "first.last+tag@sub.example.org"} {
		require.NoError(t, ValidateEmail(ok), ok)
	}
	for _, bad := range []string{"", "user", "user@", "@example.com", "Jane <jane@example.com>", "user@localhost"} {
		require.ErrorIs(t, ValidateEmail(bad), account.ErrInvalidEmail, bad)
	}
}
