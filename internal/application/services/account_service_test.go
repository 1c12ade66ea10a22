package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	impl "github.com/shopstack/auth-service/internal/application/services"
	"github.com/shopstack/auth-service/internal/core/domain/account"
	tmocks "github.com/shopstack/auth-service/internal/mocks"
)

func TestRegister_NormalizesAndHashes(t *testing.T) {
	var created *account.Account
	repo := &tmocks.AccountRepositoryMock{CreateFn: func(ctx context.Context, a *account.Account) error {
		created = a
		return nil
	}}
	svc := impl.NewAccountService(repo, &tmocks.PasswordHasherMock{}, 8, nil)

	a, err := svc.Register(context.Background(), &account.RegisterRequest{Email: " New.User@Example.COM ", Password: "correct horse"})
	require.NoError(t, err)
	require.Same(t, created, a)
	require.Equal(t, "new.user@example.com", a.Email)
	require.Equal(t, "hashed:correct horse", a.PasswordHash)
	require.True(t, a.IsActive)
	require.NotEqual(t, [16]byte{}, [16]byte(a.ID))
	require.EqualValues(t, 4, a.ID.Version())
}

func TestRegister_Duplicate(t *testing.T) {
	repo := &tmocks.AccountRepositoryMock{CreateFn: func(ctx context.Context, a *account.Account) error {
		return account.ErrDuplicate
	}}
	svc := impl.NewAccountService(repo, &tmocks.PasswordHasherMock{}, 8, nil)

	_, err := svc.Register(context.Background(), &account.RegisterRequest{Email: "user@example.com", Password: "correct horse"})
	require.ErrorIs(t, err, account.ErrDuplicate)
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	called := false
	repo := &tmocks.AccountRepositoryMock{CreateFn: func(ctx context.Context, a *account.Account) error {
		called = true
		return nil
	}}
	svc := impl.NewAccountService(repo, &tmocks.PasswordHasherMock{}, 8, nil)

	_, err := svc.Register(context.Background(), &account.RegisterRequest{Email: "not-an-email", Password: "correct horse"})
	require.ErrorIs(t, err, account.ErrInvalidEmail)

	_, err = svc.Register(context.Background(), &account.RegisterRequest{Email: "user@example.com", Password: "short"})
	require.ErrorIs(t, err, account.ErrWeakPassword)

	require.False(t, called)
}

func TestRegister_RepositoryFailure(t *testing.T) {
	repo := &tmocks.AccountRepositoryMock{CreateFn: func(ctx context.Context, a *account.Account) error {
		return errors.New("connection reset")
	}}
	svc := impl.NewAccountService(repo, &tmocks.PasswordHasherMock{}, 8, nil)

	_, err := svc.Register(context.Background(), &account.RegisterRequest{Email: "user@example.com", Password: "correct horse"})
	require.Error(t, err)
	require.NotErrorIs(t, err, account.ErrDuplicate)
}
