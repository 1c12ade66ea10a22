package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shopstack/auth-service/internal/core/domain/account"
	"github.com/shopstack/auth-service/internal/core/ports"
	"github.com/shopstack/auth-service/internal/utils"
)

type AccountService struct {
	repo              ports.AccountRepository
	hasher            ports.PasswordHasher
	minPasswordLength int
	logger            *logrus.Logger
}

func NewAccountService(repo ports.AccountRepository, hasher ports.PasswordHasher, minPasswordLength int, logger *logrus.Logger) *AccountService {
	if minPasswordLength <= 0 {
		minPasswordLength = 8
	}
	return &AccountService{
		repo:              repo,
		hasher:            hasher,
		minPasswordLength: minPasswordLength,
		logger:            logger,
	}
}

// Register creates an active account keyed by the normalized email.
func (s *AccountService) Register(ctx context.Context, req *account.RegisterRequest) (*account.Account, error) {
	if req == nil {
		return nil, account.ErrInvalidEmail
	}
	email := account.NormalizeEmail(req.Email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := utils.ValidatePasswordStrength(req.Password, s.minPasswordLength); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	a := &account.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			return nil, account.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"account_id": a.ID, "email": a.Email}).Info("account registered")
	}
	return a, nil
}
