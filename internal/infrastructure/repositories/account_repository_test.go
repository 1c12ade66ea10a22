package repositories_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/shopstack/auth-service/configs"
	"github.com/shopstack/auth-service/internal/core/domain/account"
	"github.com/shopstack/auth-service/internal/infrastructure/db"
	"github.com/shopstack/auth-service/internal/infrastructure/repositories"
)

// AccountRepositorySuite runs against a real Postgres named by TEST_DATABASE_URL.
type AccountRepositorySuite struct {
	suite.Suite
	database *db.Database
	repo     *repositories.AccountRepository
}

func TestAccountRepositorySuite(t *testing.T) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	suite.Run(t, new(AccountRepositorySuite))
}

func (s *AccountRepositorySuite) SetupSuite() {
	database, err := db.NewDatabase(&configs.DatabaseConfig{DSN: os.Getenv("TEST_DATABASE_URL")})
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate("../../../migrations"))
	s.database = database
	s.repo = repositories.NewAccountRepository(database, nil)
}

func (s *AccountRepositorySuite) TearDownSuite() {
	if s.database != nil {
		_ = s.database.Close()
	}
}

func (s *AccountRepositorySuite) SetupTest() {
	_, err := s.database.DB.Exec("TRUNCATE accounts")
	s.Require().NoError(err)
}

func newAccount(email string) *account.Account {
	return &account.Account{ID: uuid.New(), Email: email, PasswordHash: "digest", IsActive: true}
}

func (s *AccountRepositorySuite) TestCreateAndGetByEmail() {
	ctx := context.Background()
	a := newAccount("user@example.com")
	s.Require().NoError(s.repo.Create(ctx, a))
	s.False(a.CreatedAt.IsZero())

	got, err := s.repo.GetByEmail(ctx, "user@example.com")
	s.Require().NoError(err)
	s.Equal(a.ID, got.ID)
	s.Equal("digest", got.PasswordHash)
	s.True(got.IsActive)
}

func (s *AccountRepositorySuite) TestDuplicateEmail() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Create(ctx, newAccount("user@example.com")))

	err := s.repo.Create(ctx, newAccount("user@example.com"))
	s.ErrorIs(err, account.ErrDuplicate)
}

func (s *AccountRepositorySuite) TestNotFound() {
	_, err := s.repo.GetByEmail(context.Background(), "nobody@example.com")
	s.ErrorIs(err, account.ErrNotFound)
}

func (s *AccountRepositorySuite) TestRejectsUppercaseEmail() {
	err := s.repo.Create(context.Background(), newAccount(strings.ToUpper("user@example.com")))
	s.Error(err)
	s.NotErrorIs(err, account.ErrDuplicate)
}
