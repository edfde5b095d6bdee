package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/unireg-dev/unireg-api/internal/models"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
)

type authRepoStub struct {
	users      map[string]*models.User
	byID       map[string]*models.User
	lastLogin  string
	newHash    string
	updateUser string
}

func (s *authRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := s.users[username]; ok {
		return user, nil
	}
	return nil, errNoRows()
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, errNoRows()
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLogin = id
	return nil
}

func (s *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	s.updateUser = id
	s.newHash = passwordHash
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "unireg-test"}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesValidToken(t *testing.T) {
	repo := &authRepoStub{users: map[string]*models.User{
		"4001234567": {
			ID:        "u-1",
			Username:  "4001234567",
			FirstName: "Sara",
			LastName:  "Ahmadi",
			Role:      models.RoleStudent,
			Active:    true,
			PasswordHash: hashPassword(t, "0012345678"),
		},
	}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	result, err := svc.Login(context.Background(), models.LoginRequest{Username: "4001234567", Password: "0012345678"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", result.User.ID)
	assert.Equal(t, models.RoleStudent, result.User.Role)
	assert.Equal(t, "u-1", repo.lastLogin)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "Sara Ahmadi", claims.FullName)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &authRepoStub{users: map[string]*models.User{
		"4001234567": {ID: "u-1", Username: "4001234567", Active: true, PasswordHash: hashPassword(t, "correct")},
	}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "4001234567", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := &authRepoStub{users: map[string]*models.User{
		"4001234567": {ID: "u-1", Username: "4001234567", Active: false, PasswordHash: hashPassword(t, "pw")},
	}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "4001234567", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&authRepoStub{}, nil, nil, testAuthConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestChangePassword(t *testing.T) {
	repo := &authRepoStub{byID: map[string]*models.User{
		"u-1": {ID: "u-1", PasswordHash: hashPassword(t, "old-pass")},
	}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u-1", models.ChangePasswordRequest{
		OldPassword: "old-pass",
		NewPassword: "new-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", repo.updateUser)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.newHash), []byte("new-pass")))
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	repo := &authRepoStub{byID: map[string]*models.User{
		"u-1": {ID: "u-1", PasswordHash: hashPassword(t, "old-pass")},
	}}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u-1", models.ChangePasswordRequest{
		OldPassword: "nope",
		NewPassword: "new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func errNoRows() error { return sql.ErrNoRows }
