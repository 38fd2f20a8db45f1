package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/announcements-api/internal/models"
	appErrors "github.com/campushq/announcements-api/pkg/errors"
)

type authRepoStub struct {
	byUsername map[string]*models.User
	byID       map[string]*models.User
}

func (s *authRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := s.byUsername[username]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func newAuthService(repo *authRepoStub) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "announcements-api",
	})
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesValidToken(t *testing.T) {
	repo := &authRepoStub{byUsername: map[string]*models.User{
		"alice": {
			ID:           "user-1",
			Username:     "alice",
			Email:        "alice@example.edu",
			PasswordHash: hashPassword(t, "s3cret"),
			Role:         models.RoleAdmin,
			Active:       true,
		},
	}}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	assert.Empty(t, res.User.PasswordHash)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &authRepoStub{byUsername: map[string]*models.User{
		"alice": {
			ID:           "user-1",
			Username:     "alice",
			PasswordHash: hashPassword(t, "s3cret"),
			Active:       true,
		},
	}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, typed.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newAuthService(&authRepoStub{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	require.Error(t, err)
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, typed.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := &authRepoStub{byUsername: map[string]*models.User{
		"alice": {
			ID:           "user-1",
			Username:     "alice",
			PasswordHash: hashPassword(t, "s3cret"),
			Active:       false,
		},
	}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "s3cret"})
	require.Error(t, err)
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, typed.Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := newAuthService(&authRepoStub{})
	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)

	other := NewAuthService(&authRepoStub{byUsername: map[string]*models.User{}}, nil, nil, AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Hour,
	})
	token, _, err := other.generateAccessToken(&models.User{ID: "user-1", Username: "alice"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestCurrentUserInactive(t *testing.T) {
	repo := &authRepoStub{byID: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "alice", Active: false},
	}}
	svc := newAuthService(repo)

	_, err := svc.CurrentUser(context.Background(), &models.JWTClaims{UserID: "user-1"})
	require.Error(t, err)
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, typed.Code)
}
