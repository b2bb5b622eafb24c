package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medlearn/lms-api/internal/models"
	"github.com/medlearn/lms-api/pkg/config"
	appErrors "github.com/medlearn/lms-api/pkg/errors"
)

type stubUsers struct {
	byEmail *models.User
	byID    *models.User
	err     error
}

func (s *stubUsers) GetByEmail(_ context.Context, _ string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byEmail, nil
}

func (s *stubUsers) GetByID(_ context.Context, _ string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byID, nil
}

type stubTokens struct {
	stored  []*models.RefreshToken
	lookup  *models.RefreshToken
	revoked []string
}

func (s *stubTokens) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.stored = append(s.stored, token)
	return nil
}

func (s *stubTokens) GetRefreshToken(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	if s.lookup == nil || s.lookup.TokenHash != tokenHash {
		return nil, sql.ErrNoRows
	}
	return s.lookup, nil
}

func (s *stubTokens) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	s.revoked = append(s.revoked, tokenHash)
	return nil
}

func (s *stubTokens) RevokeAllForUser(_ context.Context, _ string) error {
	s.revoked = append(s.revoked, "all")
	return nil
}

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "medlearn-test",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	}
}

func facultyAccount(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		FullName:     "Dr. Rao",
		Email:        "rao@medlearn.test",
		PasswordHash: string(hash),
		Role:         models.RoleFaculty,
		DepartmentID: strp("dept-anat"),
		Active:       true,
	}
}

func TestLoginWrongPassword(t *testing.T) {
	user := facultyAccount(t, "correct-horse")
	svc := NewAuthService(&stubUsers{byEmail: user}, &stubTokens{}, nil, nil, jwtConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "wrong"}, "1.2.3.4")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(&stubUsers{err: sql.ErrNoRows}, &stubTokens{}, nil, nil, jwtConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@medlearn.test", Password: "x"}, "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := facultyAccount(t, "correct-horse")
	user.Active = false
	svc := NewAuthService(&stubUsers{byEmail: user}, &stubTokens{}, nil, nil, jwtConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "correct-horse"}, "")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestLoginIssuesValidTokenPair(t *testing.T) {
	user := facultyAccount(t, "correct-horse")
	tokens := &stubTokens{}
	svc := NewAuthService(&stubUsers{byEmail: user}, tokens, nil, nil, jwtConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "correct-horse"}, "1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, "Bearer", resp.TokenType)
	require.NotEmpty(t, resp.RefreshToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, models.RoleFaculty, claims.Role)
	require.Equal(t, "dept-anat", *claims.DepartmentID)

	// Only a hash of the refresh token is persisted.
	require.Len(t, tokens.stored, 1)
	require.NotEqual(t, resp.RefreshToken, tokens.stored[0].TokenHash)
	require.Len(t, tokens.stored[0].TokenHash, 64)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&stubUsers{}, &stubTokens{}, nil, nil, jwtConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	user := facultyAccount(t, "correct-horse")
	tokens := &stubTokens{}
	svc := NewAuthService(&stubUsers{byEmail: user, byID: user}, tokens, nil, nil, jwtConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "correct-horse"}, "")
	require.NoError(t, err)
	tokens.lookup = tokens.stored[0]

	refreshed, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	require.Contains(t, tokens.revoked, tokens.stored[0].TokenHash)
	require.Len(t, tokens.stored, 2)
}

func TestRefreshExpiredToken(t *testing.T) {
	user := facultyAccount(t, "correct-horse")
	tokens := &stubTokens{}
	svc := NewAuthService(&stubUsers{byEmail: user, byID: user}, tokens, nil, nil, jwtConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "correct-horse"}, "")
	require.NoError(t, err)
	tokens.lookup = tokens.stored[0]
	tokens.lookup.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
