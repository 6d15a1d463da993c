package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-aris-api/internal/models"
	appErrors "github.com/noah-isme/sma-aris-api/pkg/errors"
)

type mockAuthUserRepo struct {
	byEmail    map[string]*models.User
	byID       map[string]*models.User
	lastLogins []string
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.byEmail[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.byID[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func testAuthService(repo *mockAuthUserRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "sma-aris-api",
	})
}

func hashedPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &mockAuthUserRepo{
		byEmail: map[string]*models.User{
			"teacher@school.edu": {
				ID:           "u-1",
				Email:        "teacher@school.edu",
				FullName:     "Teacher One",
				Role:         models.RoleTeacher,
				PasswordHash: hashedPassword(t, "secret123"),
				Active:       true,
			},
		},
	}
	service := testAuthService(repo)

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.edu",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "u-1", resp.User.ID)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)
	assert.Equal(t, []string{"u-1"}, repo.lastLogins)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthUserRepo{
		byEmail: map[string]*models.User{
			"teacher@school.edu": {
				ID:           "u-1",
				Email:        "teacher@school.edu",
				Role:         models.RoleTeacher,
				PasswordHash: hashedPassword(t, "secret123"),
				Active:       true,
			},
		},
	}
	service := testAuthService(repo)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.edu",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	service := testAuthService(&mockAuthUserRepo{})

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "ghost@school.edu",
		Password: "whatever",
	})
	require.Error(t, err)
	// Unknown email and wrong password are indistinguishable to the caller.
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := &mockAuthUserRepo{
		byEmail: map[string]*models.User{
			"teacher@school.edu": {
				ID:           "u-1",
				Email:        "teacher@school.edu",
				Role:         models.RoleTeacher,
				PasswordHash: hashedPassword(t, "secret123"),
				Active:       false,
			},
		},
	}
	service := testAuthService(repo)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "teacher@school.edu",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	service := testAuthService(&mockAuthUserRepo{})

	_, err := service.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceMe(t *testing.T) {
	repo := &mockAuthUserRepo{
		byID: map[string]*models.User{
			"u-1": {ID: "u-1", Email: "student@school.edu", FullName: "Student One", Role: models.RoleStudent},
		},
	}
	service := testAuthService(repo)

	info, err := service.Me(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)

	_, err = service.Me(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
