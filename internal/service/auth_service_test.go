package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-form-editor/internal/memstore"
	"go-form-editor/internal/model"
	"go-form-editor/pkg/apierror"
)

const testSecret = "jwt-secret-for-tests"

func newAuth(t *testing.T) (*AuthService, *memstore.Users) {
	t.Helper()

	users := memstore.NewUsers()
	auth := NewAuthService(users, memstore.NewTokens(), testSecret, 15*time.Minute, time.Hour)
	auth.cost = bcrypt.MinCost
	return auth, users
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.HTTPStatus)
}

func TestAuthService_LoginAndValidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	auth, _ := newAuth(t)

	created, err := auth.Register(ctx, "ada", "Ada Lovelace", "pa55word", "")
	require.NoError(t, err)
	require.Equal(t, model.RoleSubscriber, created.Role)

	pair, err := auth.Login(ctx, "ADA", "pa55word")
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, int64(900), pair.ExpiresIn)
	require.Equal(t, created.ID, pair.User.ID)

	claims, err := auth.ValidateToken(pair.AccessToken, "access")
	require.NoError(t, err)
	require.Equal(t, created.ID, claims.UserID)
	require.Equal(t, "Ada Lovelace", claims.DisplayName)
	require.Equal(t, model.Actor{ID: created.ID, DisplayName: "Ada Lovelace", Role: model.RoleSubscriber}, claims.Actor())

	_, err = auth.ValidateToken(pair.AccessToken, "refresh")
	requireStatus(t, err, 401)

	_, err = auth.Login(ctx, "ada", "wrong")
	requireStatus(t, err, 401)
	require.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = auth.Login(ctx, "nobody", "pa55word")
	requireStatus(t, err, 401)
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	auth, _ := newAuth(t)

	_, err := auth.Register(ctx, "grace", "", "secret", model.RoleEditor)
	require.NoError(t, err)

	_, err = auth.Register(ctx, "Grace", "", "secret", "")
	requireStatus(t, err, 409)
	require.ErrorIs(t, err, model.ErrUserAlreadyExists)

	_, err = auth.Register(ctx, "linus", "", "secret", "root")
	requireStatus(t, err, 400)

	_, err = auth.Register(ctx, " ", "", "secret", "")
	requireStatus(t, err, 400)
}

func TestAuthService_RefreshRotatesToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	auth, _ := newAuth(t)

	_, err := auth.Register(ctx, "ada", "", "pa55word", "")
	require.NoError(t, err)
	pair, err := auth.Login(ctx, "ada", "pa55word")
	require.NoError(t, err)

	next, err := auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = auth.Refresh(ctx, pair.RefreshToken)
	requireStatus(t, err, 401)

	require.NoError(t, auth.Logout(ctx, next.RefreshToken))
	_, err = auth.Refresh(ctx, next.RefreshToken)
	requireStatus(t, err, 401)
}

func TestAuthService_ValidateToken(t *testing.T) {
	t.Parallel()
	auth, _ := newAuth(t)

	t.Run("rejects a foreign signature", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "1", "typ": "access", "exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte("other-secret"))
		require.NoError(t, err)

		_, err = auth.ValidateToken(signed, "access")
		requireStatus(t, err, 401)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		signed, err := auth.signToken(jwt.MapClaims{
			"sub": "1", "typ": "access", "exp": time.Now().Add(-time.Minute).Unix(),
		})
		require.NoError(t, err)

		_, err = auth.ValidateToken(signed, "access")
		requireStatus(t, err, 401)
	})

	t.Run("rejects a token without subject", func(t *testing.T) {
		signed, err := auth.signToken(jwt.MapClaims{"typ": "access", "exp": time.Now().Add(time.Hour).Unix()})
		require.NoError(t, err)

		_, err = auth.ValidateToken(signed, "access")
		requireStatus(t, err, 401)
	})
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	auth, users := newAuth(t)

	_, err := auth.EnsureAdmin(ctx, "admin", "")
	require.Error(t, err)

	created, err := auth.EnsureAdmin(ctx, "admin", "changeme")
	require.NoError(t, err)
	require.True(t, created)

	admin, err := users.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, admin.Role)

	created, err = auth.EnsureAdmin(ctx, "other", "changeme")
	require.NoError(t, err)
	require.False(t, created)

	got, err := auth.GetUserByID(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, "admin", got.Username)

	_, err = auth.GetUserByID(ctx, "missing")
	requireStatus(t, err, 404)
}
