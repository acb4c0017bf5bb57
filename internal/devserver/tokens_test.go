package devserver

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		BCryptCost:      4,
	}
}

func TestTokenIssuer_IssueAndValidate(t *testing.T) {
	ctx := context.Background()
	issuer := NewTokenIssuer(testJWTConfig())

	pair, err := issuer.Issue(ctx, Principal{UserID: "u-1", Username: "demo"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.EqualValues(t, 60, pair.ExpiresIn)

	principal, err := issuer.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u-1", Username: "demo"}, *principal)
}

func TestTokenIssuer_ValidateRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("expired token", func(t *testing.T) {
		issuer := NewTokenIssuer(testJWTConfig())
		pair, err := issuer.Issue(ctx, Principal{UserID: "u-1"})
		require.NoError(t, err)

		issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

		_, err = issuer.Validate(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("token from another secret", func(t *testing.T) {
		other := NewTokenIssuer(JWTConfig{SecretKey: "other", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
		pair, err := other.Issue(ctx, Principal{UserID: "u-1"})
		require.NoError(t, err)

		_, err = NewTokenIssuer(testJWTConfig()).Validate(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = NewTokenIssuer(testJWTConfig()).Validate(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NewTokenIssuer(testJWTConfig()).Validate(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tokens issued before expiry generation", func(t *testing.T) {
		issuer := NewTokenIssuer(testJWTConfig())
		before, err := issuer.Issue(ctx, Principal{UserID: "u-1"})
		require.NoError(t, err)

		issuer.ExpireAccessTokens(ctx)

		_, err = issuer.Validate(ctx, before.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)

		after, err := issuer.Rotate(ctx, before.RefreshToken)
		require.NoError(t, err)
		_, err = issuer.Validate(ctx, after.AccessToken)
		assert.NoError(t, err)
	})
}

func TestTokenIssuer_Rotate(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh token is single use", func(t *testing.T) {
		issuer := NewTokenIssuer(testJWTConfig())
		pair, err := issuer.Issue(ctx, Principal{UserID: "u-1", Username: "demo"})
		require.NoError(t, err)

		rotated, err := issuer.Rotate(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
		assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)

		_, err = issuer.Rotate(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		issuer := NewTokenIssuer(testJWTConfig())
		pair, err := issuer.Issue(ctx, Principal{UserID: "u-1"})
		require.NoError(t, err)

		issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		_, err = issuer.Rotate(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		issuer := NewTokenIssuer(testJWTConfig())
		pair, err := issuer.Issue(ctx, Principal{UserID: "u-1"})
		require.NoError(t, err)

		issuer.Revoke(pair.RefreshToken)

		_, err = issuer.Rotate(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}

func TestUserRegistry(t *testing.T) {
	ctx := context.Background()
	users := NewUserRegistry(4)

	user, err := users.Register(ctx, " Demo@Revornix.com ", "demo", "secret-1")
	require.NoError(t, err)
	assert.Equal(t, "demo@revornix.com", user.Email)
	assert.NotEqual(t, "secret-1", user.PasswordHash)

	got, ok := users.Get(user.ID)
	require.True(t, ok)
	assert.Same(t, user, got)

	_, err = users.Register(ctx, "demo@revornix.com", "again", "secret-2")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = users.Register(ctx, "short@revornix.com", "short", "123")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	authed, err := users.Authenticate(ctx, "DEMO@revornix.com", "secret-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = users.Authenticate(ctx, "demo@revornix.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Authenticate(ctx, "nobody@revornix.com", "secret-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
