package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "peacelink",
		AccessTokenTTL: time.Hour,
		Clock:          now,
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:   "user-123",
		Role:     "admin",
		Audience: []string{"api"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, "peacelink", claims.Issuer)
	require.Equal(t, jwt.ClaimStrings{"api"}, claims.Audience)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{
		Secret:         "issuer-secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	other, err := NewJWTService(JWTConfig{
		Secret:         "other-secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "user-9"})
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewJWTService(JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	expired, err := NewJWTService(JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return current.Add(2 * time.Minute) },
	})
	require.NoError(t, err)

	_, err = expired.ValidateAccessToken(token)
	require.Error(t, err)
}
