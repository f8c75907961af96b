package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	cfg := DefaultConfig("test-secret", time.Hour)

	token, expiresAt, err := GenerateToken("64f1c0a2b3c4d5e6f7a8b9c0", "ada@example.com", "Ada", cfg)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := ValidateToken(token, cfg)
	require.NoError(t, err)
	require.Equal(t, "64f1c0a2b3c4d5e6f7a8b9c0", claims.UserID)
	require.Equal(t, "ada@example.com", claims.Email)
	require.Equal(t, "Ada", claims.Name)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateToken("u1", "a@b.c", "", DefaultConfig("one", time.Hour))
	require.NoError(t, err)

	_, err = ValidateToken(token, DefaultConfig("two", time.Hour))
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := DefaultConfig("s", time.Hour)
	cfg.AccessExpiry = -time.Minute

	token, _, err := GenerateToken("u1", "a@b.c", "", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(token, cfg)
	require.Error(t, err)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	cfg := DefaultConfig("s", time.Hour)
	token, _, err := GenerateToken("u1", "a@b.c", "", cfg)
	require.NoError(t, err)

	other := DefaultConfig("s", time.Hour)
	other.Audience = "someone-else"
	_, err = ValidateToken(token, other)
	require.Error(t, err)
}

func TestGetTokenClaims(t *testing.T) {
	token, _, err := GenerateToken("u1", "a@b.c", "Ada", DefaultConfig("s", time.Hour))
	require.NoError(t, err)

	claims, err := GetTokenClaims(token)
	require.NoError(t, err)
	require.Equal(t, "Ada", claims.Name)

	_, err = ValidateToken(token, nil)
	require.ErrorIs(t, err, ErrMissingConfig)
}
