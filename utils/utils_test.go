package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := GenerateJWT(secret, 42, "ada@example.com", AccessToken, time.Minute)
	require.NoError(t, err)

	claims, err := ParseJWT(secret, tok)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
	assert.Equal(t, AccessToken, claims.Type)
	assert.Equal(t, "ada@example.com", claims.Email)

	_, err = ParseJWT([]byte("other"), tok)
	assert.Error(t, err)

	unverified, err := ParseClaimsUnverified(tok)
	require.NoError(t, err)
	assert.Equal(t, "42", unverified.Subject)
}

func TestJWTExpired(t *testing.T) {
	tok, err := GenerateJWT([]byte("k"), 1, "", RefreshToken, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT([]byte("k"), tok)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("password123", hash))
	assert.False(t, CheckPasswordHash("password124", hash))
}

func TestNutritionMath(t *testing.T) {
	assert.Equal(t, 2003.0, CaloriesFromMacros(150, 200, 67))
	assert.InDelta(t, 25, Deviation(1500, 2000), 1e-9)
	assert.Zero(t, Deviation(10, 0))
	assert.Equal(t, 8, Percentage(156, 2000))
	assert.Equal(t, 22.3, RoundTo(156.0/7, 1))

	assert.Equal(t, "low", MacroStatus(10))
	assert.Equal(t, "medium", MacroStatus(75))
	assert.Equal(t, "good", MacroStatus(100))
	assert.Equal(t, "high", MacroStatus(130))

	p, c, f := MacroSplit(100, 200, 50)
	assert.InDelta(t, 100, p+c+f, 1)
}
