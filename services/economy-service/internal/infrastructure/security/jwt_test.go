package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAccessToken(t *testing.T) {
	m := NewTokenManager("secret")

	token, err := m.Generate("5f0c7a52-2d5e-4a43-9d1c-1f3b3a0b9e11", time.Minute)
	require.NoError(t, err)

	sub, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "5f0c7a52-2d5e-4a43-9d1c-1f3b3a0b9e11", sub)
}

func TestValidateAccessTokenRejects(t *testing.T) {
	m := NewTokenManager("secret")

	expired, err := m.Generate("u1", -time.Minute)
	require.NoError(t, err)
	other, err := NewTokenManager("other").Generate("u1", time.Minute)
	require.NoError(t, err)
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "exp": time.Now().Add(time.Minute).Unix(), "type": "refresh",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"expired":      expired,
		"wrong secret": other,
		"refresh":      refresh,
		"no subject":   noSub,
		"no expiry":    noExp,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.ValidateAccessToken(token)
			assert.Error(t, err)
		})
	}
}
