package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/journeysyoga/journeys/internal/lib/jwt"
)

func TestGenerateAndParseToken(t *testing.T) {
	maker := jwt.NewMaker("test-secret", time.Hour)

	token, err := maker.GenerateToken("yogi@example.com", "Yogi")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "yogi@example.com", claims.Email)
	assert.Equal(t, "Yogi", claims.Name)
}

func TestParseTokenWrongSecret(t *testing.T) {
	maker := jwt.NewMaker("test-secret", time.Hour)
	other := jwt.NewMaker("other-secret", time.Hour)

	token, err := maker.GenerateToken("yogi@example.com", "Yogi")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	maker := jwt.NewMaker("test-secret", -time.Minute)

	token, err := maker.GenerateToken("yogi@example.com", "Yogi")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.Error(t, err)
}
