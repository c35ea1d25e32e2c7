package password_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/journeysyoga/journeys/internal/lib/password"
)

func TestGetHashAndCompare(t *testing.T) {
	hash, err := password.GetHash("secret-password")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "secret-password", hash)

	assert.NoError(t, password.CompareHash(hash, "secret-password"))
	assert.Error(t, password.CompareHash(hash, "wrong-password"))
}

func TestHashesDiffer(t *testing.T) {
	first, err := password.GetHash("same-password")
	require.NoError(t, err)
	second, err := password.GetHash("same-password")
	require.NoError(t, err)

	// bcrypt salts every hash
	assert.NotEqual(t, first, second)
}
