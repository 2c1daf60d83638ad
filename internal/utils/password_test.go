package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("espresso-machine", 4)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, VerifyPassword(hash, "espresso-machine"))
	assert.False(t, VerifyPassword(hash, "espresso-machine "))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestHashPasswordOutOfRangeCostFallsBack(t *testing.T) {
	hash, err := HashPassword("flat-white", 99)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "flat-white"))

	hash, err = HashPassword("flat-white", -1)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "flat-white"))
}

func TestVerifyPasswordBadHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "anything"))
}
