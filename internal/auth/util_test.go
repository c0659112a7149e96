package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRawToken_Unique(t *testing.T) {
	a, err := GenerateRawToken(TokenBytes)
	require.NoError(t, err)
	b, err := GenerateRawToken(TokenBytes)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, HashToken(a))
	assert.Equal(t, HashToken(a), HashToken(a))
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("short")
	require.ErrorIs(t, err, ErrWeakPassword)

	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "correct horse"))
	assert.False(t, CheckPassword(h, "wrong horse!"))
}
