package hasher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	h := New(bcrypt.MinCost)

	hash, err := h.HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)

	assert.NoError(t, h.ComparePasswordAndHash("secret", hash))
	assert.ErrorIs(t, h.ComparePasswordAndHash("wrong", hash), ErrMismatchedHashAndPassword)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := New(bcrypt.MinCost).HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestHashPasswordRejectsTooLong(t *testing.T) {
	h := New(bcrypt.MinCost)

	_, err := h.HashPassword(strings.Repeat("p", MaxPasswordLength))
	assert.NoError(t, err)

	_, err = h.HashPassword(strings.Repeat("p", MaxPasswordLength+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// 45 runes, 90 bytes.
	_, err = h.HashPassword(strings.Repeat("я", 45))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestCompareWithCorruptHash(t *testing.T) {
	err := New(bcrypt.MinCost).ComparePasswordAndHash("secret", "not-a-hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatchedHashAndPassword)
}

func TestNewFallsBackToDefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, New(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, New(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, New(12).cost)
}
