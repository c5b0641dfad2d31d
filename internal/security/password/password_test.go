package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(bcrypt.MinCost)
	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$04$"), "hash %q should embed algorithm and cost", hash)

	assert.True(t, h.Verify("secret1", hash))
	assert.False(t, h.Verify("secret2", hash))
	assert.False(t, h.Verify("", hash))
}

func TestHashIsSalted(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(bcrypt.MinCost)
	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("same-password", first))
	assert.True(t, h.Verify("same-password", second))
}

func TestVerifyMalformedHash(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(bcrypt.MinCost)
	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$ZGlnZXN0",
		"$2a$04$tooshort",
	} {
		assert.False(t, h.Verify("secret1", hash), "hash %q", hash)
	}
}

func TestHashRejectsTruncatedInput(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(bcrypt.MinCost)
	_, err := h.Hash(strings.Repeat("a", MaxLength+1))
	require.ErrorIs(t, err, ErrTooLong)

	_, err = h.Hash(strings.Repeat("a", MaxLength))
	require.NoError(t, err)
}

func TestNewBcryptCostBounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(bcrypt.MaxCost+1).Cost())
	assert.Equal(t, 12, NewBcrypt(12).Cost())
}
