package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, salt, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.Len(t, salt, SaltSize)
	require.Len(t, hash, sha256.Size)

	assert.True(t, VerifyPassword("s3cret", hash, salt))
	assert.False(t, VerifyPassword("S3cret", hash, salt))
	assert.False(t, VerifyPassword("", hash, salt))
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	h1, s1, err := HashPassword("same")
	require.NoError(t, err)
	h2, s2, err := HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, h1, h2)
}

// The digest must be SHA-256 over the password concatenated with the
// uppercase hex rendering of the salt, matching what the gateway's own
// authentication code computes.
func TestHashPasswordNativeScheme(t *testing.T) {
	hash, salt, err := HashPassword("guacadmin")
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("guacadmin" + strings.ToUpper(hex.EncodeToString(salt))))
	assert.Equal(t, sum[:], hash)
}
