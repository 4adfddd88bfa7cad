package admin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecret_Verify_Plain(t *testing.T) {
	req := require.New(t)
	secret := NewSecret("admin123")

	req.True(secret.Verify("admin123"))
	req.False(secret.Verify("admin124"))
	req.False(secret.Verify(""))
}

func TestSecret_Verify_Argon2Hash(t *testing.T) {
	req := require.New(t)

	// Given a hashed secret in the environment variable shape
	encoded, err := HashSecret("s3cret")
	req.NoError(err)
	req.True(strings.HasPrefix(encoded, "$argon2id$"))

	secret := NewSecret(encoded)

	req.True(secret.Verify("s3cret"))
	req.False(secret.Verify("wrong"))

	// And two hashes of the same password differ thanks to the random salt
	other, err := HashSecret("s3cret")
	req.NoError(err)
	req.NotEqual(encoded, other)
}

func TestSecret_Verify_CorruptHash(t *testing.T) {
	req := require.New(t)

	secret := NewSecret("$argon2id$not-a-real-hash")
	req.False(secret.Verify("anything"))
}
