// Package admin implements moderator authentication and the admin actions
// (KICK, MUTE, UNMUTE, BROADCAST, ROOMS, USERS).
package admin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters based on OWASP/CNIL recommendations
const (
	memory      = 64 * 1024 // 64 MB
	iterations  = 3
	parallelism = 2
	saltLength  = 16
	keyLength   = 32
)

const hashPrefix = "$argon2id$"

// Secret verifies the shared admin secret. The configured value is either
// the plain secret itself or an argon2id hash string produced by HashSecret;
// both shapes are compared in constant time.
type Secret struct {
	configured string
}

func NewSecret(configured string) Secret {
	return Secret{configured: configured}
}

func (s Secret) Verify(password string) bool {
	if strings.HasPrefix(s.configured, hashPrefix) {
		ok, err := compareHash(password, s.configured)
		return err == nil && ok
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.configured)) == 1
}

// HashSecret generates an argon2id hash suitable for the ADMIN_SECRET
// environment variable.
func HashSecret(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// The string embeds every parameter needed for verification.
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		hashPrefix, argon2.Version, memory, iterations, parallelism, b64Salt, b64Hash), nil
}

func compareHash(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, errors.New("invalid hash format")
	}

	var version, mem, iter, par int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, err
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return false, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}

	comparison := argon2.IDKey([]byte(password), salt,
		uint32(iter), uint32(mem), uint8(par), uint32(len(decodedHash)))

	return subtle.ConstantTimeCompare(decodedHash, comparison) == 1, nil
}
