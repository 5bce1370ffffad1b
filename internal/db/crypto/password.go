// Package crypto implements the gateway's native salted password scheme.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// SaltSize is the salt length the gateway's web application expects.
const SaltSize = 32

// HashPassword generates a fresh salt and hashes the password the way the
// gateway stores it: SHA-256 over the password concatenated with the
// uppercase hex encoding of the salt.
func HashPassword(password string) (hash, salt []byte, err error) {
	salt = make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	return hashWithSalt(password, salt), salt, nil
}

// VerifyPassword reports whether password matches the stored hash/salt pair.
func VerifyPassword(password string, hash, salt []byte) bool {
	return subtle.ConstantTimeCompare(hashWithSalt(password, salt), hash) == 1
}

func hashWithSalt(password string, salt []byte) []byte {
	sum := sha256.Sum256([]byte(password + strings.ToUpper(hex.EncodeToString(salt))))
	return sum[:]
}
