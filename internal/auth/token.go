// Package auth provides session token and one-time code primitives.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

var ErrInvalidToken = errors.New("invalid token")

// NewSessionToken returns an opaque 32-byte random token. The raw value goes
// to the client; only its hash is used as a storage key.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken derives the storage key for a client-held token.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// NewCode returns a 6-digit one-time code drawn from crypto/rand.
// Leading zeros are preserved.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate one-time code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
