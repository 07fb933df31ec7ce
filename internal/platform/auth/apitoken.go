package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const opaqueTokenBytes = 32

// GenerateOpaqueToken returns 32 bytes of cryptographically secure
// randomness, hex encoded. The cleartext is shown to the caller once and
// only its hash is ever stored.
func GenerateOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hex digest of a token string. This is the
// sole lookup key for persisted refresh, API and invitation tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
