package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// RefreshSecretBytes is the entropy of a refresh token secret.
const RefreshSecretBytes = 32

// MaxRefreshSecretLen bounds what is worth hashing; anything longer was not issued here.
const MaxRefreshSecretLen = 256

// NewRefreshSecret returns a random opaque refresh secret, base64url without padding.
func NewRefreshSecret() (string, error) {
	b := make([]byte, RefreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashRefreshToken returns a SHA-256 hash of the refresh token string, hex-encoded.
// Only this hash is stored; lookups hash the presented secret and query by it.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
