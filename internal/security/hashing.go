package security

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost int

	dummyOnce   sync.Once
	dummyDigest string
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login. The dummy digest is computed here, once.
func NewHasher(cost int) *Hasher {
	h := &Hasher{Cost: clampCost(cost)}
	h.DummyDigest()
	return h
}

func clampCost(cost int) int {
	if cost <= 0 {
		return bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		return bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		return bcrypt.MaxCost
	}
	return cost
}

// Hash produces a bcrypt hash of password. Returns the hash as a string suitable for storage.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. Returns nil if they match; returns an
// error (including bcrypt.ErrMismatchedHashAndPassword) if they do not or on invalid hash.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}

// Verify reports whether password matches digest.
func (h *Hasher) Verify(password []byte, digest string) bool {
	return h.Compare(digest, password) == nil
}

// DummyDigest returns a digest of a random password at this Hasher's cost. NewHasher computes it
// and it never changes afterwards. Verifying against it costs the same as a real check, which is
// what the credential verifier runs when no user matches.
func (h *Hasher) DummyDigest() string {
	h.dummyOnce.Do(func() {
		b := make([]byte, 24)
		if _, err := rand.Read(b); err != nil {
			panic("security: crypto/rand failed: " + err.Error())
		}
		d, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(b)), h.Cost)
		if err != nil {
			panic("security: dummy digest: " + err.Error())
		}
		h.dummyDigest = string(d)
	})
	return h.dummyDigest
}
