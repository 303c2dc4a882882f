package security

import "time"

// testSigningKey is for unit tests only. Do not use in production.
const testSigningKey = "test-signing-key-0123456789abcdef-unit-tests-only"

// NewTestTokenIssuer returns a TokenIssuer using an embedded test key and a 15 minute TTL.
// For unit tests only. Callers must not use in production.
func NewTestTokenIssuer() *TokenIssuer {
	p, err := NewTokenIssuer([]byte(testSigningKey), "test-issuer", "test-audience", 15*time.Minute)
	if err != nil {
		panic(err)
	}
	return p
}
