package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed, expired or for another issuer/audience.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSigningKeyTooShort is returned by NewTokenIssuer for keys under MinSigningKeyBytes.
	ErrSigningKeyTooShort = errors.New("signing key too short")
	// ErrAccessTTLOutOfRange is returned by NewTokenIssuer for TTLs outside [MinAccessTTL, MaxAccessTTL].
	ErrAccessTTLOutOfRange = errors.New("access token ttl out of range")
)

const (
	MinSigningKeyBytes = 32
	MinAccessTTL       = 5 * time.Minute
	MaxAccessTTL       = 60 * time.Minute
)

// ClaimSet is what the claim builder derives for one token. Exactly one scope section is
// populated: OrgID/OrgRole for an organization, IsPlatformAdmin for platform, Role for legacy.
type ClaimSet struct {
	Subject  string
	JTI      string
	IssuedAt time.Time

	OrgID           string
	OrgRole         string
	IsPlatformAdmin bool
	Role            string
}

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	OrgID           string `json:"org_id,omitempty"`
	OrgRole         string `json:"org_role,omitempty"`
	IsPlatformAdmin bool   `json:"is_platform_admin,omitempty"`
	Role            string `json:"role,omitempty"`
}

// TokenIssuer signs and validates HS256 access tokens. The key is copied at construction
// and never leaves the issuer.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenIssuer returns a TokenIssuer. A key shorter than 32 bytes or a TTL outside 5..60 minutes
// is a configuration fault; callers must refuse to start.
func NewTokenIssuer(key []byte, issuer, audience string, ttl time.Duration) (*TokenIssuer, error) {
	if len(key) < MinSigningKeyBytes {
		return nil, fmt.Errorf("%w: need %d bytes", ErrSigningKeyTooShort, MinSigningKeyBytes)
	}
	if ttl < MinAccessTTL || ttl > MaxAccessTTL {
		return nil, fmt.Errorf("%w: %v", ErrAccessTTLOutOfRange, ttl)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &TokenIssuer{key: k, issuer: issuer, audience: audience, ttl: ttl, now: time.Now}, nil
}

// TTL returns the configured access token lifetime.
func (p *TokenIssuer) TTL() time.Duration { return p.ttl }

// Issue signs claims and returns the token and its expiry (issued-at + ttl, UTC).
// The token is not persisted anywhere.
func (p *TokenIssuer) Issue(cs ClaimSet) (token string, expiresAt time.Time, err error) {
	if cs.Subject == "" || cs.JTI == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	iat := cs.IssuedAt.UTC()
	if cs.IssuedAt.IsZero() {
		iat = p.now().UTC()
	}
	iat = iat.Truncate(time.Second)
	expiresAt = iat.Add(p.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        cs.JTI,
			Subject:   cs.Subject,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(iat),
			NotBefore: jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		OrgID:           cs.OrgID,
		OrgRole:         cs.OrgRole,
		IsPlatformAdmin: cs.IsPlatformAdmin,
		Role:            cs.Role,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Parse validates the access token (algorithm, signature, exp, nbf, iss, aud, jti, sub) and returns its claims.
// Every failure is reported as ErrInvalidToken.
func (p *TokenIssuer) Parse(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewJTI returns a fresh random token id.
func NewJTI() string {
	return uuid.NewString()
}

// ValidJTI reports whether s has the shape NewJTI produces.
func ValidJTI(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
