package interceptors

import (
	"context"
	"strconv"

	"room-booking/backend/internal/security"
)

type contextKey struct{ name string }

var claimsKey = contextKey{"claims"}

// WithClaims returns a context carrying the validated access token claims.
// Handlers and the rbac guards read them via GetClaims, GetUserID, GetOrgID.
func WithClaims(ctx context.Context, c *security.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// GetClaims returns the claims from context and true if set; otherwise nil, false.
func GetClaims(ctx context.Context) (*security.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*security.AccessClaims)
	return c, ok && c != nil
}

// GetUserID returns the numeric subject from context and true if set; otherwise 0, false.
func GetUserID(ctx context.Context) (int64, bool) {
	c, ok := GetClaims(ctx)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GetOrgID returns the org_id claim from context and true if set; otherwise "", false.
func GetOrgID(ctx context.Context) (string, bool) {
	c, ok := GetClaims(ctx)
	if !ok || c.OrgID == "" {
		return "", false
	}
	return c.OrgID, true
}
