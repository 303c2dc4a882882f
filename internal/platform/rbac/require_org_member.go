// Package rbac guards handlers on the authenticated access token claims in context.
// It never touches the store: memberships were checked when the token was issued or refreshed.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"room-booking/backend/internal/membership/domain"
	"room-booking/backend/internal/server/interceptors"
)

// RequireOrgMember ensures the caller holds an organization-scoped token (any role).
// Returns (orgID, userID, role, nil) on success; returns a gRPC error (Unauthenticated or PermissionDenied) on failure.
func RequireOrgMember(ctx context.Context) (orgID string, userID int64, role domain.Role, err error) {
	claims, ok := interceptors.GetClaims(ctx)
	if !ok {
		return "", 0, "", status.Error(codes.Unauthenticated, "authentication required")
	}
	userID, okUser := interceptors.GetUserID(ctx)
	if !okUser {
		return "", 0, "", status.Error(codes.Unauthenticated, "authentication required")
	}
	if claims.OrgID == "" {
		return "", 0, "", status.Error(codes.PermissionDenied, "organization context required")
	}
	role = domain.Role(claims.OrgRole)
	if !role.Valid() {
		return "", 0, "", status.Error(codes.PermissionDenied, "not a member of this organization")
	}
	return claims.OrgID, userID, role, nil
}
