package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"room-booking/backend/internal/membership/domain"
)

// RequireOrgRole ensures the caller is an organization member with at least role min
// (User < Approver < OrgAdmin).
func RequireOrgRole(ctx context.Context, min domain.Role) (orgID string, userID int64, err error) {
	orgID, userID, role, err := RequireOrgMember(ctx)
	if err != nil {
		return "", 0, err
	}
	if !role.AtLeast(min) {
		return "", 0, status.Errorf(codes.PermissionDenied, "organization role %s required", min)
	}
	return orgID, userID, nil
}

// RequireOrgAdmin ensures the caller is an OrgAdmin of the token's organization.
func RequireOrgAdmin(ctx context.Context) (orgID string, userID int64, err error) {
	return RequireOrgRole(ctx, domain.RoleOrgAdmin)
}
