package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"room-booking/backend/internal/server/interceptors"
)

// RequirePlatformAdmin ensures the caller holds a platform-scoped token.
func RequirePlatformAdmin(ctx context.Context) (userID int64, err error) {
	claims, ok := interceptors.GetClaims(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "authentication required")
	}
	userID, ok = interceptors.GetUserID(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "authentication required")
	}
	if !claims.IsPlatformAdmin {
		return 0, status.Error(codes.PermissionDenied, "platform admin required")
	}
	return userID, nil
}
