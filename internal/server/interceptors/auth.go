package interceptors

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	identityservice "room-booking/backend/internal/identity/service"
	"room-booking/backend/internal/observability/logger"
	"room-booking/backend/internal/security"
	"room-booking/backend/internal/tenant"
)

const bearerPrefix = "bearer "

// AccessValidator validates an access token, including the revocation denylist.
// identity/service.AuthService implements it. Rejected tokens wrap ErrAuthenticationFailed;
// any other error is a store failure and maps to Unavailable.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, accessToken string) (*security.AccessClaims, error)
}

var errUnauthenticated = status.Error(codes.Unauthenticated, "missing or invalid authorization")

// AuthUnary returns a unary server interceptor that validates the Bearer (access) token
// from gRPC metadata and stores its claims in context for protected RPCs.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. Login, Refresh, health checks). A token that fails validation on a public method is ignored.
// A token whose scope disagrees with the tenant resolved by TenantUnary is rejected.
func AuthUnary(validator AccessValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, errUnauthenticated
		}

		claims, err := validator.ValidateAccess(ctx, token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			if !errors.Is(err, identityservice.ErrAuthenticationFailed) {
				logger.From(ctx).Error("auth: validate access token", logger.Method(info.FullMethod), logger.Err(err))
				return nil, status.Error(codes.Unavailable, "authorization temporarily unavailable")
			}
			return nil, errUnauthenticated
		}

		if tc, ok := tenant.FromContext(ctx); ok && !matchesTenant(claims, tc.Scope()) {
			logger.From(ctx).Info("auth: token outside tenant",
				logger.Method(info.FullMethod), logger.JTI(claims.ID), logger.Scope(tc.Scope().String()))
			if public {
				return handler(ctx, req)
			}
			return nil, errUnauthenticated
		}

		return handler(WithClaims(ctx, claims), req)
	}
}

// matchesTenant reports whether a token issued for one scope may be used in scope.
func matchesTenant(c *security.AccessClaims, scope tenant.Scope) bool {
	switch scope.Kind {
	case tenant.KindOrganization:
		return c.OrgID == scope.OrganizationID
	case tenant.KindPlatform:
		return c.IsPlatformAdmin
	default:
		return c.OrgID == "" && !c.IsPlatformAdmin
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
