package interceptors

import (
	"context"
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"room-booking/backend/internal/audit"
	"room-booking/backend/internal/observability/logger"
	"room-booking/backend/internal/tenant"
)

// AuditUnary returns a unary server interceptor that writes an audit entry after each authenticated RPC.
// Entries go to log with the caller's user, organization and tenant scope.
// skipMethods is the set of full method names to not audit. Unauthenticated calls are not audited here;
// login and refresh outcomes are reported as auth events by the session engine.
func AuditUnary(log *zap.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		userID, ok := GetUserID(ctx)
		if !ok {
			return resp, err
		}
		orgID, _ := GetOrgID(ctx)
		ar := audit.ParseFullMethod(info.FullMethod)
		log.Info("audit",
			logger.UserID(userID),
			logger.OrgID(orgID),
			logger.Scope(tenant.ScopeFromContext(ctx).String()),
			logger.Method(info.FullMethod),
			zap.String("action", ar.Action),
			zap.String("resource", ar.Resource),
			zap.String("code", status.Code(err).String()),
		)
		return resp, err
	}
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
