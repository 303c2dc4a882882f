package interceptors

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"room-booking/backend/internal/observability/logger"
	"room-booking/backend/internal/tenant"
)

// OrganizationHeader carries an explicit organization id from a trusted front end.
const OrganizationHeader = "x-organization-id"

// TenantResolver maps a host and optional organization header to a tenant context.
type TenantResolver interface {
	Resolve(ctx context.Context, host, headerOrg string) (tenant.Context, error)
}

// TenantUnary returns a unary server interceptor that resolves the tenant context from the request's
// :authority (or x-forwarded-host) and x-organization-id metadata and stores it in context before
// authentication runs. Unknown or inactive organizations are rejected with NotFound.
func TenantUnary(resolver TenantResolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		host, headerOrg := tenantMetadata(ctx)
		tc, err := resolver.Resolve(ctx, host, headerOrg)
		if err != nil {
			if errors.Is(err, tenant.ErrUnknownTenant) {
				return nil, status.Error(codes.NotFound, "unknown tenant")
			}
			logger.From(ctx).Error("tenant: resolve", logger.Method(info.FullMethod), logger.Err(err))
			return nil, status.Error(codes.Unavailable, "tenant resolution failed")
		}
		return handler(tenant.WithContext(ctx, tc), req)
	}
}

// tenantMetadata returns the request host and organization header from ctx metadata.
func tenantMetadata(ctx context.Context) (host, headerOrg string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ""
	}
	for _, key := range []string{"x-forwarded-host", ":authority", "host"} {
		if vals := md.Get(key); len(vals) > 0 {
			if h := strings.TrimSpace(vals[0]); h != "" {
				host = h
				break
			}
		}
	}
	if vals := md.Get(OrganizationHeader); len(vals) > 0 {
		headerOrg = strings.TrimSpace(vals[0])
	}
	return host, headerOrg
}
