package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	healthhandler "room-booking/backend/internal/health/handler"
	"room-booking/backend/internal/observability/logger"
	"room-booking/backend/internal/server/interceptors"
)

// Health check methods. They are public and never logged or audited.
const (
	HealthCheckMethod = "/grpc.health.v1.Health/Check"
	HealthWatchMethod = "/grpc.health.v1.Health/Watch"
)

// Deps holds the dependencies of the gRPC server.
type Deps struct {
	// Validator validates bearer access tokens (identity/service.AuthService). Required.
	Validator interceptors.AccessValidator
	// Tenants resolves the tenant context of each request. Required.
	Tenants interceptors.TenantResolver
	// Health serves grpc.health.v1. If nil, no health service is registered.
	Health *healthhandler.Server
	// PublicMethods are full method names callable without a bearer token, in addition to the health checks
	// (e.g. the booking API's Login and Refresh RPCs).
	PublicMethods []string
	// Logger is the base request logger. Defaults to the "grpc" named logger.
	Logger *zap.Logger
}

// publicMethods returns the set of methods that do not require a bearer token.
func (d Deps) publicMethods() map[string]bool {
	m := map[string]bool{HealthCheckMethod: true, HealthWatchMethod: true}
	for _, name := range d.PublicMethods {
		m[name] = true
	}
	return m
}

// NewServer returns a gRPC server with OTel instrumentation and the interceptor chain
// logging -> tenant -> auth -> audit. Extra options are appended.
func NewServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	base := deps.Logger
	if base == nil {
		base = logger.Named("grpc")
	}
	skip := map[string]bool{HealthCheckMethod: true, HealthWatchMethod: true}

	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.LoggingUnary(base, skip),
			interceptors.TenantUnary(deps.Tenants),
			interceptors.AuthUnary(deps.Validator, deps.publicMethods()),
			interceptors.AuditUnary(base.Named("audit"), skip),
		),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the services this process owns with s. Booking API services are registered
// by their own packages on the returned server.
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.Health != nil {
		deps.Health.Register(s)
	}
}
