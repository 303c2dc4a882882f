package interceptors

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"room-booking/backend/internal/observability/logger"
)

// LoggingUnary returns a unary server interceptor that stores a request-scoped logger in context and
// logs each finished RPC with its status code and duration. skipMethods are neither logged nor tagged
// (e.g. health checks).
func LoggingUnary(base *zap.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if skipMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		log := base.With(logger.Method(info.FullMethod), zap.String("client_ip", ClientIP(ctx)))
		ctx = logger.ToContext(ctx, log)

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{zap.String("code", code.String()), zap.Duration("took", time.Since(start))}
		switch code {
		case codes.OK:
			log.Debug("rpc", fields...)
		case codes.Internal, codes.Unavailable, codes.Unknown, codes.DataLoss:
			log.Error("rpc", fields...)
		default:
			log.Info("rpc", fields...)
		}
		return resp, err
	}
}
