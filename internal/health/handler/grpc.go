package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"room-booking/backend/internal/observability/logger"
)

// pingTimeout bounds one readiness probe of the database.
const pingTimeout = 2 * time.Second

// Pinger reports database reachability (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server serves the standard grpc.health.v1 service for readiness/liveness.
// The overall status ("") follows the database: SERVING while it answers pings, NOT_SERVING otherwise.
type Server struct {
	hs     *health.Server
	pinger Pinger
}

// NewServer returns a health server. A nil pinger means always SERVING.
func NewServer(pinger Pinger) *Server {
	s := &Server{hs: health.NewServer(), pinger: pinger}
	s.hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return s
}

// Register registers the health service on r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(r, s.hs)
}

// Check pings the database once and updates the serving status. Returns the resulting status.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.pinger.PingContext(pingCtx)
		cancel()
		if err != nil {
			logger.Named("health").Warn("database ping failed", logger.Err(err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.hs.SetServingStatus("", st)
	return st
}

// Watch runs Check every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING so load balancers drain before GracefulStop.
func (s *Server) Shutdown() {
	s.hs.Shutdown()
}
