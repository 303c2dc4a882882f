// server runs the auth gRPC server (tenant resolution, bearer validation, health) and, when
// CLEANUP_ENABLED is set, the retention sweeper in the same process.
package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"room-booking/backend/internal/config"
	"room-booking/backend/internal/db"
	"room-booking/backend/internal/db/migrate"
	healthhandler "room-booking/backend/internal/health/handler"
	identityservice "room-booking/backend/internal/identity/service"
	membershiprepo "room-booking/backend/internal/membership/repository"
	"room-booking/backend/internal/observability/logger"
	orgrepo "room-booking/backend/internal/organization/repository"
	refreshrepo "room-booking/backend/internal/refreshtoken/repository"
	refreshservice "room-booking/backend/internal/refreshtoken/service"
	"room-booking/backend/internal/retention"
	revocationrepo "room-booking/backend/internal/revocation/repository"
	revocationservice "room-booking/backend/internal/revocation/service"
	"room-booking/backend/internal/security"
	"room-booking/backend/internal/server"
	"room-booking/backend/internal/telemetry"
	telemetryotel "room-booking/backend/internal/telemetry/otel"
	"room-booking/backend/internal/tenant"
	userrepo "room-booking/backend/internal/user/repository"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const healthInterval = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("config", logger.Err(err))
	}
	logger.Init(logger.Config{Env: cfg.Env, Level: cfg.LogLevel, ServiceName: cfg.ServiceName, Version: version})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("server")

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", logger.Err(err))
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.DBMigrateOnStart {
		if err := migrate.Up(cfg.DatabaseURL); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("otel shutdown", logger.Err(err))
		}
	}()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		return err
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	issuer, err := security.NewTokenIssuer([]byte(cfg.JWTSigningKey), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	if err != nil {
		return err
	}

	orgs := orgrepo.NewPostgresRepository(sqlDB)
	refreshRepo := refreshrepo.NewPostgresRepository(sqlDB)
	revokedRepo := revocationrepo.NewPostgresRepository(sqlDB)
	refreshStore := refreshservice.NewStore(refreshRepo, cfg.RefreshTTL(), cfg.RefreshRotateMaxRetries)
	registry := revocationservice.NewRegistry(revokedRepo)

	auth := identityservice.NewAuthService(
		identityservice.NewVerifier(
			userrepo.NewPostgresRepository(sqlDB),
			orgs,
			membershiprepo.NewPostgresRepository(sqlDB),
			security.NewHasher(cfg.BcryptCost),
		),
		issuer,
		refreshStore,
		registry,
		db.NewTransactor(sqlDB),
		identityservice.WithEmitter(telemetryotel.NewEventEmitter(providers.LoggerProvider)),
		identityservice.WithMetrics(metrics),
	)

	health := healthhandler.NewServer(sqlDB)
	grpcServer := server.NewServer(server.Deps{
		Validator: auth,
		Tenants:   tenant.NewResolver(orgs, cfg.TenantBaseDomain, cfg.PlatformSubdomain),
		Health:    health,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		health.Watch(gctx, healthInterval)
		return nil
	})
	if cfg.CleanupEnabled {
		sweeper := retention.NewSweeper(refreshStore, registry, cfg.CleanupInterval(), cfg.RevokedGrace(), metrics)
		g.Go(func() error {
			if err := sweeper.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gRPC server...")
		health.Shutdown()
		grpcServer.GracefulStop()
		// Let in-flight async auth events reach the exporter before providers shut down.
		time.Sleep(telemetry.ShutdownDrainDuration)
		return nil
	})
	return g.Wait()
}
