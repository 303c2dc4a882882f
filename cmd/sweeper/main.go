// sweeper runs the retention sweeper as its own process: it deletes expired and revoked refresh tokens
// and expired denylist entries. Use -once for a single sweep (e.g. from cron).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"room-booking/backend/internal/config"
	"room-booking/backend/internal/db"
	"room-booking/backend/internal/observability/logger"
	refreshrepo "room-booking/backend/internal/refreshtoken/repository"
	refreshservice "room-booking/backend/internal/refreshtoken/service"
	"room-booking/backend/internal/retention"
	revocationrepo "room-booking/backend/internal/revocation/repository"
	revocationservice "room-booking/backend/internal/revocation/service"
)

func main() {
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("config", logger.Err(err))
	}
	logger.Init(logger.Config{Env: cfg.Env, Level: cfg.LogLevel, ServiceName: "room-booking-sweeper"})
	log := logger.Named("sweeper")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log, *once)
	stop()
	_ = logger.Sync()
	if err != nil {
		log.Fatal("sweeper exited", logger.Err(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, once bool) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer sqlDB.Close()

	sweeper := retention.NewSweeper(
		refreshservice.NewStore(refreshrepo.NewPostgresRepository(sqlDB), cfg.RefreshTTL(), cfg.RefreshRotateMaxRetries),
		revocationservice.NewRegistry(revocationrepo.NewPostgresRepository(sqlDB)),
		cfg.CleanupInterval(),
		cfg.RevokedGrace(),
		nil,
	)

	if once {
		res, err := sweeper.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		log.Info("sweep done", logger.Count("refresh_tokens", res.RefreshTokens), logger.Count("revoked_tokens", res.RevokedTokens))
		return nil
	}
	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
