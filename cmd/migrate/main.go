// migrate applies or rolls back the embedded schema (users, organizations, memberships,
// refresh_tokens, revoked_tokens). Run with go run ./cmd/migrate [-direction down].
package main

import (
	"errors"
	"flag"

	"go.uber.org/zap"

	"room-booking/backend/internal/config"
	"room-booking/backend/internal/db/migrate"
	"room-booking/backend/internal/observability/logger"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("config", logger.Err(err))
	}
	logger.Init(logger.Config{Env: cfg.Env, Level: cfg.LogLevel, ServiceName: "room-booking-migrate"})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("migrate").With(zap.String("direction", *direction))

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if *direction != "up" && *direction != "down" {
		log.Fatal("direction must be up or down")
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("migrate failed", logger.Err(err))
	}
	log.Info("migrations applied")
}
