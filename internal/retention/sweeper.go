// Package retention deletes refresh tokens and denylist entries that can no longer affect a decision.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"room-booking/backend/internal/observability/logger"
	"room-booking/backend/internal/telemetry"
)

// MinInterval is the shortest sweep period Run accepts.
const MinInterval = 5 * time.Minute

// RefreshPurger deletes expired refresh tokens and revoked ones older than grace.
type RefreshPurger interface {
	PurgeExpired(ctx context.Context, grace time.Duration) (int64, error)
}

// RevokedPurger deletes denylist entries whose access token has expired.
type RevokedPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Result counts the rows removed by one sweep.
type Result struct {
	RefreshTokens int64
	RevokedTokens int64
}

// Sweeper periodically purges the refresh token and revocation tables.
type Sweeper struct {
	refresh  RefreshPurger
	revoked  RevokedPurger
	interval time.Duration
	grace    time.Duration
	metrics  *telemetry.Metrics
	log      *zap.Logger
}

// NewSweeper returns a Sweeper. interval is raised to MinInterval when lower; a negative grace is treated as zero.
// metrics may be nil.
func NewSweeper(refresh RefreshPurger, revoked RevokedPurger, interval, grace time.Duration, metrics *telemetry.Metrics) *Sweeper {
	if interval < MinInterval {
		interval = MinInterval
	}
	if grace < 0 {
		grace = 0
	}
	return &Sweeper{
		refresh:  refresh,
		revoked:  revoked,
		interval: interval,
		grace:    grace,
		metrics:  metrics,
		log:      logger.Named("retention"),
	}
}

// Interval returns the effective sweep period.
func (s *Sweeper) Interval() time.Duration { return s.interval }

// Sweep runs one purge of both tables. The denylist is purged even when the refresh purge fails;
// the returned error joins both failures.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var res Result
	var errs []error

	n, err := s.refresh.PurgeExpired(ctx, s.grace)
	if err != nil {
		errs = append(errs, fmt.Errorf("refresh tokens: %w", err))
	} else {
		res.RefreshTokens = n
		s.metrics.Swept(ctx, "refresh_tokens", n)
	}
	n, err = s.revoked.PurgeExpired(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("revoked tokens: %w", err))
	} else {
		res.RevokedTokens = n
		s.metrics.Swept(ctx, "revoked_tokens", n)
	}
	return res, errors.Join(errs...)
}

// Run sweeps once immediately and then every interval until ctx is done. A failing or panicking tick is
// logged and does not stop the loop. Run returns ctx.Err().
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("sweeper started", zap.Duration("interval", s.interval), zap.Duration("grace", s.grace))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sweep panicked", zap.Any("panic", r))
		}
	}()
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	res, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("sweep failed", logger.Err(err),
			logger.Count("refresh_tokens", res.RefreshTokens), logger.Count("revoked_tokens", res.RevokedTokens))
		return
	}
	s.log.Info("sweep done",
		logger.Count("refresh_tokens", res.RefreshTokens),
		logger.Count("revoked_tokens", res.RevokedTokens),
		zap.Duration("took", time.Since(start)))
}
