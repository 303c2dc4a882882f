// Package service implements the refresh token store: issue, single-use rotation with reuse
// detection, and per-user revocation.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"room-booking/backend/internal/observability/logger"
	"room-booking/backend/internal/refreshtoken/domain"
	"room-booking/backend/internal/refreshtoken/repository"
	"room-booking/backend/internal/security"
)

// Secret is a plaintext refresh secret as handed to the client. It is never retrievable again.
type Secret struct {
	Plaintext string
	ExpiresAt time.Time
}

// RotateResult is the outcome of Rotate. UserID is set for Rotated and, when the owner is known,
// ReuseDetected. Secret is set only for Rotated.
type RotateResult struct {
	Outcome domain.Outcome
	UserID  int64
	Secret  Secret
}

// Store owns the lifecycle of refresh tokens.
type Store struct {
	repo       repository.Repository
	ttl        time.Duration
	maxRetries int
	now        func() time.Time
	newSecret  func() (string, error)
}

// NewStore returns a Store issuing secrets valid for ttl. maxRetries bounds retries of a rotation
// that hit a store conflict; values below 1 mean 1.
func NewStore(repo repository.Repository, ttl time.Duration, maxRetries int) *Store {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Store{
		repo:       repo,
		ttl:        ttl,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
		newSecret:  security.NewRefreshSecret,
	}
}

// Issue creates a refresh token for userID and returns its plaintext once.
func (s *Store) Issue(ctx context.Context, userID int64) (Secret, error) {
	if userID <= 0 {
		return Secret{}, fmt.Errorf("refresh: invalid user id %d", userID)
	}
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		plain, err := s.newSecret()
		if err != nil {
			return Secret{}, err
		}
		now := s.now()
		t := &domain.RefreshToken{
			UserID:    userID,
			TokenHash: security.HashRefreshToken(plain),
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}
		err = s.repo.Create(ctx, t)
		if err == nil {
			return Secret{Plaintext: plain, ExpiresAt: t.ExpiresAt}, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return Secret{}, err
		}
		lastErr = err
	}
	return Secret{}, lastErr
}

// Rotate consumes presented and, if it was live, returns a successor for the same user.
// A revoked or expired secret is reuse: every live token of its owner is revoked before Rotate returns.
// Conflicts are retried; when retries run out the result is ReuseDetected and the owner's tokens are revoked.
func (s *Store) Rotate(ctx context.Context, presented string) (RotateResult, error) {
	if presented == "" || len(presented) > security.MaxRefreshSecretLen {
		return RotateResult{Outcome: domain.OutcomeNotFound}, nil
	}
	hash := security.HashRefreshToken(presented)
	log := logger.From(ctx).With(logger.Component("refresh_store"))

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return RotateResult{}, err
		}
		plain, err := s.newSecret()
		if err != nil {
			return RotateResult{}, err
		}
		now := s.now()
		rot, err := s.repo.Rotate(ctx, hash, domain.RefreshToken{
			TokenHash: security.HashRefreshToken(plain),
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}, now)
		if errors.Is(err, repository.ErrConflict) {
			log.Debug("rotate conflict, retrying", zap.Int("attempt", attempt+1), logger.Err(err))
			continue
		}
		if err != nil {
			return RotateResult{}, err
		}

		res := RotateResult{Outcome: rot.Outcome, UserID: rot.UserID}
		switch rot.Outcome {
		case domain.OutcomeRotated:
			res.Secret = Secret{Plaintext: plain, ExpiresAt: rot.Next.ExpiresAt}
		case domain.OutcomeReuseDetected:
			if rot.LostRace {
				log.Info("refresh token lost concurrent rotation", logger.UserID(rot.UserID))
			} else {
				log.Warn("refresh token reuse detected, family revoked",
					logger.UserID(rot.UserID), logger.Count("revoked", rot.FamilyRevoked))
			}
		}
		return res, nil
	}

	return s.failClosed(ctx, hash)
}

// failClosed treats an exhausted rotation as reuse.
func (s *Store) failClosed(ctx context.Context, hash string) (RotateResult, error) {
	log := logger.From(ctx).With(logger.Component("refresh_store"))
	userID, ok, err := s.repo.OwnerOf(ctx, hash)
	if err != nil {
		return RotateResult{}, err
	}
	if !ok {
		return RotateResult{Outcome: domain.OutcomeNotFound}, nil
	}
	n, err := s.repo.RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return RotateResult{}, err
	}
	log.Warn("refresh rotation retries exhausted, family revoked",
		logger.UserID(userID), logger.Count("revoked", n))
	return RotateResult{Outcome: domain.OutcomeReuseDetected, UserID: userID}, nil
}

// RevokeAllForUser revokes every live refresh token of userID. Idempotent.
func (s *Store) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	return s.repo.RevokeAllForUser(ctx, userID, s.now())
}

// Revoke revokes the single token whose secret is presented. Unknown secrets are ignored.
func (s *Store) Revoke(ctx context.Context, presented string) error {
	if presented == "" || len(presented) > security.MaxRefreshSecretLen {
		return nil
	}
	_, err := s.repo.RevokeByHash(ctx, security.HashRefreshToken(presented), s.now())
	return err
}

// PurgeExpired deletes rows that are expired, or revoked longer ago than grace.
func (s *Store) PurgeExpired(ctx context.Context, grace time.Duration) (int64, error) {
	return s.repo.PurgeExpired(ctx, s.now(), grace)
}
