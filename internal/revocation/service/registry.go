// Package service implements the revocation registry: the denylist of access token ids
// consulted on every authorized request.
package service

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"room-booking/backend/internal/revocation/domain"
	"room-booking/backend/internal/revocation/repository"
)

// ErrInvalidEntry is returned by Revoke for an empty jti or a zero expiry.
var ErrInvalidEntry = errors.New("revocation: jti and expiry are required")

// Registry answers IsRevoked from the store. Positive answers are cached until the token's own expiry;
// negative answers are never cached so a revocation is visible as soon as it commits.
type Registry struct {
	repo  repository.Repository
	cache *gocache.Cache
	now   func() time.Time
}

// NewRegistry returns a Registry over repo.
func NewRegistry(repo repository.Repository) *Registry {
	return &Registry{
		repo:  repo,
		cache: gocache.New(gocache.NoExpiration, 5*time.Minute),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Revoke denylists jti until expiresAt. Idempotent. The cache is not touched: the insert may be part of
// a transaction that later rolls back.
func (r *Registry) Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	if jti == "" || expiresAt.IsZero() {
		return ErrInvalidEntry
	}
	return r.repo.Insert(ctx, &domain.RevokedToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: r.now(),
	})
}

// IsRevoked reports whether jti is denylisted as of the most recent commit.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	if _, ok := r.cache.Get(jti); ok {
		return true, nil
	}
	t, err := r.repo.Get(ctx, jti)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}
	if ttl := t.ExpiresAt.Sub(r.now()); ttl > 0 {
		r.cache.Set(jti, struct{}{}, ttl)
	}
	return true, nil
}

// PurgeExpired deletes entries whose token has expired.
func (r *Registry) PurgeExpired(ctx context.Context) (int64, error) {
	return r.repo.PurgeExpired(ctx, r.now())
}
