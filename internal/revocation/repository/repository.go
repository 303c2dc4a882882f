package repository

import (
	"context"
	"time"

	"room-booking/backend/internal/revocation/domain"
)

// Repository defines persistence for the access token denylist.
type Repository interface {
	// Insert adds t. Inserting a jti that is already present is a no-op.
	Insert(ctx context.Context, t *domain.RevokedToken) error
	// Get returns the entry for jti, or nil if none.
	Get(ctx context.Context, jti string) (*domain.RevokedToken, error)
	// PurgeExpired deletes entries whose expiry is at or before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
