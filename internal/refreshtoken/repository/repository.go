package repository

import (
	"context"
	"errors"
	"time"

	"room-booking/backend/internal/refreshtoken/domain"
)

// ErrConflict reports a transient store conflict (serialization failure, deadlock, lock timeout or a
// duplicate hash). The operation may be retried with fresh input.
var ErrConflict = errors.New("refresh token store conflict")

// Repository defines persistence for refresh tokens. Every lookup is by token hash.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	// Rotate atomically consumes the live token with presentedHash and inserts next for the same owner.
	// A revoked or expired match revokes every live token of the owner in the same transaction.
	Rotate(ctx context.Context, presentedHash string, next domain.RefreshToken, now time.Time) (domain.Rotation, error)
	// OwnerOf returns the owning user of the row with hash, and false when none exists.
	OwnerOf(ctx context.Context, hash string) (int64, bool, error)
	RevokeAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error)
	RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error)
	// PurgeExpired deletes rows expired at now or revoked at or before now-grace.
	PurgeExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}
