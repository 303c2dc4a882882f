package repository

import (
	"context"

	"room-booking/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByUsernameOrEmail matches username exactly or email case-insensitively.
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}
