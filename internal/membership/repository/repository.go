package repository

import (
	"context"

	"room-booking/backend/internal/membership/domain"
)

// Repository defines persistence for memberships.
type Repository interface {
	GetByOrgAndUser(ctx context.Context, orgID string, userID int64) (*domain.Membership, error)
	// IsActiveMember returns the member's role and whether the membership is Active.
	IsActiveMember(ctx context.Context, orgID string, userID int64) (domain.Role, bool, error)
	Upsert(ctx context.Context, m *domain.Membership) error
}
