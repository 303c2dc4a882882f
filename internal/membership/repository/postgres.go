package repository

import (
	"context"
	"database/sql"
	"errors"

	"room-booking/backend/internal/db"
	"room-booking/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB}
}

// GetByOrgAndUser returns the membership for the given org and user, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByOrgAndUser(ctx context.Context, orgID string, userID int64) (*domain.Membership, error) {
	var m domain.Membership
	var role, status string
	err := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT organization_id, user_id, role, status, joined_at
		 FROM organization_memberships WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID,
	).Scan(&m.OrganizationID, &m.UserID, &role, &status, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	m.Status = domain.Status(status)
	return &m, nil
}

// IsActiveMember returns the role and true when an Active membership exists; "", false when none does.
func (r *PostgresRepository) IsActiveMember(ctx context.Context, orgID string, userID int64) (domain.Role, bool, error) {
	m, err := r.GetByOrgAndUser(ctx, orgID, userID)
	if err != nil || m == nil {
		return "", false, err
	}
	return m.Role, m.IsActive(), nil
}

// Upsert creates the membership or replaces role and status of the existing one.
func (r *PostgresRepository) Upsert(ctx context.Context, m *domain.Membership) error {
	if !m.Role.Valid() {
		return errors.New("unknown membership role")
	}
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO organization_memberships (organization_id, user_id, role, status, joined_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (organization_id, user_id) DO UPDATE SET role = EXCLUDED.role, status = EXCLUDED.status`,
		m.OrganizationID, m.UserID, string(m.Role), string(m.Status))
	return err
}
