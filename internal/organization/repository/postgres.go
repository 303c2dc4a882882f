package repository

import (
	"context"
	"database/sql"
	"errors"

	"room-booking/backend/internal/db"
	"room-booking/backend/internal/organization/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB}
}

// GetByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	return scanOrg(db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, slug, name, is_active, created_at FROM organizations WHERE id = $1`, id))
}

// GetBySlug returns the organization with the given slug, or nil if not found.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	return scanOrg(db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, slug, name, is_active, created_at FROM organizations WHERE slug = $1`, slug))
}

// Create persists the organization. The organization must have ID set. An existing row with the
// same id or slug is left untouched.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Organization) error {
	if err := o.Validate(); err != nil {
		return err
	}
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO organizations (id, slug, name, is_active, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT DO NOTHING`,
		o.ID, o.Slug, o.Name, o.Active)
	return err
}

func scanOrg(row *sql.Row) (*domain.Organization, error) {
	var o domain.Organization
	if err := row.Scan(&o.ID, &o.Slug, &o.Name, &o.Active, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
