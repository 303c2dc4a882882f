package repository

import (
	"context"
	"database/sql"
	"errors"

	"room-booking/backend/internal/db"
	"room-booking/backend/internal/user/domain"
)

const userColumns = `id, username, email, password_hash, role, is_platform_admin, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByUsernameOrEmail returns the user whose username equals identifier or whose email
// equals it ignoring case, or nil if none. Username wins when both could match.
func (r *PostgresRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*domain.User, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username = $1 OR lower(email) = lower($1)
		 ORDER BY (username = $1) DESC
		 LIMIT 1`, identifier)
	return scanUser(row)
}

// Create inserts the user and sets u.ID and u.CreatedAt from the database.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	return db.Conn(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, is_platform_admin, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING id, created_at`,
		u.Username, u.Email, u.PasswordHash, string(u.Role), u.IsPlatformAdmin,
	).Scan(&u.ID, &u.CreatedAt)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.IsPlatformAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.LegacyRole(role)
	return &u, nil
}
