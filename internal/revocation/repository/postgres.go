package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"room-booking/backend/internal/db"
	"room-booking/backend/internal/revocation/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a denylist repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB}
}

func (r *PostgresRepository) Insert(ctx context.Context, t *domain.RevokedToken) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, user_id, expires_at, revoked_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (jti) DO NOTHING`,
		t.JTI, t.UserID, t.ExpiresAt, t.RevokedAt)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, jti string) (*domain.RevokedToken, error) {
	var t domain.RevokedToken
	err := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT jti, user_id, expires_at, revoked_at FROM revoked_tokens WHERE jti = $1`, jti,
	).Scan(&t.JTI, &t.UserID, &t.ExpiresAt, &t.RevokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
