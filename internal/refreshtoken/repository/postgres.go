package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"room-booking/backend/internal/db"
	"room-booking/backend/internal/refreshtoken/domain"
)

// SQLSTATE codes treated as ErrConflict.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateUniqueViolation      = "23505"
)

const tokenColumns = `id, user_id, token_hash, created_at, expires_at, revoked_at`

type PostgresRepository struct {
	db *sql.DB
	tx *db.Transactor
}

// NewPostgresRepository returns a refresh token repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: sqlDB, tx: db.NewTransactor(sqlDB)}
}

// Create inserts t and sets t.ID.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	err := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, created_at, expires_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		t.UserID, t.TokenHash, t.CreatedAt, t.ExpiresAt,
	).Scan(&t.ID)
	return classify(err)
}

// Rotate runs in one read-committed transaction. The row is read once without a lock and then again
// with FOR UPDATE; a row that was live on the first read but revoked on the second lost a race against
// a concurrent rotation.
func (r *PostgresRepository) Rotate(ctx context.Context, presentedHash string, next domain.RefreshToken, now time.Time) (domain.Rotation, error) {
	var out domain.Rotation
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		c := db.Conn(ctx, r.db)

		first, err := scanToken(c.QueryRowContext(ctx,
			`SELECT `+tokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, presentedHash))
		if err != nil {
			return err
		}
		if first == nil {
			out = domain.Rotation{Outcome: domain.OutcomeNotFound}
			return nil
		}

		cur, err := scanToken(c.QueryRowContext(ctx,
			`SELECT `+tokenColumns+` FROM refresh_tokens WHERE id = $1 FOR UPDATE`, first.ID))
		if err != nil {
			return err
		}
		if cur == nil {
			// purged between the two reads
			out = domain.Rotation{Outcome: domain.OutcomeNotFound}
			return nil
		}
		out.UserID = cur.UserID

		switch {
		case cur.IsLive(now):
			res, err := c.ExecContext(ctx,
				`UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, cur.ID, now)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil || n != 1 {
				return ErrConflict
			}
			next.UserID = cur.UserID
			if err := c.QueryRowContext(ctx,
				`INSERT INTO refresh_tokens (user_id, token_hash, created_at, expires_at)
				 VALUES ($1, $2, $3, $4) RETURNING id`,
				next.UserID, next.TokenHash, next.CreatedAt, next.ExpiresAt,
			).Scan(&next.ID); err != nil {
				return err
			}
			out.Outcome = domain.OutcomeRotated
			out.Next = &next
		case first.IsLive(now):
			out.Outcome = domain.OutcomeReuseDetected
			out.LostRace = true
		default:
			n, err := revokeAll(ctx, c, cur.UserID, now)
			if err != nil {
				return err
			}
			out.Outcome = domain.OutcomeReuseDetected
			out.FamilyRevoked = n
		}
		return nil
	})
	if err != nil {
		return domain.Rotation{}, classify(err)
	}
	return out, nil
}

// OwnerOf returns the user owning the row with hash.
func (r *PostgresRepository) OwnerOf(ctx context.Context, hash string) (int64, bool, error) {
	var userID int64
	err := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens WHERE token_hash = $1`, hash).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return userID, true, nil
}

// RevokeAllForUser sets revoked_at on every unrevoked row of the user and returns how many changed.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	n, err := revokeAll(ctx, db.Conn(ctx, r.db), userID, now)
	return n, classify(err)
}

// RevokeByHash revokes the row with hash if it is not revoked yet.
func (r *PostgresRepository) RevokeByHash(ctx context.Context, hash string, now time.Time) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL`, hash, now)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// PurgeExpired deletes rows that can no longer authenticate anything.
func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM refresh_tokens
		 WHERE expires_at <= $1 OR (revoked_at IS NOT NULL AND revoked_at <= $2)`,
		now, now.Add(-grace))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func revokeAll(ctx context.Context, c db.DBTX, userID int64, now time.Time) (int64, error) {
	res, err := c.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`, userID, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanToken(row *sql.Row) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	var revokedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &revokedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	return &t, nil
}

// classify maps transient Postgres failures to ErrConflict and leaves everything else as is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable, sqlStateUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Code)
		}
	}
	return err
}
