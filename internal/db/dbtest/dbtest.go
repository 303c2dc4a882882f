// Package dbtest opens a migrated Postgres database for repository integration tests.
// Tests are skipped unless TEST_DATABASE_URL is set.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"room-booking/backend/internal/db"
	"room-booking/backend/internal/db/migrate"
)

const envDSN = "TEST_DATABASE_URL"

var migrateOnce sync.Once
var migrateErr error

// Open returns a pool connected to TEST_DATABASE_URL with migrations applied and all tables emptied.
// The pool is closed when the test ends. Tests using Open must not run in parallel with each other.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv(envDSN)
	if dsn == "" {
		t.Skip(envDSN + " not set; skipping Postgres integration test")
	}
	migrateOnce.Do(func() { migrateErr = migrate.Up(dsn) })
	if migrateErr != nil {
		t.Fatalf("migrate: %v", migrateErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sqlDB, err := db.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if _, err := sqlDB.ExecContext(ctx,
		`TRUNCATE revoked_tokens, refresh_tokens, organization_memberships, users, organizations RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return sqlDB
}

// InsertUser inserts a minimal user row and returns its id.
func InsertUser(t *testing.T, sqlDB *sql.DB, username string, platformAdmin bool) int64 {
	t.Helper()
	var id int64
	err := sqlDB.QueryRow(
		`INSERT INTO users (username, email, password_hash, role, is_platform_admin)
		 VALUES ($1, $1 || '@example.com', 'x', 'user', $2) RETURNING id`,
		username, platformAdmin,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}
