package db

import "embed"

// MigrationFS embeds SQL migration files from internal/db/migrations.
// Used by the migrate runner (cmd/migrate, DB_MIGRATE_ON_START and integration tests).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
