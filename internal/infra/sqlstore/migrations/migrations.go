package migrations

import (
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds the schema shared by the Postgres and SQLite deployments.
var Migrations = migrate.NewMigrations()

// portable rewrites Postgres-only column types for other dialects.
func portable(db *bun.DB, query string) string {
	if db.Dialect().Name() == dialect.PG {
		return query
	}
	return strings.ReplaceAll(query, "JSONB", "TEXT")
}
