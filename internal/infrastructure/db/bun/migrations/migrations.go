// Package migrations registers the schema migrations applied by bun/migrate.
package migrations

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the ordered set registered by the files in this package.
var Migrations = migrate.NewMigrations()

// IsSQLite reports whether db speaks the SQLite dialect.
func IsSQLite(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.SQLite
}
