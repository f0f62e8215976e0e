// Package migrations creates the tables the service needs if they are missing.
// There is no versioning: every statement is idempotent and the whole set is
// applied in one transaction at startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/R3E-Network/calcstore/internal/apperrors"
	"github.com/R3E-Network/calcstore/internal/platform/database"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id SERIAL PRIMARY KEY,
		name VARCHAR NOT NULL,
		price INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_items_id ON items (id)`,
	`CREATE INDEX IF NOT EXISTS ix_items_name ON items (name)`,
	`CREATE TABLE IF NOT EXISTS operations (
		id SERIAL PRIMARY KEY,
		a INTEGER NOT NULL,
		b INTEGER NOT NULL,
		result INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_operations_id ON operations (id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		price INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_items_id ON items (id)`,
	`CREATE INDEX IF NOT EXISTS ix_items_name ON items (name)`,
	`CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		a INTEGER NOT NULL,
		b INTEGER NOT NULL,
		result INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_operations_id ON operations (id)`,
}

// Statements returns the schema statements for dialect.
func Statements(dialect database.Dialect) ([]string, error) {
	switch dialect {
	case database.Postgres:
		return postgresSchema, nil
	case database.SQLite:
		return sqliteSchema, nil
	default:
		return nil, apperrors.E(apperrors.KindConfiguration, fmt.Sprintf("no schema for dialect %q", dialect))
	}
}

// Apply ensures every table and index exists.
func Apply(ctx context.Context, db *sql.DB, dialect database.Dialect) error {
	stmts, err := Statements(dialect)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, "begin schema transaction", err)
	}
	defer tx.Rollback()

	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return apperrors.Wrap(apperrors.KindPersistence, fmt.Sprintf("schema statement %d", i+1), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, "commit schema", err)
	}
	return nil
}
