package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var accountsSchema = map[Dialect][]string{
	DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS accounts (
			id            BIGSERIAL PRIMARY KEY,
			user_name     TEXT NOT NULL DEFAULT '',
			family_name   TEXT NOT NULL DEFAULT '',
			first_name    TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
			is_deleted    BOOLEAN NOT NULL DEFAULT FALSE,
			locked_flg    BOOLEAN NOT NULL DEFAULT FALSE,
			error_count   INTEGER NOT NULL DEFAULT 0 CHECK (error_count >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts (email)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,
	},
	DialectSQLite: {
		`CREATE TABLE IF NOT EXISTS accounts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			user_name     TEXT NOT NULL DEFAULT '',
			family_name   TEXT NOT NULL DEFAULT '',
			first_name    TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			is_admin      BOOLEAN NOT NULL DEFAULT 0,
			is_deleted    BOOLEAN NOT NULL DEFAULT 0,
			locked_flg    BOOLEAN NOT NULL DEFAULT 0,
			error_count   INTEGER NOT NULL DEFAULT 0 CHECK (error_count >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts (email)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,
	},
}

// Migrate creates the accounts and sessions tables and their indexes if they
// do not exist.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	stmts, ok := accountsSchema[dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", dialect)
	}
	return Tx(ctx, db, func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}
