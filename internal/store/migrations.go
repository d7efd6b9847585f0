package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the history tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS executions (
		namespace    TEXT NOT NULL,
		name         TEXT NOT NULL,
		entrypoint   TEXT NOT NULL,
		label        TEXT NOT NULL DEFAULT '',
		phase        TEXT NOT NULL DEFAULT 'Pending',
		progress     TEXT NOT NULL DEFAULT '',
		completed    INTEGER NOT NULL DEFAULT 0,
		successful   INTEGER NOT NULL DEFAULT 0,
		submitted_at TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		completed_at TEXT,
		message      TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (namespace, name)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_executions_phase ON executions(phase)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_submitted_at ON executions(submitted_at)`,
}

// migrate executes the schema DDL. Every statement is idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
