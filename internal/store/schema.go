package store

import (
	"database/sql"
	"fmt"
)

// migration is one structural upgrade step. Steps run exactly once: the
// database's PRAGMA user_version records the last applied version, and
// applyMigrations skips every step at or below it.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS stacks (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	doc  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stacks_name ON stacks(name);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS decks (
	id       TEXT PRIMARY KEY,
	stack_id TEXT NOT NULL DEFAULT '',
	title    TEXT NOT NULL DEFAULT '',
	doc      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decks_stack_id ON decks(stack_id);
CREATE INDEX IF NOT EXISTS idx_decks_title ON decks(title);
`,
	},
}

// applyMigrations brings the schema up to the latest version. Each pending
// step runs in its own transaction together with the version bump, so a
// failed step leaves user_version pointing at the last completed one.
func applyMigrations(conn *sql.DB) error {
	var current int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("store: read user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("store: begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("store: apply migration %d: %w", m.version, err)
		}
		// PRAGMA does not support placeholders.
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, m.version)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("store: bump user_version to %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %d: %w", m.version, err)
		}
		current = m.version
	}
	return nil
}
