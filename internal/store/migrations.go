package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration.
type Migration struct {
	Version     int
	Description string
	Up          string
}

// migrations contains all database migrations in order.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Learned words per language",
		Up: `
CREATE TABLE IF NOT EXISTS words (
    language    TEXT NOT NULL,
    word        TEXT NOT NULL,
    frequency   INTEGER NOT NULL DEFAULT 1,
    updated_ns  INTEGER NOT NULL,
    PRIMARY KEY (language, word)
);

CREATE INDEX IF NOT EXISTS idx_words_frequency ON words(language, frequency DESC);
`,
	},
	{
		Version:     2,
		Description: "Word pairs for next-word prediction",
		Up: `
CREATE TABLE IF NOT EXISTS bigrams (
    language    TEXT NOT NULL,
    previous    TEXT NOT NULL,
    word        TEXT NOT NULL,
    frequency   INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (language, previous, word)
);

CREATE INDEX IF NOT EXISTS idx_bigrams_previous ON bigrams(language, previous, frequency DESC);
`,
	},
}

// MigrateDB applies every pending migration, each in its own transaction.
func MigrateDB(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  INTEGER NOT NULL,
			description TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			m.Version, time.Now().UnixNano(), m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration version.
func SchemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("get current version: %w", err)
	}
	return v, nil
}

// LatestVersion is the version MigrateDB brings a database to.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}
