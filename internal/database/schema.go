package database

import "database/sql"

// Schema version for migrations
const currentSchemaVersion = 2

var migrations = []migration{
	{
		version: 1,
		up: []string{
			`CREATE TABLE runs (
				id TEXT PRIMARY KEY,
				mode TEXT NOT NULL,
				started_at DATETIME NOT NULL,
				completed_at DATETIME,
				status TEXT NOT NULL DEFAULT 'running',
				users INTEGER NOT NULL DEFAULT 0,
				series INTEGER NOT NULL DEFAULT 0,
				lookups_failed INTEGER NOT NULL DEFAULT 0,
				skipped TEXT,
				error_message TEXT
			)`,
			`CREATE INDEX idx_runs_started ON runs(started_at)`,
			`CREATE INDEX idx_runs_mode ON runs(mode, status)`,

			`CREATE TABLE results (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT NOT NULL REFERENCES runs(id),
				created_at DATETIME NOT NULL,
				payload TEXT NOT NULL
			)`,

			`CREATE TABLE schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`INSERT INTO schema_version (version) VALUES (1)`,
		},
	},
	{
		version: 2,
		up: []string{
			`ALTER TABLE runs ADD COLUMN duration_ms INTEGER NOT NULL DEFAULT 0`,
			`CREATE INDEX idx_results_run ON results(run_id)`,
			`INSERT INTO schema_version (version) VALUES (2)`,
		},
	},
}

type migration struct {
	version int
	up      []string
}

// applyMigrations applies any pending schema migrations
func applyMigrations(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		// schema_version doesn't exist yet - this is a fresh database
		currentVersion = 0
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}

		for _, stmt := range m.up {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return err
			}
		}

		// each migration inserts its own schema_version row
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}
