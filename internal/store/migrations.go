package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

// SchemaVersion returns the version recorded in schema_version.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	if err := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// migrateV1 creates all initial tables and indexes.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS settings_snapshots (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			saved_at  TEXT NOT NULL,
			source    TEXT NOT NULL,
			settings  TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS reports (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			id              TEXT NOT NULL UNIQUE,
			upload_date     TEXT NOT NULL,
			imported_at     TEXT NOT NULL,
			days            INTEGER NOT NULL,
			average_glucose REAL NOT NULL,
			in_range        REAL NOT NULL,
			summary         TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS recommendations (
			id             TEXT PRIMARY KEY,
			report_id      TEXT,
			rule           TEXT NOT NULL,
			type           TEXT NOT NULL,
			priority       TEXT NOT NULL,
			status         TEXT NOT NULL,
			generated_at   TEXT NOT NULL,
			resolved_at    TEXT,
			body           TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS inbox_files (
			path        TEXT PRIMARY KEY,
			report_id   TEXT,
			imported_at TEXT NOT NULL,
			error       TEXT
		)`,

		// Indexes.
		`CREATE INDEX IF NOT EXISTS idx_recommendations_status ON recommendations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_resolved ON recommendations(resolved_at)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}
