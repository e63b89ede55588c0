package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/basalcoach/basalcoach/internal/therapy"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// SaveSettings stores a new settings snapshot and returns its ID. The
// settings are validated first.
func (db *DB) SaveSettings(s therapy.Settings, source string) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	return insertSettings(db.conn, s, source)
}

func insertSettings(q execer, s therapy.Settings, source string) (int64, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return 0, fmt.Errorf("encoding settings: %w", err)
	}
	result, err := q.Exec(
		"INSERT INTO settings_snapshots (saved_at, source, settings) VALUES (?, ?, ?)",
		formatTime(time.Now()), source, string(body),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// LatestSettings returns the most recent settings snapshot, or nil if none
// exist.
func (db *DB) LatestSettings() (*SettingsSnapshot, error) {
	row := db.conn.QueryRow(
		"SELECT id, saved_at, source, settings FROM settings_snapshots ORDER BY id DESC LIMIT 1",
	)
	return scanSettings(row)
}

// CurrentSettings returns the settings of the latest snapshot, or
// ErrNoSettings.
func (db *DB) CurrentSettings() (therapy.Settings, error) {
	snap, err := db.LatestSettings()
	if err != nil {
		return therapy.Settings{}, err
	}
	if snap == nil {
		return therapy.Settings{}, ErrNoSettings
	}
	return snap.Settings, nil
}

// SettingsHistory returns up to limit snapshots, newest first.
func (db *DB) SettingsHistory(limit int) ([]SettingsSnapshot, error) {
	rows, err := db.conn.Query(
		"SELECT id, saved_at, source, settings FROM settings_snapshots ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SettingsSnapshot
	for rows.Next() {
		snap, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSettings(row scanner) (*SettingsSnapshot, error) {
	var snap SettingsSnapshot
	var savedAt, body string
	err := row.Scan(&snap.ID, &savedAt, &snap.Source, &body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.SavedAt = parseTime(savedAt)
	if err := json.Unmarshal([]byte(body), &snap.Settings); err != nil {
		return nil, fmt.Errorf("decoding settings snapshot %d: %w", snap.ID, err)
	}
	return &snap, nil
}
