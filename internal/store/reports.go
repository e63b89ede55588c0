package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/basalcoach/basalcoach/internal/cgm"
)

// SaveReport stores a CGM summary, replacing any report with the same ID,
// and prunes all but the newest keep reports. A keep of zero or less
// disables pruning.
func (db *DB) SaveReport(s *cgm.Summary, keep int) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// REPLACE deletes and reinserts, so a re-import becomes the newest row.
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO reports
		(id, upload_date, imported_at, days, average_glucose, in_range, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, formatTime(s.UploadDate), formatTime(time.Now()), s.ReportPeriod.Days,
		s.Statistics.AverageGlucose, s.TimeInRange.InRange, string(body),
	); err != nil {
		return err
	}

	if keep > 0 {
		if _, err := tx.Exec(
			"DELETE FROM reports WHERE seq NOT IN (SELECT seq FROM reports ORDER BY seq DESC LIMIT ?)",
			keep,
		); err != nil {
			return fmt.Errorf("pruning reports: %w", err)
		}
	}

	return tx.Commit()
}

// LatestReport returns the most recently imported summary, or nil if none
// exist.
func (db *DB) LatestReport() (*cgm.Summary, error) {
	row := db.conn.QueryRow("SELECT summary FROM reports ORDER BY seq DESC LIMIT 1")
	return scanReport(row)
}

// GetReport returns a summary by ID, or nil if it does not exist.
func (db *DB) GetReport(id string) (*cgm.Summary, error) {
	row := db.conn.QueryRow("SELECT summary FROM reports WHERE id = ?", id)
	return scanReport(row)
}

// ListReports returns up to limit reports, newest first.
func (db *DB) ListReports(limit int) ([]ReportInfo, error) {
	rows, err := db.conn.Query(
		`SELECT id, upload_date, imported_at, days, average_glucose, in_range
		 FROM reports ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reports []ReportInfo
	for rows.Next() {
		var r ReportInfo
		var uploaded, imported string
		if err := rows.Scan(&r.ID, &uploaded, &imported, &r.Days, &r.AverageGlucose, &r.InRange); err != nil {
			return nil, err
		}
		r.UploadDate = parseTime(uploaded)
		r.ImportedAt = parseTime(imported)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// CountReports returns the number of stored reports.
func (db *DB) CountReports() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM reports").Scan(&n)
	return n, err
}

func scanReport(row *sql.Row) (*cgm.Summary, error) {
	var body string
	err := row.Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s cgm.Summary
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &s, nil
}
