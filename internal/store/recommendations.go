package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/basalcoach/basalcoach/internal/suggest"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

// OfferRecommendation stores rec as the pending recommendation. Any
// previously pending recommendation is discarded.
func (db *DB) OfferRecommendation(rec suggest.Recommendation, reportID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM recommendations WHERE status = ?", string(suggest.StatusPending)); err != nil {
		return err
	}
	if err := putRecommendation(tx, rec, reportID); err != nil {
		return err
	}
	return tx.Commit()
}

// PendingRecommendation returns the pending recommendation, or nil if the
// slot is empty.
func (db *DB) PendingRecommendation() (*suggest.Recommendation, error) {
	row := db.conn.QueryRow(
		"SELECT body FROM recommendations WHERE status = ? ORDER BY generated_at DESC LIMIT 1",
		string(suggest.StatusPending),
	)
	return scanRecommendation(row)
}

// GetRecommendation returns a recommendation by ID, or nil if it does not
// exist.
func (db *DB) GetRecommendation(id string) (*suggest.Recommendation, error) {
	row := db.conn.QueryRow("SELECT body FROM recommendations WHERE id = ?", id)
	return scanRecommendation(row)
}

// CommitApplied records rec as applied and saves the resulting settings
// in one transaction.
func (db *DB) CommitApplied(rec suggest.Recommendation, settings therapy.Settings) error {
	if rec.Status != suggest.StatusApplied {
		return fmt.Errorf("recommendation %s has status %s, want %s", rec.ID, rec.Status, suggest.StatusApplied)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := putRecommendation(tx, rec, ""); err != nil {
		return err
	}
	if _, err := insertSettings(tx, settings, SourceApplied); err != nil {
		return err
	}
	return tx.Commit()
}

// CommitDismissed records rec as dismissed.
func (db *DB) CommitDismissed(rec suggest.Recommendation) error {
	if rec.Status != suggest.StatusDismissed {
		return fmt.Errorf("recommendation %s has status %s, want %s", rec.ID, rec.Status, suggest.StatusDismissed)
	}
	return putRecommendation(db.conn, rec, "")
}

// AppliedHistory returns up to limit applied recommendations, most
// recently applied first.
func (db *DB) AppliedHistory(limit int) ([]suggest.Recommendation, error) {
	rows, err := db.conn.Query(
		"SELECT body FROM recommendations WHERE status = ? ORDER BY resolved_at DESC LIMIT ?",
		string(suggest.StatusApplied), limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var recs []suggest.Recommendation
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var rec suggest.Recommendation
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("decoding recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// putRecommendation inserts or updates rec. An existing row keeps its
// report_id.
func putRecommendation(q execer, rec suggest.Recommendation, reportID string) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding recommendation: %w", err)
	}

	var resolved sql.NullString
	switch {
	case rec.AppliedAt != nil:
		resolved = sql.NullString{String: formatTime(*rec.AppliedAt), Valid: true}
	case rec.DismissedAt != nil:
		resolved = sql.NullString{String: formatTime(*rec.DismissedAt), Valid: true}
	}
	report := sql.NullString{String: reportID, Valid: reportID != ""}

	_, err = q.Exec(
		`INSERT INTO recommendations
		(id, report_id, rule, type, priority, status, generated_at, resolved_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			resolved_at = excluded.resolved_at,
			body = excluded.body`,
		rec.ID, report, rec.Rule, string(rec.Type), string(rec.Priority), string(rec.Status),
		formatTime(rec.GeneratedAt), resolved, string(body),
	)
	return err
}

func scanRecommendation(row *sql.Row) (*suggest.Recommendation, error) {
	var body string
	err := row.Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec suggest.Recommendation
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decoding recommendation: %w", err)
	}
	return &rec, nil
}
