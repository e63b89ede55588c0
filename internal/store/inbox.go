package store

import (
	"database/sql"
	"time"
)

// MarkInboxFile records that the watcher processed path. A non-empty errMsg
// records a failed import; the file is not retried either way.
func (db *DB) MarkInboxFile(path, reportID, errMsg string) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO inbox_files (path, report_id, imported_at, error)
		 VALUES (?, ?, ?, ?)`,
		path,
		sql.NullString{String: reportID, Valid: reportID != ""},
		formatTime(time.Now()),
		sql.NullString{String: errMsg, Valid: errMsg != ""},
	)
	return err
}

// InboxFileSeen reports whether path has been processed.
func (db *DB) InboxFileSeen(path string) (bool, error) {
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM inbox_files WHERE path = ?", path).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// InboxFiles returns processed files, most recent first.
func (db *DB) InboxFiles(limit int) ([]InboxFile, error) {
	rows, err := db.conn.Query(
		"SELECT path, report_id, imported_at, error FROM inbox_files ORDER BY imported_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []InboxFile
	for rows.Next() {
		var f InboxFile
		var reportID, errMsg sql.NullString
		var at string
		if err := rows.Scan(&f.Path, &reportID, &at, &errMsg); err != nil {
			return nil, err
		}
		f.ReportID = reportID.String
		f.Error = errMsg.String
		f.ImportedAt = parseTime(at)
		files = append(files, f)
	}
	return files, rows.Err()
}
