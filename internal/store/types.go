// Package store provides SQLite persistence for therapy settings, imported
// CGM reports and recommendations.
package store

import (
	"errors"
	"time"

	"github.com/basalcoach/basalcoach/internal/therapy"
)

// ErrNoSettings is returned when no settings have been saved yet.
var ErrNoSettings = errors.New("no therapy settings saved")

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SettingsSnapshot is one saved version of the therapy settings. The newest
// snapshot is the current settings.
type SettingsSnapshot struct {
	ID       int64            `json:"id"`
	SavedAt  time.Time        `json:"saved_at"`
	Source   string           `json:"source"`
	Settings therapy.Settings `json:"settings"`
}

// Snapshot sources.
const (
	SourceDefault = "default"
	SourceImport  = "import"
	SourceManual  = "manual"
	SourceApplied = "applied"
)

// ReportInfo is the listing view of a stored CGM report.
type ReportInfo struct {
	ID             string    `json:"id"`
	UploadDate     time.Time `json:"upload_date"`
	ImportedAt     time.Time `json:"imported_at"`
	Days           int       `json:"days"`
	AverageGlucose float64   `json:"average_glucose"`
	InRange        float64   `json:"in_range"`
}

// InboxFile records a file the watcher has processed.
type InboxFile struct {
	Path       string    `json:"path"`
	ReportID   string    `json:"report_id,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
	Error      string    `json:"error,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}
