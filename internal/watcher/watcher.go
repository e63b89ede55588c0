// Package watcher polls an inbox directory for CGM summaries exported by the
// report parser, imports each new file once, and emits alerts for notable
// changes and new recommendations.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/coach"
	"github.com/basalcoach/basalcoach/internal/suggest"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

// Alert represents a notable event detected by the watcher.
type Alert struct {
	Level   string // "info", "warning", "critical"
	Title   string
	Message string
	Time    time.Time
}

// Importer stores summaries. *coach.Service implements it.
type Importer interface {
	Import(summary *cgm.Summary) (coach.ImportResult, error)
	LatestReport() (*cgm.Summary, error)
}

// Ledger remembers which inbox files have been handled. *store.DB
// implements it.
type Ledger interface {
	InboxFileSeen(path string) (bool, error)
	MarkInboxFile(path, reportID, errMsg string) error
}

// decodeWorkers bounds concurrent file decoding.
const decodeWorkers = 4

// Watcher polls a directory at a regular interval.
type Watcher struct {
	dir      string
	interval time.Duration
	importer Importer
	ledger   Ledger
	goals    therapy.Goals
	alertFn  func(Alert)
	log      *logrus.Logger
}

// New creates a Watcher for dir. alertFn may be nil.
func New(dir string, interval time.Duration, importer Importer, ledger Ledger, goals therapy.Goals, alertFn func(Alert)) *Watcher {
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	return &Watcher{
		dir:      dir,
		interval: interval,
		importer: importer,
		ledger:   ledger,
		goals:    goals,
		alertFn:  alertFn,
		log:      silent,
	}
}

// SetLogger replaces the default discarding logger.
func (w *Watcher) SetLogger(log *logrus.Logger) {
	w.log = log
}

// Run checks the inbox immediately and then at every interval. Blocks until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating inbox: %w", err)
	}
	w.log.WithFields(logrus.Fields{"dir": w.dir, "interval": w.interval}).Info("watching inbox")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		alerts, err := w.Check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.WithError(err).Warn("inbox check failed")
		}
		for _, a := range alerts {
			if w.alertFn != nil {
				w.alertFn(a)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type inboxFile struct {
	path    string
	modTime time.Time
	summary *cgm.Summary
	err     error
}

// Check performs a single pass: new files are decoded concurrently, then
// imported one at a time, oldest first, so the newest file ends up as the
// latest report. A file that fails to decode is recorded and not retried.
func (w *Watcher) Check(ctx context.Context) ([]Alert, error) {
	files, err := w.pending()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decodeWorkers)
	for i := range files {
		f := &files[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f.summary, f.err = cgm.Load(f.path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var alerts []Alert
	for _, f := range files {
		alerts = append(alerts, w.importFile(f)...)
	}
	return alerts, nil
}

// pending lists unseen *.json files in the inbox, oldest first.
func (w *Watcher) pending() ([]inboxFile, error) {
	entries, err := os.ReadDir(w.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading inbox: %w", err)
	}

	var files []inboxFile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		seen, err := w.ledger.InboxFileSeen(path)
		if err != nil {
			return nil, err
		}
		if seen {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, inboxFile{path: path, modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})
	return files, nil
}

func (w *Watcher) importFile(f inboxFile) []Alert {
	logger := w.log.WithField("file", filepath.Base(f.path))
	now := time.Now()

	if f.err != nil {
		logger.WithError(f.err).Warn("rejected inbox file")
		_ = w.ledger.MarkInboxFile(f.path, "", f.err.Error())
		return []Alert{{
			Level:   "warning",
			Title:   "Could not import report",
			Message: fmt.Sprintf("%s: %v", filepath.Base(f.path), f.err),
			Time:    now,
		}}
	}

	prev, err := w.importer.LatestReport()
	if err != nil && !errors.Is(err, coach.ErrNoReport) {
		logger.WithError(err).Warn("loading previous report")
	}

	res, err := w.importer.Import(f.summary)
	if err != nil {
		logger.WithError(err).Warn("import failed")
		_ = w.ledger.MarkInboxFile(f.path, "", err.Error())
		return []Alert{{
			Level:   "warning",
			Title:   "Could not import report",
			Message: fmt.Sprintf("%s: %v", filepath.Base(f.path), err),
			Time:    now,
		}}
	}
	if err := w.ledger.MarkInboxFile(f.path, res.ReportID, ""); err != nil {
		logger.WithError(err).Warn("recording inbox file")
	}
	logger.WithField("summary_id", res.ReportID).Info("imported inbox file")

	alerts := Compare(prev, f.summary, w.goals)
	if res.Recommendation != nil {
		alerts = append(alerts, recommendationAlert(*res.Recommendation))
	}
	return alerts
}

func recommendationAlert(rec suggest.Recommendation) Alert {
	level := "info"
	if rec.Priority == suggest.PriorityHigh {
		level = "warning"
	}
	return Alert{
		Level:   level,
		Title:   "New recommendation: " + rec.Title,
		Message: rec.Rationale,
		Time:    time.Now(),
	}
}
