// Package coach connects the analysis engine to the database. It imports CGM
// reports, keeps the single pending recommendation and records what the user
// did with it. The CLI, HTTP API, MCP server and inbox watcher all go through
// a Service.
package coach

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/basalcoach/basalcoach/internal/analyzer"
	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/store"
	"github.com/basalcoach/basalcoach/internal/suggest"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

// ErrNoReport is returned when an operation needs a CGM report and none has
// been imported.
var ErrNoReport = errors.New("no CGM report imported")

// Service is safe for concurrent use.
type Service struct {
	db     *store.DB
	engine *suggest.Engine
	goals  therapy.Goals
	keep   int
	log    *logrus.Logger

	// mu serializes read-modify-write of the pending recommendation.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithEngine replaces the default rule engine.
func WithEngine(e *suggest.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithHistoryLimit sets how many imported reports are kept.
func WithHistoryLimit(n int) Option {
	return func(s *Service) { s.keep = n }
}

// New creates a Service over db, judging reports against goals.
func New(db *store.DB, goals therapy.Goals, opts ...Option) *Service {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	s := &Service{
		db:    db,
		goals: goals,
		keep:  20,
		log:   silent,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = suggest.NewEngine(suggest.WithLogger(s.log))
	}
	return s
}

// Goals returns the goals reports are judged against.
func (s *Service) Goals() therapy.Goals { return s.goals }

// Engine returns the rule engine.
func (s *Service) Engine() *suggest.Engine { return s.engine }

// Settings returns the current therapy settings. On first use the default
// settings are saved and returned.
func (s *Service) Settings() (therapy.Settings, error) {
	settings, err := s.db.CurrentSettings()
	if errors.Is(err, store.ErrNoSettings) {
		settings = therapy.DefaultSettings()
		if _, err := s.db.SaveSettings(settings, store.SourceDefault); err != nil {
			return therapy.Settings{}, fmt.Errorf("saving default settings: %w", err)
		}
		s.log.Info("initialized default therapy settings")
		return settings, nil
	}
	if err != nil {
		return therapy.Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	return settings, nil
}

// SaveSettings validates and stores settings as the current version.
func (s *Service) SaveSettings(settings therapy.Settings, source string) error {
	id, err := s.db.SaveSettings(settings, source)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	s.log.WithFields(logrus.Fields{"snapshot": id, "source": source}).Info("settings saved")
	return nil
}

// SetSegment changes the value of every segment of schedule k spanning
// exactly [start, end) and saves the result.
func (s *Service) SetSegment(k therapy.Kind, start, end therapy.ClockTime, value float64) (therapy.Settings, error) {
	current, err := s.Settings()
	if err != nil {
		return therapy.Settings{}, err
	}
	next, changed := current.WithValue(k, start, end, value)
	if changed == 0 {
		return therapy.Settings{}, fmt.Errorf("no %s segment spans %s", k, therapy.NewInterval(start, end))
	}
	if err := s.SaveSettings(next, store.SourceManual); err != nil {
		return therapy.Settings{}, err
	}
	return next, nil
}

// ResetSettings replaces the current settings with the defaults.
func (s *Service) ResetSettings() (therapy.Settings, error) {
	settings := therapy.DefaultSettings()
	if err := s.SaveSettings(settings, store.SourceDefault); err != nil {
		return therapy.Settings{}, err
	}
	return settings, nil
}

// Resolve returns the segment of schedule k governing hour.
func (s *Service) Resolve(k therapy.Kind, hour int) (therapy.Segment, error) {
	settings, err := s.Settings()
	if err != nil {
		return therapy.Segment{}, err
	}
	return therapy.Resolve(settings.Schedule(k), hour)
}

// LatestReport returns the most recently imported summary.
func (s *Service) LatestReport() (*cgm.Summary, error) {
	summary, err := s.db.LatestReport()
	if err != nil {
		return nil, fmt.Errorf("loading latest report: %w", err)
	}
	if summary == nil {
		return nil, ErrNoReport
	}
	return summary, nil
}

// Reports lists stored reports, newest first.
func (s *Service) Reports(limit int) ([]store.ReportInfo, error) {
	return s.db.ListReports(limit)
}

// Finding is a problem period together with its guidance.
type Finding struct {
	analyzer.ProblemPeriod
	Guidance analyzer.Guidance `json:"guidance"`
}

// Analyze returns the problem periods of summary, each explained against
// the current settings.
func (s *Service) Analyze(summary *cgm.Summary) ([]Finding, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}
	problems := analyzer.IdentifyProblemPeriods(summary, s.goals)
	findings := make([]Finding, len(problems))
	for i, p := range problems {
		findings[i] = Finding{ProblemPeriod: p, Guidance: analyzer.Explain(p, settings)}
	}
	return findings, nil
}

// ImportResult describes what an import did.
type ImportResult struct {
	ReportID string `json:"reportId"`

	// Recommendation is set when the import produced a new pending
	// recommendation.
	Recommendation *suggest.Recommendation `json:"recommendation,omitempty"`

	// Pending is true when a recommendation was already waiting, in which
	// case none was generated.
	Pending bool `json:"pending"`
}

// Import stores a validated summary. When no recommendation is pending one
// is generated from it and offered.
func (s *Service) Import(summary *cgm.Summary) (ImportResult, error) {
	if err := cgm.Validate(summary); err != nil {
		return ImportResult{}, err
	}
	cgm.Normalize(summary)

	if err := s.db.SaveReport(summary, s.keep); err != nil {
		return ImportResult{}, fmt.Errorf("saving report: %w", err)
	}
	result := ImportResult{ReportID: summary.ID}
	logger := s.log.WithField("summary_id", summary.ID)
	logger.Info("report imported")

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.db.PendingRecommendation()
	if err != nil {
		return result, fmt.Errorf("loading pending recommendation: %w", err)
	}
	if pending != nil {
		result.Pending = true
		logger.WithField("pending", pending.ID).Debug("recommendation already pending")
		return result, nil
	}

	rec, err := s.generateLocked(summary)
	if err != nil {
		return result, err
	}
	result.Recommendation = rec
	return result, nil
}

// Recommend generates a recommendation from the latest report and offers
// it, replacing any pending one. It returns nil when no rule fires, leaving
// the pending recommendation in place.
func (s *Service) Recommend() (*suggest.Recommendation, error) {
	summary, err := s.LatestReport()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateLocked(summary)
}

// Candidates returns every recommendation the rules produce for the latest
// report, ranked. Nothing is stored.
func (s *Service) Candidates() ([]suggest.Recommendation, error) {
	summary, err := s.LatestReport()
	if err != nil {
		return nil, err
	}
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}
	return s.engine.Run(&suggest.AnalysisContext{Summary: summary, Settings: settings, Goals: s.goals}), nil
}

func (s *Service) generateLocked(summary *cgm.Summary) (*suggest.Recommendation, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}
	rec := s.engine.Generate(summary, settings, s.goals)
	if rec == nil {
		s.log.WithField("summary_id", summary.ID).Info("no recommendation")
		return nil, nil
	}
	if err := s.db.OfferRecommendation(*rec, summary.ID); err != nil {
		return nil, fmt.Errorf("storing recommendation: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"summary_id": summary.ID,
		"id":         rec.ID,
		"rule":       rec.Rule,
		"priority":   rec.Priority,
	}).Info("recommendation offered")
	return rec, nil
}

// Pending returns the pending recommendation, or nil.
func (s *Service) Pending() (*suggest.Recommendation, error) {
	return s.db.PendingRecommendation()
}

// slot loads the pending recommendation into a Slot. Callers hold mu.
func (s *Service) slot() (*suggest.Slot, error) {
	pending, err := s.db.PendingRecommendation()
	if err != nil {
		return nil, fmt.Errorf("loading pending recommendation: %w", err)
	}
	slot := suggest.NewSlot()
	slot.Offer(pending)
	return slot, nil
}

// Accept applies the pending recommendation to the current settings and
// saves both. An empty id accepts whatever is pending.
func (s *Service) Accept(id string) (suggest.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.slot()
	if err != nil {
		return suggest.Outcome{}, err
	}
	settings, err := s.Settings()
	if err != nil {
		return suggest.Outcome{}, err
	}
	out, err := slot.Accept(id, settings)
	if err != nil {
		return suggest.Outcome{}, err
	}
	if err := s.db.CommitApplied(out.Recommendation, out.Settings); err != nil {
		return suggest.Outcome{}, fmt.Errorf("committing applied recommendation: %w", err)
	}

	logger := s.log.WithFields(logrus.Fields{"id": out.Recommendation.ID, "rule": out.Recommendation.Rule})
	if !out.Changed {
		logger.Warn("applied recommendation matched no segment; settings unchanged")
	} else {
		logger.Info("recommendation applied")
	}
	return out, nil
}

// Dismiss discards the pending recommendation.
func (s *Service) Dismiss(id string) (suggest.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.slot()
	if err != nil {
		return suggest.Recommendation{}, err
	}
	rec, err := slot.Dismiss(id)
	if err != nil {
		return suggest.Recommendation{}, err
	}
	if err := s.db.CommitDismissed(rec); err != nil {
		return suggest.Recommendation{}, fmt.Errorf("committing dismissed recommendation: %w", err)
	}
	s.log.WithField("id", rec.ID).Info("recommendation dismissed")
	return rec, nil
}

// History returns applied recommendations, most recent first.
func (s *Service) History(limit int) ([]suggest.Recommendation, error) {
	return s.db.AppliedHistory(limit)
}
