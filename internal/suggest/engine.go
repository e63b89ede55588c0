package suggest

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

type namedRule struct {
	name string
	fn   Rule
}

// Engine runs the registered rules against a summary and picks the single
// most important recommendation.
type Engine struct {
	rules []namedRule
	now   func() time.Time
	newID func() string
	log   *logrus.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs sets the id generator.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithLogger sets the logger that records each fired rule at debug level.
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an engine with the built-in rules registered in their
// evaluation order.
func NewEngine(opts ...Option) *Engine {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	e := &Engine{
		rules: []namedRule{
			{"low_glucose", LowGlucose},
			{"overnight_dawn", OvernightDawn},
			{"meal_spike", MealSpike},
			{"general_high", GeneralHigh},
			{"correction_factor", CorrectionFactor},
		},
		now:   time.Now,
		newID: func() string { return "rec-" + uuid.NewString() },
		log:   silent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RuleNames lists the registered rules in evaluation order.
func (e *Engine) RuleNames() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.name
	}
	return names
}

// Run evaluates every rule in order and returns all candidates ranked by
// priority. Candidates of equal priority keep rule order.
func (e *Engine) Run(ctx *AnalysisContext) []Recommendation {
	if ctx == nil || ctx.Summary == nil {
		return nil
	}
	generatedAt := e.now().UTC()

	var all []Recommendation
	for _, r := range e.rules {
		rec := r.fn(ctx)
		if rec == nil {
			continue
		}
		rec.ID = e.newID()
		rec.Rule = r.name
		rec.GeneratedAt = generatedAt
		rec.Status = StatusPending
		e.log.WithFields(logrus.Fields{
			"summary_id": ctx.Summary.ID,
			"rule":       r.name,
			"priority":   rec.Priority,
			"type":       rec.Type,
		}).Debug("rule fired")
		all = append(all, *rec)
	}
	return RankRecommendations(all)
}

// Generate returns the highest-priority recommendation for the summary, or
// nil when no rule fires.
func (e *Engine) Generate(summary *cgm.Summary, settings therapy.Settings, goals therapy.Goals) *Recommendation {
	ranked := e.Run(&AnalysisContext{Summary: summary, Settings: settings, Goals: goals})
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}
