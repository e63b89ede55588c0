// Package suggest provides the recommendation engine, its rules, and the
// applicator that turns an accepted recommendation into new settings.
package suggest

import (
	"time"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

// Type names the schedule a recommendation changes.
type Type string

const (
	TypeBasal Type = "basal"
	TypeICR   Type = "icr"
	TypeISF   Type = "isf"

	// TypeTarget is reserved. No rule produces it and Apply treats it as a
	// no-op.
	TypeTarget Type = "target"
)

// Kind maps the type to its schedule. The second result is false for
// TypeTarget and unknown types.
func (t Type) Kind() (therapy.Kind, bool) {
	switch t {
	case TypeBasal:
		return therapy.KindBasal, true
	case TypeICR:
		return therapy.KindICR, true
	case TypeISF:
		return therapy.KindISF, true
	}
	return "", false
}

// Priority levels for recommendations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities: high=0, medium=1, low=2. Unknown priorities sort
// last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Status is the lifecycle state of a recommendation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApplied   Status = "applied"
	StatusDismissed Status = "dismissed"
)

// TimeRange is the segment span a recommendation targets.
type TimeRange struct {
	Start therapy.ClockTime `json:"start"`
	End   therapy.ClockTime `json:"end"`
	Label string            `json:"label"`
}

// SupportingData carries the rounded measurements behind a recommendation.
// Fields a rule does not measure are left nil.
type SupportingData struct {
	AverageGlucose *int `json:"averageGlucose,omitempty"`
	TimeInRange    *int `json:"timeInRange,omitempty"`
	LowEvents      *int `json:"lowEvents,omitempty"`
	HighEvents     *int `json:"highEvents,omitempty"`
}

// Recommendation is a single proposed change to one segment of one schedule.
type Recommendation struct {
	// ID is unique per generated recommendation.
	ID string `json:"id"`

	// Type selects the schedule to change.
	Type Type `json:"type"`

	// Priority decides which candidate wins when several rules fire.
	Priority Priority `json:"priority"`

	// Rule names the check that produced this recommendation.
	Rule string `json:"rule"`

	TimeRange      TimeRange `json:"timeRange"`
	CurrentValue   float64   `json:"currentValue"`
	SuggestedValue float64   `json:"suggestedValue"`
	ChangePercent  float64   `json:"changePercent"`

	Title          string         `json:"title"`
	Rationale      string         `json:"rationale"`
	SupportingData SupportingData `json:"supportingData"`

	GeneratedAt time.Time `json:"generatedAt"`
	Status      Status    `json:"status"`

	// AppliedAt and PreviousValue are set when the recommendation is accepted.
	AppliedAt     *time.Time `json:"appliedAt,omitempty"`
	PreviousValue *float64   `json:"previousValue,omitempty"`

	// DismissedAt is set when the recommendation is dismissed.
	DismissedAt *time.Time `json:"dismissedAt,omitempty"`
}

// AnalysisContext provides all data the rules examine.
type AnalysisContext struct {
	Summary  *cgm.Summary
	Settings therapy.Settings
	Goals    therapy.Goals
}

// Rule examines the analysis context and produces at most one candidate.
// Rules fill in the change itself; the engine stamps identity, rule name,
// timestamp and status.
type Rule func(ctx *AnalysisContext) *Recommendation
