package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/coach"
	"github.com/basalcoach/basalcoach/internal/suggest"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

// ResolveResult is the segment governing an hour.
type ResolveResult struct {
	Schedule therapy.Kind    `json:"schedule"`
	Hour     int             `json:"hour"`
	Segment  therapy.Segment `json:"segment"`
	Unit     string          `json:"unit"`
}

// ProblemsResult lists the problem periods of a report.
type ProblemsResult struct {
	ReportID string          `json:"reportId"`
	Findings []coach.Finding `json:"findings"`
}

// RecommendationResult carries the recommendation a tool produced, if any.
type RecommendationResult struct {
	Recommendation *suggest.Recommendation `json:"recommendation"`
}

// ApplyResult is the outcome of applying the pending recommendation.
type ApplyResult struct {
	Recommendation suggest.Recommendation `json:"recommendation"`
	Changed        bool                   `json:"changed"`
	Settings       therapy.Settings       `json:"settings"`
}

// HistoryResult lists applied recommendations.
type HistoryResult struct {
	Applied []suggest.Recommendation `json:"applied"`
}

var (
	noArgsSchema   = json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)
	resolveSchema  = json.RawMessage(`{"type":"object","properties":{"schedule":{"type":"string","enum":["basal","icr","isf"]},"hour":{"type":"integer","minimum":0,"maximum":23}},"required":["schedule","hour"],"additionalProperties":false}`)
	summarySchema  = json.RawMessage(`{"type":"object","properties":{"summary":{"type":"object","description":"CGM summary to analyze; defaults to the latest imported report"}},"additionalProperties":false}`)
	idSchema       = json.RawMessage(`{"type":"object","properties":{"id":{"type":"string","description":"Recommendation id; defaults to the pending one"}},"additionalProperties":false}`)
	historySchema  = json.RawMessage(`{"type":"object","properties":{"n":{"type":"integer","description":"Number of entries to return (default 10)"}},"additionalProperties":false}`)
	errMissingHour = errors.New("hour is required")
)

// addTools registers the MCP tool handlers on s.
func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "resolve_segment",
		Description: "The basal rate, carb ratio or correction factor segment in effect at an hour of the day.",
		InputSchema: resolveSchema,
		Handler:     s.handleResolveSegment,
	})
	s.registerTool(toolDef{
		Name:        "identify_problem_periods",
		Description: "Times of day with lows, highs or high variability, with the setting most likely involved.",
		InputSchema: summarySchema,
		Handler:     s.handleIdentifyProblemPeriods,
	})
	s.registerTool(toolDef{
		Name:        "generate_recommendation",
		Description: "Generate the single most important settings change and make it the pending recommendation. A summary argument is imported first.",
		InputSchema: summarySchema,
		Handler:     s.handleGenerateRecommendation,
	})
	s.registerTool(toolDef{
		Name:        "get_pending_recommendation",
		Description: "The recommendation awaiting a decision, or null.",
		InputSchema: noArgsSchema,
		Handler:     s.handleGetPending,
	})
	s.registerTool(toolDef{
		Name:        "apply_recommendation",
		Description: "Apply the pending recommendation to the therapy settings.",
		InputSchema: idSchema,
		Handler:     s.handleApplyRecommendation,
	})
	s.registerTool(toolDef{
		Name:        "dismiss_recommendation",
		Description: "Discard the pending recommendation without changing settings.",
		InputSchema: idSchema,
		Handler:     s.handleDismissRecommendation,
	})
	s.registerTool(toolDef{
		Name:        "get_settings",
		Description: "The current basal, carb ratio and correction factor schedules.",
		InputSchema: noArgsSchema,
		Handler:     s.handleGetSettings,
	})
	s.registerTool(toolDef{
		Name:        "get_applied_history",
		Description: "Recently applied recommendations with their previous values, newest first.",
		InputSchema: historySchema,
		Handler:     s.handleGetAppliedHistory,
	})
}

func (s *Server) handleResolveSegment(args json.RawMessage) (any, error) {
	var params struct {
		Schedule string `json:"schedule"`
		Hour     *int   `json:"hour"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	kind, err := therapy.ParseKind(params.Schedule)
	if err != nil {
		return nil, err
	}
	if params.Hour == nil {
		return nil, errMissingHour
	}
	seg, err := s.svc.Resolve(kind, *params.Hour)
	if err != nil {
		return nil, err
	}
	return ResolveResult{Schedule: kind, Hour: *params.Hour, Segment: seg, Unit: kind.Unit()}, nil
}

// summaryArg returns the summary passed in args, or nil when none was given.
func summaryArg(args json.RawMessage) (*cgm.Summary, error) {
	var params struct {
		Summary *cgm.Summary `json:"summary"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return params.Summary, nil
}

func (s *Server) handleIdentifyProblemPeriods(args json.RawMessage) (any, error) {
	summary, err := summaryArg(args)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		if err := cgm.Validate(summary); err != nil {
			return nil, err
		}
		cgm.Normalize(summary)
	} else if summary, err = s.svc.LatestReport(); err != nil {
		return nil, err
	}

	findings, err := s.svc.Analyze(summary)
	if err != nil {
		return nil, err
	}
	return ProblemsResult{ReportID: summary.ID, Findings: findings}, nil
}

func (s *Server) handleGenerateRecommendation(args json.RawMessage) (any, error) {
	summary, err := summaryArg(args)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		if _, err := s.svc.Import(summary); err != nil {
			return nil, err
		}
	}
	rec, err := s.svc.Recommend()
	if err != nil {
		return nil, err
	}
	return RecommendationResult{Recommendation: rec}, nil
}

func (s *Server) handleGetPending(args json.RawMessage) (any, error) {
	rec, err := s.svc.Pending()
	if err != nil {
		return nil, err
	}
	return RecommendationResult{Recommendation: rec}, nil
}

func idArg(args json.RawMessage) (string, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	return params.ID, nil
}

func (s *Server) handleApplyRecommendation(args json.RawMessage) (any, error) {
	id, err := idArg(args)
	if err != nil {
		return nil, err
	}
	out, err := s.svc.Accept(id)
	if err != nil {
		return nil, err
	}
	return ApplyResult{Recommendation: out.Recommendation, Changed: out.Changed, Settings: out.Settings}, nil
}

func (s *Server) handleDismissRecommendation(args json.RawMessage) (any, error) {
	id, err := idArg(args)
	if err != nil {
		return nil, err
	}
	rec, err := s.svc.Dismiss(id)
	if err != nil {
		return nil, err
	}
	return RecommendationResult{Recommendation: &rec}, nil
}

func (s *Server) handleGetSettings(args json.RawMessage) (any, error) {
	return s.svc.Settings()
}

func (s *Server) handleGetAppliedHistory(args json.RawMessage) (any, error) {
	n := 10
	if len(args) > 0 && string(args) != "null" {
		var params struct {
			N *int `json:"n"`
		}
		if err := json.Unmarshal(args, &params); err == nil && params.N != nil {
			n = *params.N
		}
	}
	if n <= 0 {
		n = 10
	}
	if n > 100 {
		n = 100
	}

	recs, err := s.svc.History(n)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []suggest.Recommendation{}
	}
	return HistoryResult{Applied: recs}, nil
}
