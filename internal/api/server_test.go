package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/coach"
	"github.com/basalcoach/basalcoach/internal/store"
	"github.com/basalcoach/basalcoach/internal/suggest"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewServer(coach.New(db, therapy.DefaultGoals()), "127.0.0.1:0", "test", log)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func lowSummary() cgm.Summary {
	patterns := make([]cgm.HourlyPattern, 24)
	for h := range patterns {
		p := cgm.HourlyPattern{Hour: h, AverageGlucose: 140, Percentile25: 120, TimeInRange: 75}
		if h >= 2 && h <= 4 {
			p.AverageGlucose, p.Percentile25, p.TimeInRange = 65, 45, 40
		}
		patterns[h] = p
	}
	return cgm.Summary{
		ID:             "r1",
		UploadDate:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		ReportPeriod:   cgm.ReportPeriod{Days: 14},
		TimeInRange:    cgm.TimeInRange{VeryLow: 1, Low: 5, InRange: 70, High: 20, VeryHigh: 4},
		Statistics:     cgm.Statistics{AverageGlucose: 135, CoefficientOfVariation: 30},
		HourlyPatterns: patterns,
	}
}

type recBody struct {
	Recommendation *suggest.Recommendation `json:"recommendation"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	body := decode[map[string]any](t, w)
	assert.Equal(t, "test", body["version"])
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, therapy.DefaultSettings(), decode[therapy.Settings](t, w))

	changed := therapy.DefaultSettings()
	changed.BasalSegments[1].Value = 0.75
	w = do(t, s, http.MethodPut, "/api/v1/settings", changed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/v1/settings/resolve?schedule=basal&hour=9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.75, decode[map[string]any](t, w)["segment"].(map[string]any)["value"])

	invalid := therapy.DefaultSettings()
	invalid.ICRSegments = nil
	w = do(t, s, http.MethodPut, "/api/v1/settings", invalid)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/settings/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.7, decode[therapy.Settings](t, w).BasalSegments[1].Value)
}

func TestResolve_BadInput(t *testing.T) {
	s := newTestServer(t)
	for _, q := range []string{"schedule=carbs&hour=3", "schedule=basal&hour=x", "schedule=basal&hour=24"} {
		w := do(t, s, http.MethodGet, "/api/v1/settings/resolve?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestRecommendationLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/recommendations/generate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "no report yet")

	w = do(t, s, http.MethodPost, "/api/v1/reports", lowSummary())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	imported := decode[coach.ImportResult](t, w)
	require.NotNil(t, imported.Recommendation)

	w = do(t, s, http.MethodGet, "/api/v1/recommendations/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[recBody](t, w).Recommendation
	require.NotNil(t, pending)
	assert.Equal(t, imported.Recommendation.ID, pending.ID)

	w = do(t, s, http.MethodPost, "/api/v1/recommendations/apply", map[string]string{"id": "rec-wrong"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/recommendations/apply", map[string]string{"id": pending.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	applied := decode[struct {
		Changed  bool             `json:"changed"`
		Settings therapy.Settings `json:"settings"`
	}](t, w)
	assert.True(t, applied.Changed)
	assert.Equal(t, 0.48, applied.Settings.BasalSegments[0].Value)

	w = do(t, s, http.MethodPost, "/api/v1/recommendations/dismiss", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "nothing pending")

	w = do(t, s, http.MethodGet, "/api/v1/recommendations/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		Applied []suggest.Recommendation `json:"applied"`
	}](t, w)
	require.Len(t, history.Applied, 1)
	assert.Equal(t, suggest.StatusApplied, history.Applied[0].Status)
}

func TestGenerateAndDismiss(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/reports", lowSummary()).Code)

	w := do(t, s, http.MethodPost, "/api/v1/recommendations/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	generated := decode[recBody](t, w).Recommendation
	require.NotNil(t, generated)

	w = do(t, s, http.MethodGet, "/api/v1/recommendations/candidates", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/recommendations/dismiss", map[string]string{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, suggest.StatusDismissed, decode[recBody](t, w).Recommendation.Status)

	w = do(t, s, http.MethodGet, "/api/v1/recommendations/pending", nil)
	assert.Nil(t, decode[recBody](t, w).Recommendation)
}

func TestReportsAndProblems(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/reports/latest/problems", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	bad := lowSummary()
	bad.TimeInRange.InRange = 5
	w = do(t, s, http.MethodPost, "/api/v1/reports", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/reports", lowSummary()).Code)

	w = do(t, s, http.MethodGet, "/api/v1/reports?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reports := decode[struct {
		Reports []store.ReportInfo `json:"reports"`
	}](t, w)
	require.Len(t, reports.Reports, 1)
	assert.Equal(t, "r1", reports.Reports[0].ID)

	w = do(t, s, http.MethodGet, "/api/v1/reports?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/reports/latest/problems", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r1", decode[map[string]any](t, w)["reportId"])

	overnight := lowSummary()
	for h := 0; h < 6; h++ {
		overnight.HourlyPatterns[h].AverageGlucose = 60
	}
	w = do(t, s, http.MethodPost, "/api/v1/problems", overnight)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	findings := decode[struct {
		Findings []coach.Finding `json:"findings"`
	}](t, w)
	require.NotEmpty(t, findings.Findings)
	assert.Equal(t, "Overnight", findings.Findings[0].Block)
	assert.Equal(t, "Overnight lows are occurring", findings.Findings[0].Guidance.Headline)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodOptions, "/api/v1/settings", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
