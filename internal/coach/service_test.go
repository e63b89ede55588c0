package coach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/store"
	"github.com/basalcoach/basalcoach/internal/suggest"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	engine := suggest.NewEngine(suggest.WithClock(func() time.Time { return fixedNow }))
	return New(db, therapy.DefaultGoals(), WithEngine(engine), WithHistoryLimit(5)), db
}

// lowSummary has early-morning lows at 02:00-04:59 and nothing else wrong.
func lowSummary(id string) *cgm.Summary {
	patterns := make([]cgm.HourlyPattern, 24)
	for h := range patterns {
		p := cgm.HourlyPattern{Hour: h, AverageGlucose: 140, Percentile25: 120, TimeInRange: 75}
		if h >= 2 && h <= 4 {
			p.AverageGlucose, p.Percentile25, p.TimeInRange = 65, 45, 40
		}
		patterns[h] = p
	}
	return &cgm.Summary{
		ID:             id,
		UploadDate:     fixedNow,
		ReportPeriod:   cgm.ReportPeriod{Days: 14},
		TimeInRange:    cgm.TimeInRange{VeryLow: 1, Low: 5, InRange: 70, High: 20, VeryHigh: 4},
		Statistics:     cgm.Statistics{AverageGlucose: 135, CoefficientOfVariation: 30},
		HourlyPatterns: patterns,
		Events:         cgm.Events{LowEvents: 6, HighEvents: 2},
	}
}

func TestSettings_InitializesDefaults(t *testing.T) {
	svc, db := newTestService(t)

	settings, err := svc.Settings()
	require.NoError(t, err)
	assert.Equal(t, therapy.DefaultSettings(), settings)

	snap, err := db.LatestSettings()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, store.SourceDefault, snap.Source)
}

func TestImport_OffersRecommendation(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Import(lowSummary("r1"))
	require.NoError(t, err)
	assert.Equal(t, "r1", res.ReportID)
	assert.False(t, res.Pending)
	require.NotNil(t, res.Recommendation)
	assert.Equal(t, "low_glucose", res.Recommendation.Rule)
	assert.Equal(t, 0.48, res.Recommendation.SuggestedValue)

	pending, err := svc.Pending()
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, res.Recommendation.ID, pending.ID)
}

func TestImport_KeepsExistingPending(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.Import(lowSummary("r1"))
	require.NoError(t, err)
	require.NotNil(t, first.Recommendation)

	second, err := svc.Import(lowSummary("r2"))
	require.NoError(t, err)
	assert.True(t, second.Pending)
	assert.Nil(t, second.Recommendation)

	pending, err := svc.Pending()
	require.NoError(t, err)
	assert.Equal(t, first.Recommendation.ID, pending.ID)

	latest, err := svc.LatestReport()
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
}

func TestImport_QuietReport(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Import(cgm.DemoSummary(fixedNow))
	require.NoError(t, err)
	assert.Nil(t, res.Recommendation)

	pending, err := svc.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestImport_RejectsInvalid(t *testing.T) {
	svc, _ := newTestService(t)

	bad := lowSummary("bad")
	bad.TimeInRange.InRange = 10
	_, err := svc.Import(bad)
	var verr *therapy.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.LatestReport()
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestImport_PrunesHistory(t *testing.T) {
	svc, db := newTestService(t)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		_, err := svc.Import(lowSummary(id))
		require.NoError(t, err)
	}
	n, err := db.CountReports()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestAccept_AppliesAndRecords(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Import(lowSummary("r1"))
	require.NoError(t, err)

	out, err := svc.Accept(res.Recommendation.ID)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, suggest.StatusApplied, out.Recommendation.Status)
	require.NotNil(t, out.Recommendation.PreviousValue)
	assert.Equal(t, 0.5, *out.Recommendation.PreviousValue)

	settings, err := svc.Settings()
	require.NoError(t, err)
	assert.Equal(t, 0.48, settings.BasalSegments[0].Value)

	pending, err := svc.Pending()
	require.NoError(t, err)
	assert.Nil(t, pending)

	history, err := svc.History(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Recommendation.ID, history[0].ID)
}

func TestAccept_Errors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Accept("")
	assert.ErrorIs(t, err, suggest.ErrNoPending)

	_, err = svc.Import(lowSummary("r1"))
	require.NoError(t, err)
	_, err = svc.Accept("rec-other")
	assert.ErrorIs(t, err, suggest.ErrIDMismatch)

	pending, err := svc.Pending()
	require.NoError(t, err)
	assert.NotNil(t, pending, "a mismatched id leaves the recommendation pending")
}

func TestDismiss(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Import(lowSummary("r1"))
	require.NoError(t, err)

	rec, err := svc.Dismiss("")
	require.NoError(t, err)
	assert.Equal(t, res.Recommendation.ID, rec.ID)
	assert.Equal(t, suggest.StatusDismissed, rec.Status)

	settings, err := svc.Settings()
	require.NoError(t, err)
	assert.Equal(t, therapy.DefaultSettings(), settings)

	history, err := svc.History(10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecommend_ReplacesPending(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Recommend()
	assert.ErrorIs(t, err, ErrNoReport)

	first, err := svc.Import(lowSummary("r1"))
	require.NoError(t, err)

	again, err := svc.Recommend()
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.NotEqual(t, first.Recommendation.ID, again.ID)

	pending, err := svc.Pending()
	require.NoError(t, err)
	assert.Equal(t, again.ID, pending.ID)
}

func TestCandidates(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Import(lowSummary("r1"))
	require.NoError(t, err)

	recs, err := svc.Candidates()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, suggest.PriorityHigh, recs[0].Priority)
}

func TestAnalyze_ExplainsFindings(t *testing.T) {
	svc, _ := newTestService(t)

	summary := lowSummary("r1")
	for h := 0; h < 6; h++ {
		summary.HourlyPatterns[h].AverageGlucose = 60
	}

	findings, err := svc.Analyze(summary)
	require.NoError(t, err)
	require.NotEmpty(t, findings)
	for _, f := range findings {
		assert.NotEmpty(t, f.Guidance.Headline, f.Block)
	}
	assert.Equal(t, "low", string(findings[0].Type))
}

func TestSetSegment(t *testing.T) {
	svc, _ := newTestService(t)

	settings, err := svc.SetSegment(therapy.KindICR, therapy.AtHour(11), therapy.AtHour(17), 12)
	require.NoError(t, err)
	assert.Equal(t, 12.0, settings.ICRSegments[1].Value)

	_, err = svc.SetSegment(therapy.KindICR, therapy.AtHour(1), therapy.AtHour(2), 12)
	assert.Error(t, err)

	seg, err := svc.Resolve(therapy.KindICR, 13)
	require.NoError(t, err)
	assert.Equal(t, 12.0, seg.Value)

	reset, err := svc.ResetSettings()
	require.NoError(t, err)
	assert.Equal(t, 10.0, reset.ICRSegments[1].Value)
}
