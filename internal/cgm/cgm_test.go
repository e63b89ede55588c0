package cgm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalcoach/basalcoach/internal/therapy"
)

func TestAggregate(t *testing.T) {
	patterns := []HourlyPattern{
		{Hour: 0, AverageGlucose: 100, TimeInRange: 80},
		{Hour: 1, AverageGlucose: 120, TimeInRange: 60},
		{Hour: 5, AverageGlucose: 200, TimeInRange: 10},
	}

	w := Aggregate(patterns, HalfOpen(0, 2))
	assert.Equal(t, 2, w.Hours)
	assert.InDelta(t, 110, w.AverageGlucose, 1e-9)
	assert.InDelta(t, 70, w.TimeInRange, 1e-9)

	empty := Aggregate(patterns, HalfOpen(10, 12))
	assert.True(t, empty.Empty())
	assert.Zero(t, empty.AverageGlucose)
}

func TestSelectors(t *testing.T) {
	assert.True(t, Inclusive(7, 10)(10))
	assert.False(t, HalfOpen(7, 10)(10))
	assert.True(t, Overnight(23))
	assert.True(t, Overnight(5))
	assert.False(t, Overnight(6))
	assert.False(t, Overnight(22))
}

func TestFilter_PreservesOrder(t *testing.T) {
	patterns := []HourlyPattern{{Hour: 3}, {Hour: 1}, {Hour: 2}}
	got := Filter(patterns, func(p HourlyPattern) bool { return p.Hour != 1 })
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Hour)
	assert.Equal(t, 2, got[1].Hour)
}

func TestDecode_NormalizesAndAssignsID(t *testing.T) {
	doc := `{
		"timeInRange": {"veryLow": 1, "low": 3, "inRange": 70, "high": 20, "veryHigh": 6},
		"statistics": {"averageGlucose": 150, "gmi": 6.9, "standardDeviation": 40, "coefficientOfVariation": 27},
		"hourlyPatterns": [
			{"hour": 2, "averageGlucose": 110, "timeInRange": 90},
			{"hour": 1, "averageGlucose": 105, "timeInRange": 92}
		],
		"events": {"lowEvents": 2, "highEvents": 4}
	}`
	s, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.False(t, s.UploadDate.IsZero())
	require.Len(t, s.HourlyPatterns, 2)
	assert.Equal(t, 1, s.HourlyPatterns[0].Hour)
	assert.Equal(t, 4, s.Events.HighEvents)
}

func TestDecode_RejectsMalformed(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"timeInRange":`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(s *Summary)
		field string
	}{
		{"negative band", func(s *Summary) { s.TimeInRange.Low = -1 }, "timeInRange.low"},
		{"bands do not total 100", func(s *Summary) { s.TimeInRange.InRange = 20 }, "timeInRange"},
		{"hour out of range", func(s *Summary) { s.HourlyPatterns[3].Hour = 24 }, "hourlyPatterns[3].hour"},
		{"duplicate hour", func(s *Summary) { s.HourlyPatterns[4].Hour = 3 }, "hourlyPatterns[4].hour"},
		{"hourly tir", func(s *Summary) { s.HourlyPatterns[0].TimeInRange = 140 }, "hourlyPatterns[0].timeInRange"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DemoSummary(time.Now())
			tt.mut(s)
			var verr *therapy.ValidationError
			require.ErrorAs(t, Validate(s), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDemoSummary_IsValid(t *testing.T) {
	s := DemoSummary(time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, Validate(s))
	assert.Len(t, s.HourlyPatterns, 24)
	assert.Equal(t, 7, s.ReportPeriod.Days)
	assert.InDelta(t, 100, s.TimeInRange.Total(), 1e-9)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	doc := `{"id":"r1","timeInRange":{"veryLow":0,"low":2,"inRange":80,"high":15,"veryHigh":3},"hourlyPatterns":[]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "r1", s.ID)
	assert.InDelta(t, 18, s.TimeInRange.TotalHigh(), 1e-9)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
