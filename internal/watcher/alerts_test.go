package watcher

import (
	"testing"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

func makeSummary(inRange, low, veryLow, avg float64) *cgm.Summary {
	return &cgm.Summary{
		ReportPeriod: cgm.ReportPeriod{Days: 14},
		TimeInRange: cgm.TimeInRange{
			VeryLow:  veryLow,
			Low:      low,
			InRange:  inRange,
			High:     100 - inRange - low - veryLow,
			VeryHigh: 0,
		},
		Statistics: cgm.Statistics{AverageGlucose: avg},
	}
}

func titles(alerts []Alert) map[string]string {
	out := make(map[string]string, len(alerts))
	for _, a := range alerts {
		out[a.Title] = a.Level
	}
	return out
}

func TestCompare_FirstImport(t *testing.T) {
	alerts := Compare(nil, makeSummary(72, 2, 0.5, 150), therapy.DefaultGoals())
	if len(alerts) != 1 {
		for _, a := range alerts {
			t.Logf("  [%s] %s: %s", a.Level, a.Title, a.Message)
		}
		t.Fatalf("expected only the import alert, got %d", len(alerts))
	}
	if alerts[0].Title != "Report imported" || alerts[0].Level != "info" {
		t.Errorf("unexpected alert %+v", alerts[0])
	}
}

func TestCompare_NilCurrent(t *testing.T) {
	if alerts := Compare(makeSummary(70, 2, 0, 150), nil, therapy.DefaultGoals()); alerts != nil {
		t.Errorf("expected no alerts, got %v", alerts)
	}
}

func TestCompare_LowsAreCritical(t *testing.T) {
	got := titles(Compare(nil, makeSummary(70, 4, 2, 140), therapy.DefaultGoals()))

	if got["Very low glucose above goal"] != "critical" {
		t.Error("expected very-low alert")
	}
	if got["Time below range above goal"] != "critical" {
		t.Error("expected time-below-range alert")
	}
}

func TestCompare_TIRFallsBelowGoal(t *testing.T) {
	got := titles(Compare(makeSummary(72, 2, 0, 150), makeSummary(68, 2, 0, 155), therapy.DefaultGoals()))

	if got["Time in range fell below goal"] != "warning" {
		t.Errorf("expected goal-crossing warning, got %v", got)
	}
	if _, ok := got["Time in range dropped"]; ok {
		t.Error("goal crossing should not also report a drop")
	}
}

func TestCompare_TIRDrop(t *testing.T) {
	got := titles(Compare(makeSummary(65, 2, 0, 150), makeSummary(58, 2, 0, 150), therapy.DefaultGoals()))
	if got["Time in range dropped"] != "warning" {
		t.Errorf("expected drop warning, got %v", got)
	}

	got = titles(Compare(makeSummary(65, 2, 0, 150), makeSummary(62, 2, 0, 150), therapy.DefaultGoals()))
	if _, ok := got["Time in range dropped"]; ok {
		t.Error("a 3 point dip is below the alert threshold")
	}
}

func TestCompare_AverageRising(t *testing.T) {
	got := titles(Compare(makeSummary(70, 2, 0, 150), makeSummary(70, 2, 0, 170), therapy.DefaultGoals()))
	if got["Average glucose rising"] != "warning" {
		t.Errorf("expected average warning, got %v", got)
	}
}

func TestCompare_Improvement(t *testing.T) {
	got := titles(Compare(makeSummary(60, 2, 0, 170), makeSummary(68, 2, 0, 160), therapy.DefaultGoals()))
	if got["Time in range improved"] != "info" {
		t.Errorf("expected improvement alert, got %v", got)
	}
}
