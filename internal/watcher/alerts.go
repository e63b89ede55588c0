package watcher

import (
	"fmt"
	"time"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

// tirShift is the change in time-in-range, in percentage points, worth an
// alert.
const tirShift = 5.0

// Compare detects notable changes between the previous report and a newly
// imported one. prev may be nil for the first import.
func Compare(prev, curr *cgm.Summary, goals therapy.Goals) []Alert {
	if curr == nil {
		return nil
	}
	var alerts []Alert

	alerts = append(alerts, compareCritical(curr, goals)...)
	alerts = append(alerts, compareWarning(prev, curr, goals)...)
	alerts = append(alerts, compareInfo(prev, curr)...)

	return alerts
}

// compareCritical flags time below range over the goal. These fire on every
// report that breaches, not only on the transition.
func compareCritical(curr *cgm.Summary, goals therapy.Goals) []Alert {
	var alerts []Alert
	now := time.Now()
	tir := curr.TimeInRange

	if tir.VeryLow > goals.MaxVeryLowPercentage {
		alerts = append(alerts, Alert{
			Level:   "critical",
			Title:   "Very low glucose above goal",
			Message: fmt.Sprintf("%.1f%% of readings below 54 mg/dL (goal: under %.0f%%)", tir.VeryLow, goals.MaxVeryLowPercentage),
			Time:    now,
		})
	}
	if low := tir.TotalLow(); low > goals.MaxLowPercentage {
		alerts = append(alerts, Alert{
			Level:   "critical",
			Title:   "Time below range above goal",
			Message: fmt.Sprintf("%.1f%% of readings below %.0f mg/dL (goal: under %.0f%%)", low, goals.TargetRangeLow, goals.MaxLowPercentage),
			Time:    now,
		})
	}
	return alerts
}

// compareWarning flags a worsening time in range.
func compareWarning(prev, curr *cgm.Summary, goals therapy.Goals) []Alert {
	if prev == nil {
		return nil
	}
	var alerts []Alert
	now := time.Now()
	before, after := prev.TimeInRange.InRange, curr.TimeInRange.InRange

	switch {
	case before >= goals.TargetTIR && after < goals.TargetTIR:
		alerts = append(alerts, Alert{
			Level:   "warning",
			Title:   "Time in range fell below goal",
			Message: fmt.Sprintf("%.0f%% in range (was %.0f%%, goal %.0f%%)", after, before, goals.TargetTIR),
			Time:    now,
		})
	case after <= before-tirShift:
		alerts = append(alerts, Alert{
			Level:   "warning",
			Title:   "Time in range dropped",
			Message: fmt.Sprintf("%.0f%% in range, down from %.0f%%", after, before),
			Time:    now,
		})
	}

	if d := curr.Statistics.AverageGlucose - prev.Statistics.AverageGlucose; d >= 15 {
		alerts = append(alerts, Alert{
			Level:   "warning",
			Title:   "Average glucose rising",
			Message: fmt.Sprintf("Average %.0f mg/dL, up %.0f", curr.Statistics.AverageGlucose, d),
			Time:    now,
		})
	}
	return alerts
}

// compareInfo reports the import itself and any improvement.
func compareInfo(prev, curr *cgm.Summary) []Alert {
	now := time.Now()
	alerts := []Alert{{
		Level:   "info",
		Title:   "Report imported",
		Message: fmt.Sprintf("%d days, %.0f%% in range, average %.0f mg/dL", curr.ReportPeriod.Days, curr.TimeInRange.InRange, curr.Statistics.AverageGlucose),
		Time:    now,
	}}

	if prev != nil && curr.TimeInRange.InRange >= prev.TimeInRange.InRange+tirShift {
		alerts = append(alerts, Alert{
			Level:   "info",
			Title:   "Time in range improved",
			Message: fmt.Sprintf("%.0f%% in range, up from %.0f%%", curr.TimeInRange.InRange, prev.TimeInRange.InRange),
			Time:    now,
		})
	}
	return alerts
}
