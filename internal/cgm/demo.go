package cgm

import "time"

// DemoSummary returns a week-long sample report with a dawn rise and
// post-meal peaks. Hourly averages are fixed so repeated runs agree.
func DemoSummary(now time.Time) *Summary {
	patterns := make([]HourlyPattern, 24)
	for hour := range patterns {
		base := 140.0
		switch {
		case hour < 3:
			base = 130
		case hour < 7:
			base = 170
		case hour < 10:
			base = 180
		case hour >= 12 && hour < 14:
			base = 175
		case hour >= 18 && hour < 21:
			base = 185
		}
		tir := 55.0
		if hour < 6 {
			tir = 75
		}
		const variation = 20
		patterns[hour] = HourlyPattern{
			Hour:           hour,
			AverageGlucose: base + float64(hour%3*4-4),
			Percentile10:   base - variation*2,
			Percentile25:   base - variation,
			Percentile50:   base,
			Percentile75:   base + variation,
			Percentile90:   base + variation*2,
			TimeInRange:    tir,
		}
	}

	return &Summary{
		ID:         "demo-1",
		UploadDate: now,
		ReportPeriod: ReportPeriod{
			StartDate: now.AddDate(0, 0, -7),
			EndDate:   now,
			Days:      7,
		},
		TimeInRange: TimeInRange{VeryLow: 1, Low: 3, InRange: 62, High: 25, VeryHigh: 9},
		Statistics: Statistics{
			AverageGlucose:         165,
			GMI:                    7.2,
			StandardDeviation:      55,
			CoefficientOfVariation: 33,
		},
		HourlyPatterns: patterns,
		Events:         Events{LowEvents: 5, HighEvents: 12},
	}
}
