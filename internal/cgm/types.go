// Package cgm defines the aggregated continuous-glucose-monitor summary the
// analysis consumes, along with loading, validation and hour-window helpers.
package cgm

import "time"

// Summary aggregates CGM readings over a reporting period. It is produced by
// an external report parser and treated as immutable input.
type Summary struct {
	ID             string          `json:"id"`
	UploadDate     time.Time       `json:"uploadDate"`
	ReportPeriod   ReportPeriod    `json:"reportPeriod"`
	TimeInRange    TimeInRange     `json:"timeInRange"`
	Statistics     Statistics      `json:"statistics"`
	HourlyPatterns []HourlyPattern `json:"hourlyPatterns"`
	Events         Events          `json:"events"`
}

// ReportPeriod is the span of days a summary covers.
type ReportPeriod struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Days      int       `json:"days"`
}

// TimeInRange holds percentages of readings per glucose band.
type TimeInRange struct {
	VeryLow  float64 `json:"veryLow"`  // below 54 mg/dL
	Low      float64 `json:"low"`      // 54-69 mg/dL
	InRange  float64 `json:"inRange"`  // 70-180 mg/dL
	High     float64 `json:"high"`     // 181-250 mg/dL
	VeryHigh float64 `json:"veryHigh"` // above 250 mg/dL
}

// TotalLow is the combined time below range.
func (t TimeInRange) TotalLow() float64 { return t.VeryLow + t.Low }

// TotalHigh is the combined time above range.
func (t TimeInRange) TotalHigh() float64 { return t.High + t.VeryHigh }

// Total sums all bands; a well-formed summary totals about 100.
func (t TimeInRange) Total() float64 {
	return t.VeryLow + t.Low + t.InRange + t.High + t.VeryHigh
}

// Statistics are the period-wide glucose statistics.
type Statistics struct {
	AverageGlucose         float64 `json:"averageGlucose"`
	GMI                    float64 `json:"gmi"`
	StandardDeviation      float64 `json:"standardDeviation"`
	CoefficientOfVariation float64 `json:"coefficientOfVariation"`
}

// HourlyPattern is the distribution of readings for one hour of the day.
type HourlyPattern struct {
	Hour           int     `json:"hour"`
	AverageGlucose float64 `json:"averageGlucose"`
	Percentile10   float64 `json:"percentile10"`
	Percentile25   float64 `json:"percentile25"`
	Percentile50   float64 `json:"percentile50"`
	Percentile75   float64 `json:"percentile75"`
	Percentile90   float64 `json:"percentile90"`
	TimeInRange    float64 `json:"timeInRange"`
}

// Events counts low and high excursions over the period.
type Events struct {
	LowEvents  int `json:"lowEvents"`
	HighEvents int `json:"highEvents"`
}
