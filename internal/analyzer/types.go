// Package analyzer identifies time-of-day problem periods in a CGM summary
// and explains which therapy setting most likely drives each one.
package analyzer

// ProblemType classifies a problem period.
type ProblemType string

const (
	ProblemLow      ProblemType = "low"
	ProblemHigh     ProblemType = "high"
	ProblemVariable ProblemType = "variable"
)

// Severity grades a problem period.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// ProblemPeriod is a block of the day whose glucose profile needs attention.
// It is derived on demand and never persisted.
type ProblemPeriod struct {
	// Block is the name of the time block, e.g. "Post-breakfast".
	Block string `json:"block"`

	// StartHour is the first hour of the block (inclusive).
	StartHour int `json:"startHour"`

	// EndHour is the end of the block (exclusive, 24 for midnight).
	EndHour int `json:"endHour"`

	// Type is low, high or variable.
	Type ProblemType `json:"type"`

	// Severity is mild, moderate or severe.
	Severity Severity `json:"severity"`

	// AverageGlucose is the unweighted mean of the block's hourly averages.
	AverageGlucose float64 `json:"averageGlucose"`

	// TimeInRange is the unweighted mean of the block's hourly TIR.
	TimeInRange float64 `json:"timeInRange"`

	// Description is a one-line summary for display.
	Description string `json:"description"`
}

// SettingHint names the schedule most likely responsible for a problem.
type SettingHint string

const (
	HintBasal SettingHint = "basal"
	HintICR   SettingHint = "icr"
	HintISF   SettingHint = "isf"
)

// Guidance explains a problem period in plain language.
type Guidance struct {
	// Headline is the short statement of the issue.
	Headline string `json:"headline"`

	// Explanation describes what is happening.
	Explanation string `json:"explanation"`

	// Setting is the schedule most likely involved.
	Setting SettingHint `json:"setting"`

	// Adjustment is the likely adjustment, stated as a direction.
	Adjustment string `json:"adjustment"`

	// CurrentSetting is the value currently governing the period start,
	// formatted with its unit. Empty when the schedule has no segments.
	CurrentSetting string `json:"currentSetting,omitempty"`
}
