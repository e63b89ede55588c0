package therapy

import (
	"fmt"
	"strings"
)

// Kind identifies one of the three time-of-day schedules.
type Kind string

const (
	KindBasal Kind = "basal"
	KindICR   Kind = "icr"
	KindISF   Kind = "isf"
)

// ParseKind accepts "basal", "icr" or "isf" in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBasal, KindICR, KindISF:
		return k, nil
	}
	return "", fmt.Errorf("unknown schedule %q (want basal, icr or isf)", s)
}

// Unit returns the display unit for values of this schedule.
func (k Kind) Unit() string {
	switch k {
	case KindBasal:
		return "U/hr"
	case KindICR:
		return "g/U"
	case KindISF:
		return "mg/dL/U"
	}
	return ""
}

// Settings is a snapshot of the pump's therapy settings. Values are never
// modified in place by this module; changes produce a new Settings.
type Settings struct {
	BasalSegments     []Segment `json:"basalSegments"`
	ICRSegments       []Segment `json:"icrSegments"`
	ISFSegments       []Segment `json:"isfSegments"`
	TargetLow         float64   `json:"targetLow"`
	TargetHigh        float64   `json:"targetHigh"`
	ActiveInsulinTime float64   `json:"activeInsulinTime"`
	CorrectionTarget  float64   `json:"correctionTarget"`
}

// Goals are the user's glycemic targets.
type Goals struct {
	TargetTIR            float64 `json:"targetTIR" mapstructure:"target_tir"`
	TargetRangeLow       float64 `json:"targetRangeLow" mapstructure:"target_range_low"`
	TargetRangeHigh      float64 `json:"targetRangeHigh" mapstructure:"target_range_high"`
	MaxLowPercentage     float64 `json:"maxLowPercentage" mapstructure:"max_low_percentage"`
	MaxVeryLowPercentage float64 `json:"maxVeryLowPercentage" mapstructure:"max_very_low_percentage"`
}

// Schedule returns the segments for the given kind.
func (s Settings) Schedule(k Kind) []Segment {
	switch k {
	case KindBasal:
		return s.BasalSegments
	case KindICR:
		return s.ICRSegments
	case KindISF:
		return s.ISFSegments
	}
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.BasalSegments = cloneSegments(s.BasalSegments)
	out.ICRSegments = cloneSegments(s.ICRSegments)
	out.ISFSegments = cloneSegments(s.ISFSegments)
	return out
}

// WithValue returns a copy of s in which every segment of schedule k
// spanning exactly [start, end) carries value. The second result is the
// number of segments changed.
func (s Settings) WithValue(k Kind, start, end ClockTime, value float64) (Settings, int) {
	out := s.Clone()
	var segs []Segment
	switch k {
	case KindBasal:
		segs = out.BasalSegments
	case KindICR:
		segs = out.ICRSegments
	case KindISF:
		segs = out.ISFSegments
	default:
		return out, 0
	}
	changed := 0
	for i := range segs {
		if segs[i].SameSpan(start, end) {
			segs[i].Value = value
			changed++
		}
	}
	return out, changed
}

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Validate checks that every schedule is non-empty with positive values and
// that the scalar targets are sane. Gaps and overlaps are tolerated by the
// resolver and reported by Coverage, not here.
func (s Settings) Validate() error {
	for _, k := range []Kind{KindBasal, KindICR, KindISF} {
		segs := s.Schedule(k)
		if len(segs) == 0 {
			return &ValidationError{Field: string(k) + "Segments", Message: "at least one segment is required"}
		}
		for i, seg := range segs {
			if seg.Value < 0 || (k != KindBasal && seg.Value == 0) {
				return &ValidationError{
					Field:   fmt.Sprintf("%sSegments[%d].value", k, i),
					Message: fmt.Sprintf("invalid value %v", seg.Value),
				}
			}
		}
	}
	if s.TargetLow > 0 && s.TargetHigh > 0 && s.TargetLow > s.TargetHigh {
		return &ValidationError{Field: "targetLow", Message: "must not exceed targetHigh"}
	}
	return nil
}

// Validate checks goal bounds.
func (g Goals) Validate() error {
	if g.TargetRangeLow <= 0 || g.TargetRangeHigh <= g.TargetRangeLow {
		return &ValidationError{Field: "targetRangeHigh", Message: "target range must be positive and ordered"}
	}
	if g.TargetTIR < 0 || g.TargetTIR > 100 {
		return &ValidationError{Field: "targetTIR", Message: "must be a percentage"}
	}
	if g.MaxLowPercentage < 0 || g.MaxVeryLowPercentage < 0 {
		return &ValidationError{Field: "maxLowPercentage", Message: "must not be negative"}
	}
	return nil
}

// DefaultSettings returns a typical starting schedule.
func DefaultSettings() Settings {
	return Settings{
		BasalSegments: []Segment{
			MustSegment("1", "00:00", "06:00", 0.5),
			MustSegment("2", "06:00", "12:00", 0.7),
			MustSegment("3", "12:00", "18:00", 0.6),
			MustSegment("4", "18:00", "00:00", 0.55),
		},
		ICRSegments: []Segment{
			MustSegment("1", "00:00", "11:00", 8),
			MustSegment("2", "11:00", "17:00", 10),
			MustSegment("3", "17:00", "00:00", 9),
		},
		ISFSegments: []Segment{
			MustSegment("1", "00:00", "06:00", 50),
			MustSegment("2", "06:00", "12:00", 40),
			MustSegment("3", "12:00", "00:00", 45),
		},
		TargetLow:         80,
		TargetHigh:        120,
		ActiveInsulinTime: 4,
		CorrectionTarget:  100,
	}
}

// DefaultGoals returns the consensus CGM targets.
func DefaultGoals() Goals {
	return Goals{
		TargetTIR:            70,
		TargetRangeLow:       70,
		TargetRangeHigh:      180,
		MaxLowPercentage:     4,
		MaxVeryLowPercentage: 1,
	}
}
