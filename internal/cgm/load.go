package cgm

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/basalcoach/basalcoach/internal/therapy"
)

// Decode reads a JSON summary, validates it and normalizes it: hourly
// patterns are ordered by hour and a missing ID or upload date is filled in.
func Decode(r io.Reader) (*Summary, error) {
	var s Summary
	dec := json.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding summary: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	Normalize(&s)
	return &s, nil
}

// Load reads a JSON summary from a file.
func Load(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Normalize sorts hourly patterns by hour and fills in the ID and upload
// date when the producer left them empty.
func Normalize(s *Summary) {
	sort.SliceStable(s.HourlyPatterns, func(i, j int) bool {
		return s.HourlyPatterns[i].Hour < s.HourlyPatterns[j].Hour
	})
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.UploadDate.IsZero() {
		s.UploadDate = time.Now().UTC()
	}
}

// Validate checks that a summary is internally consistent: time-in-range
// bands are percentages totalling roughly 100, and each hourly pattern is
// for a distinct hour between 0 and 23.
func Validate(s *Summary) error {
	bands := []struct {
		name string
		v    float64
	}{
		{"timeInRange.veryLow", s.TimeInRange.VeryLow},
		{"timeInRange.low", s.TimeInRange.Low},
		{"timeInRange.inRange", s.TimeInRange.InRange},
		{"timeInRange.high", s.TimeInRange.High},
		{"timeInRange.veryHigh", s.TimeInRange.VeryHigh},
	}
	for _, b := range bands {
		if b.v < 0 || b.v > 100 || math.IsNaN(b.v) {
			return &therapy.ValidationError{Field: b.name, Message: fmt.Sprintf("%v is not a percentage", b.v)}
		}
	}
	if total := s.TimeInRange.Total(); math.Abs(total-100) > 5 {
		return &therapy.ValidationError{Field: "timeInRange", Message: fmt.Sprintf("bands total %.1f%%, expected about 100%%", total)}
	}
	if s.Statistics.AverageGlucose < 0 || s.Statistics.CoefficientOfVariation < 0 {
		return &therapy.ValidationError{Field: "statistics", Message: "values must not be negative"}
	}

	seen := make(map[int]bool, len(s.HourlyPatterns))
	for i, p := range s.HourlyPatterns {
		if p.Hour < 0 || p.Hour > 23 {
			return &therapy.ValidationError{Field: fmt.Sprintf("hourlyPatterns[%d].hour", i), Message: fmt.Sprintf("hour %d out of range", p.Hour)}
		}
		if seen[p.Hour] {
			return &therapy.ValidationError{Field: fmt.Sprintf("hourlyPatterns[%d].hour", i), Message: fmt.Sprintf("duplicate hour %d", p.Hour)}
		}
		seen[p.Hour] = true
		if p.TimeInRange < 0 || p.TimeInRange > 100 {
			return &therapy.ValidationError{Field: fmt.Sprintf("hourlyPatterns[%d].timeInRange", i), Message: "not a percentage"}
		}
	}
	return nil
}
