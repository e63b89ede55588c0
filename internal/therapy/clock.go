// Package therapy holds pump therapy settings: time-of-day schedules for
// basal rate, carb ratio and correction factor, and the lookups over them.
package therapy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of the schedule clock.
const MinutesPerDay = 24 * 60

// ErrInvalidClock is returned when a time-of-day string is not HH:MM.
var ErrInvalidClock = errors.New("invalid time of day")

// ClockTime is a time of day expressed as minutes since midnight.
type ClockTime int

// ParseClock parses an "HH:MM" string. "24:00" is accepted as an alias for
// midnight so schedules exported by other tools can be read back.
func ParseClock(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if h == 24 && m == 0 {
		return 0, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return ClockTime(h*60 + m), nil
}

// MustClock is ParseClock for literals known to be valid. It panics otherwise.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// AtHour returns the clock time at the top of the given hour.
func AtHour(hour int) ClockTime {
	return ClockTime(hour * 60)
}

// Hour returns the hour component.
func (c ClockTime) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c ClockTime) Minute() int { return int(c) % 60 }

// String renders the clock time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalJSON encodes the clock time as an "HH:MM" string.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes an "HH:MM" string.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Interval is a half-open [Start, End) span of the day. When Start is after
// End the interval spans midnight; that is decided once, at construction.
type Interval struct {
	Start ClockTime
	End   ClockTime
	wraps bool
}

// NewInterval builds an interval, recording whether it wraps past midnight.
func NewInterval(start, end ClockTime) Interval {
	return Interval{Start: start, End: end, wraps: start > end}
}

// Wraps reports whether the interval spans midnight.
func (iv Interval) Wraps() bool { return iv.wraps }

// Contains reports whether t falls inside the interval. An interval whose
// start equals its end is empty.
func (iv Interval) Contains(t ClockTime) bool {
	if iv.wraps {
		return t >= iv.Start || t < iv.End
	}
	return t >= iv.Start && t < iv.End
}

// SameSpan reports whether two intervals have identical bounds.
func (iv Interval) SameSpan(start, end ClockTime) bool {
	return iv.Start == start && iv.End == end
}

// Minutes returns the interval length in minutes.
func (iv Interval) Minutes() int {
	if iv.wraps {
		return MinutesPerDay - int(iv.Start) + int(iv.End)
	}
	return int(iv.End - iv.Start)
}

// String renders the interval as "HH:MM-HH:MM".
func (iv Interval) String() string {
	return iv.Start.String() + "-" + iv.End.String()
}
