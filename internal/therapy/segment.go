package therapy

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoSegments is returned when a lookup is made against an empty
	// schedule. A schedule must hold at least one segment.
	ErrNoSegments = errors.New("schedule has no segments")

	// ErrHourOutOfRange is returned for hours outside 0..23.
	ErrHourOutOfRange = errors.New("hour out of range")
)

// Segment is one entry of a time-of-day schedule. Value is the basal rate
// (U/hr), carb ratio (g/U) or correction factor (mg/dL per U) depending on
// which schedule holds it.
type Segment struct {
	ID string
	Interval
	Value float64
}

// NewSegment builds a segment from "HH:MM" bounds.
func NewSegment(id, start, end string, value float64) (Segment, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Segment{}, fmt.Errorf("segment %s start: %w", id, err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Segment{}, fmt.Errorf("segment %s end: %w", id, err)
	}
	return Segment{ID: id, Interval: NewInterval(s, e), Value: value}, nil
}

// MustSegment is NewSegment for literals known to be valid.
func MustSegment(id, start, end string, value float64) Segment {
	seg, err := NewSegment(id, start, end, value)
	if err != nil {
		panic(err)
	}
	return seg
}

type segmentJSON struct {
	ID    string    `json:"id"`
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
	Value float64   `json:"value"`
}

// MarshalJSON encodes the segment with "HH:MM" bounds.
func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal(segmentJSON{ID: s.ID, Start: s.Start, End: s.End, Value: s.Value})
}

// UnmarshalJSON decodes a segment and recomputes its wrap flag.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw segmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Segment{ID: raw.ID, Interval: NewInterval(raw.Start, raw.End), Value: raw.Value}
	return nil
}

// Resolve returns the segment governing the given hour: the first segment,
// in list order, whose interval contains hour:00. When no segment matches
// (a schedule with gaps) the first segment is returned.
func Resolve(segments []Segment, hour int) (Segment, error) {
	if len(segments) == 0 {
		return Segment{}, ErrNoSegments
	}
	if hour < 0 || hour > 23 {
		return Segment{}, fmt.Errorf("%w: %d", ErrHourOutOfRange, hour)
	}
	t := AtHour(hour)
	for _, seg := range segments {
		if seg.Contains(t) {
			return seg, nil
		}
	}
	return segments[0], nil
}

// Coverage counts, for each hour of the day, how many segments contain it.
// A well-formed schedule has exactly one segment per hour.
func Coverage(segments []Segment) [24]int {
	var counts [24]int
	for h := 0; h < 24; h++ {
		for _, seg := range segments {
			if seg.Contains(AtHour(h)) {
				counts[h]++
			}
		}
	}
	return counts
}

func cloneSegments(segments []Segment) []Segment {
	if segments == nil {
		return nil
	}
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}
