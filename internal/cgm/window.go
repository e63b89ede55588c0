package cgm

// Window is the unweighted mean of a set of hourly patterns.
type Window struct {
	Hours          int
	AverageGlucose float64
	TimeInRange    float64
}

// Empty reports whether no hours contributed.
func (w Window) Empty() bool { return w.Hours == 0 }

// Aggregate averages the patterns selected by keep.
func Aggregate(patterns []HourlyPattern, keep func(hour int) bool) Window {
	var w Window
	var glucose, tir float64
	for _, p := range patterns {
		if !keep(p.Hour) {
			continue
		}
		glucose += p.AverageGlucose
		tir += p.TimeInRange
		w.Hours++
	}
	if w.Hours > 0 {
		w.AverageGlucose = glucose / float64(w.Hours)
		w.TimeInRange = tir / float64(w.Hours)
	}
	return w
}

// HalfOpen selects hours in [from, to).
func HalfOpen(from, to int) func(int) bool {
	return func(h int) bool { return h >= from && h < to }
}

// Inclusive selects hours in [from, to].
func Inclusive(from, to int) func(int) bool {
	return func(h int) bool { return h >= from && h <= to }
}

// Overnight selects hours from 23:00 through 05:59, wrapping midnight.
func Overnight(h int) bool { return h >= 23 || h < 6 }

// Filter returns the patterns selected by keep, in input order.
func Filter(patterns []HourlyPattern, keep func(p HourlyPattern) bool) []HourlyPattern {
	var out []HourlyPattern
	for _, p := range patterns {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
