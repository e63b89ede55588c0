package therapy

import "fmt"

// Label renders a clock time in 12-hour form: "12am", "6:30am", "1pm".
func (c ClockTime) Label() string {
	h, m := c.Hour(), c.Minute()
	period := "am"
	if h >= 12 {
		period = "pm"
	}
	switch {
	case h == 0:
		h = 12
	case h > 12:
		h -= 12
	}
	if m > 0 {
		return fmt.Sprintf("%d:%02d%s", h, m, period)
	}
	return fmt.Sprintf("%d%s", h, period)
}

// RangeLabel renders an interval for humans, e.g. "12am - 6am".
func RangeLabel(start, end ClockTime) string {
	return start.Label() + " - " + end.Label()
}

// Label renders the interval for humans.
func (iv Interval) Label() string {
	return RangeLabel(iv.Start, iv.End)
}
