package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/basalcoach/basalcoach/internal/cgm"
)

// PercentBar renders a progress bar for a 0-100 percentage against a goal.
// Example: "████████░░ 80%"
func PercentBar(pct, goal float64, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := int((pct / 100.0) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	var style func(string) string
	switch {
	case pct >= goal:
		style = func(s string) string { return StyleSuccess.Render(s) }
	case pct >= goal-20:
		style = func(s string) string { return StyleWarning.Render(s) }
	default:
		style = func(s string) string { return StyleError.Render(s) }
	}

	return fmt.Sprintf("%s %s", style(bar), StyleMuted.Render(fmt.Sprintf("%.0f%%", pct)))
}

// TIRBar renders the five glucose bands as one stacked bar, lowest band on
// the left. A non-zero band gets at least one cell; rounding slack goes to
// the widest band.
func TIRBar(tir cgm.TimeInRange, width int) string {
	if width <= 0 {
		width = 40
	}
	total := tir.Total()
	if total <= 0 {
		return StyleMuted.Render(strings.Repeat("░", width))
	}

	pcts := []float64{tir.VeryLow, tir.Low, tir.InRange, tir.High, tir.VeryHigh}
	chars := []string{"▓", "▒", "█", "▒", "▓"}
	styles := []lipgloss.Style{StyleSevere, StyleError, StyleSuccess, StyleWarning, StyleWarning}

	cells := make([]int, len(pcts))
	used, widest := 0, 0
	for i, p := range pcts {
		cells[i] = int(p / total * float64(width))
		if cells[i] == 0 && p > 0 {
			cells[i] = 1
		}
		used += cells[i]
		if p > pcts[widest] {
			widest = i
		}
	}
	cells[widest] = max(0, cells[widest]+width-used)

	var sb strings.Builder
	for i, n := range cells {
		sb.WriteString(styles[i].Render(strings.Repeat(chars[i], n)))
	}
	return sb.String()
}

// TrendArrow returns a styled trend indicator for a delta value.
// Positive delta shows an up arrow, negative shows down, zero shows a dash.
// The improved parameter indicates whether higher values are better.
func TrendArrow(delta float64, higherIsBetter bool) string {
	if delta == 0 {
		return StyleMuted.Render("─")
	}

	isPositive := delta > 0
	isImproved := (isPositive && higherIsBetter) || (!isPositive && !higherIsBetter)

	var arrow string
	if isPositive {
		arrow = fmt.Sprintf("▲ +%.1f", delta)
	} else {
		arrow = fmt.Sprintf("▼ %.1f", delta)
	}

	if isImproved {
		return StyleSuccess.Render(arrow)
	}
	return StyleError.Render(arrow)
}

// TrendArrowPercent returns a styled trend indicator for a percentage delta.
func TrendArrowPercent(delta float64, higherIsBetter bool) string {
	if delta == 0 {
		return StyleMuted.Render("─")
	}

	isPositive := delta > 0
	isImproved := (isPositive && higherIsBetter) || (!isPositive && !higherIsBetter)

	var arrow string
	if isPositive {
		arrow = fmt.Sprintf("▲ +%.0f%%", delta)
	} else {
		arrow = fmt.Sprintf("▼ %.0f%%", delta)
	}

	if isImproved {
		return StyleSuccess.Render(arrow)
	}
	return StyleError.Render(arrow)
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
