package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/basalcoach/basalcoach/internal/analyzer"
	"github.com/basalcoach/basalcoach/internal/coach"
	"github.com/basalcoach/basalcoach/internal/output"
	"github.com/basalcoach/basalcoach/internal/suggest"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

func priorityLabel(p suggest.Priority) string {
	label := "[" + strings.ToUpper(string(p)) + "]"
	return output.SeverityStyle(string(p)).Render(label)
}

// formatValue renders a setting value the way the pump shows it.
func formatValue(t suggest.Type, v float64) string {
	switch t {
	case suggest.TypeBasal:
		return fmt.Sprintf("%g U/hr", v)
	case suggest.TypeICR:
		return fmt.Sprintf("1:%g", v)
	case suggest.TypeISF:
		return fmt.Sprintf("1:%g mg/dL", v)
	}
	return fmt.Sprintf("%g", v)
}

func renderRecommendation(w io.Writer, rec suggest.Recommendation) {
	fmt.Fprintf(w, " %s %s\n", priorityLabel(rec.Priority), output.StyleBold.Render(rec.Title))
	fmt.Fprintf(w, "    %s  %s %s %s  (%+.0f%%)\n",
		output.StyleMuted.Render(rec.TimeRange.Label),
		formatValue(rec.Type, rec.CurrentValue),
		output.StyleMuted.Render("→"),
		output.StyleBold.Render(formatValue(rec.Type, rec.SuggestedValue)),
		rec.ChangePercent)
	fmt.Fprintf(w, "    %s\n", rec.Rationale)

	sd := rec.SupportingData
	var facts []string
	if sd.AverageGlucose != nil {
		facts = append(facts, fmt.Sprintf("avg %d mg/dL", *sd.AverageGlucose))
	}
	if sd.TimeInRange != nil {
		facts = append(facts, fmt.Sprintf("%d%% in range", *sd.TimeInRange))
	}
	if sd.LowEvents != nil {
		facts = append(facts, fmt.Sprintf("%d low events", *sd.LowEvents))
	}
	if sd.HighEvents != nil {
		facts = append(facts, fmt.Sprintf("%d high events", *sd.HighEvents))
	}
	if len(facts) > 0 {
		fmt.Fprintf(w, "    %s\n", output.StyleMuted.Render(strings.Join(facts, " · ")))
	}
	fmt.Fprintf(w, "    %s\n", output.StyleMuted.Render("id "+rec.ID))
}

func renderFindings(w io.Writer, findings []coach.Finding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, " "+output.StyleSuccess.Render("No problem periods. Glucose patterns look steady."))
		return
	}
	for i, f := range findings {
		sev := output.SeverityStyle(string(f.Severity)).Render(strings.ToUpper(string(f.Severity)))
		fmt.Fprintf(w, " #%d %s %s  %s\n", i+1, sev,
			output.StyleBold.Render(f.Guidance.Headline),
			output.StyleMuted.Render(analyzer.FormatHourRange(f.StartHour, f.EndHour)))
		fmt.Fprintf(w, "    %s\n", f.Guidance.Explanation)
		fmt.Fprintf(w, "    Try: %s\n", f.Guidance.Adjustment)
		if f.Guidance.CurrentSetting != "" {
			fmt.Fprintf(w, "    Current %s: %s\n", f.Guidance.Setting, f.Guidance.CurrentSetting)
		}
		fmt.Fprintln(w)
	}
}

func renderSchedule(w io.Writer, k therapy.Kind, segs []therapy.Segment) {
	tbl := output.NewTable("Time", "Span", "Value")
	for _, seg := range segs {
		tbl.AddRow(seg.Label(), seg.Interval.String(), fmt.Sprintf("%g %s", seg.Value, k.Unit()))
	}
	fmt.Fprint(w, tbl.Render())
}

func renderSettings(w io.Writer, s therapy.Settings) {
	titles := map[therapy.Kind]string{
		therapy.KindBasal: "Basal Rates",
		therapy.KindICR:   "Carb Ratios",
		therapy.KindISF:   "Correction Factors",
	}
	for _, k := range []therapy.Kind{therapy.KindBasal, therapy.KindICR, therapy.KindISF} {
		fmt.Fprintln(w, output.Section(titles[k]))
		fmt.Fprintln(w)
		renderSchedule(w, k, s.Schedule(k))
	}
	fmt.Fprintln(w, output.Section("Targets"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s %g-%g mg/dL\n", output.StyleLabel.Render("Target range"), s.TargetLow, s.TargetHigh)
	fmt.Fprintf(w, " %s %g mg/dL\n", output.StyleLabel.Render("Correction target"), s.CorrectionTarget)
	fmt.Fprintf(w, " %s %g hr\n", output.StyleLabel.Render("Active insulin time"), s.ActiveInsulinTime)
}
