package suggest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

// Adjustment factors and safety floors.
const (
	decrease = 0.95
	increase = 1.05

	minCarbRatio        = 3
	minCorrectionFactor = 15
)

type meal struct {
	name     string
	from, to int // inclusive hours
	icrIndex int
}

// meals are the post-meal windows. GeneralHigh leaves these hours to
// MealSpike.
var meals = []meal{
	{name: "breakfast", from: 7, to: 10, icrIndex: 0},
	{name: "lunch", from: 12, to: 14, icrIndex: 1},
	{name: "dinner", from: 18, to: 21, icrIndex: 2},
}

func inMealWindow(hour int) bool {
	for _, m := range meals {
		if hour >= m.from && hour <= m.to {
			return true
		}
	}
	return false
}

// basalChange builds a basal recommendation for seg scaled by factor.
func basalChange(seg therapy.Segment, factor float64, priority Priority) *Recommendation {
	change := 5.0
	if factor < 1 {
		change = -5
	}
	return &Recommendation{
		Type:     TypeBasal,
		Priority: priority,
		TimeRange: TimeRange{
			Start: seg.Start,
			End:   seg.End,
			Label: seg.Label(),
		},
		CurrentValue:   seg.Value,
		SuggestedValue: roundTo(seg.Value*factor, 2),
		ChangePercent:  change,
	}
}

// LowGlucose proposes a 5% basal decrease for the segment covering the
// lowest hour when time below range exceeds the goal.
func LowGlucose(ctx *AnalysisContext) *Recommendation {
	s := ctx.Summary
	totalLow := s.TimeInRange.TotalLow()
	if totalLow <= ctx.Goals.MaxLowPercentage {
		return nil
	}

	lows := cgm.Filter(s.HourlyPatterns, func(p cgm.HourlyPattern) bool {
		return p.AverageGlucose < 80 || p.Percentile25 < 70
	})
	if len(lows) == 0 {
		return nil
	}
	sort.SliceStable(lows, func(i, j int) bool {
		return lows[i].AverageGlucose < lows[j].AverageGlucose
	})
	worst := lows[0]

	seg, err := therapy.Resolve(ctx.Settings.BasalSegments, worst.Hour)
	if err != nil {
		return nil
	}

	rec := basalChange(seg, decrease, PriorityHigh)
	rec.Title = "Reduce Basal to Prevent Lows"
	rec.Rationale = fmt.Sprintf(
		"You're experiencing %s%% time below range (goal: <%s%%). "+
			"The %s period shows glucose averaging around %.0f mg/dL. "+
			"A small 5%% basal reduction from %s to %s U/hr may help prevent lows while keeping you safe.",
		num(totalLow), num(ctx.Goals.MaxLowPercentage),
		rec.TimeRange.Label, math.Round(worst.AverageGlucose),
		num(rec.CurrentValue), num(rec.SuggestedValue),
	)
	rec.SupportingData = SupportingData{
		AverageGlucose: rounded(worst.AverageGlucose),
		TimeInRange:    rounded(worst.TimeInRange),
		LowEvents:      count(s.Events.LowEvents),
	}
	return rec
}

// OvernightDawn proposes a 5% basal increase for a dawn rise (early
// morning more than 30 mg/dL above late night and above range) or, failing
// that, for overnight highs with poor time in range.
func OvernightDawn(ctx *AnalysisContext) *Recommendation {
	patterns := ctx.Summary.HourlyPatterns
	high := ctx.Goals.TargetRangeHigh

	overnight := cgm.Aggregate(patterns, cgm.Overnight)
	early := cgm.Aggregate(patterns, cgm.HalfOpen(3, 7))
	late := cgm.Aggregate(patterns, cgm.HalfOpen(0, 3))

	if !early.Empty() && !late.Empty() {
		rise := early.AverageGlucose - late.AverageGlucose
		if rise > 30 && early.AverageGlucose > high {
			seg, err := therapy.Resolve(ctx.Settings.BasalSegments, 4)
			if err != nil {
				return nil
			}
			rec := basalChange(seg, increase, PriorityMedium)
			rec.Title = "Address Dawn Phenomenon"
			rec.Rationale = fmt.Sprintf(
				"Your glucose rises about %.0f mg/dL between 12am-3am and 3am-7am (dawn phenomenon). "+
					"Early morning average is %.0f mg/dL. "+
					"A 5%% basal increase during this period from %s to %s U/hr may help flatten this rise.",
				math.Round(rise), math.Round(early.AverageGlucose),
				num(rec.CurrentValue), num(rec.SuggestedValue),
			)
			rec.SupportingData = SupportingData{
				AverageGlucose: rounded(early.AverageGlucose),
				TimeInRange:    rounded(overnight.TimeInRange),
			}
			return rec
		}
	}

	if overnight.Empty() || overnight.AverageGlucose <= high || overnight.TimeInRange >= 60 {
		return nil
	}
	seg, err := therapy.Resolve(ctx.Settings.BasalSegments, 2)
	if err != nil {
		return nil
	}
	rec := basalChange(seg, increase, PriorityMedium)
	rec.Title = "Reduce Overnight Highs"
	rec.Rationale = fmt.Sprintf(
		"Overnight glucose is averaging %.0f mg/dL with only %.0f%% time in range. "+
			"A modest 5%% increase in overnight basal from %s to %s U/hr may help bring these levels down.",
		math.Round(overnight.AverageGlucose), math.Round(overnight.TimeInRange),
		num(rec.CurrentValue), num(rec.SuggestedValue),
	)
	rec.SupportingData = SupportingData{
		AverageGlucose: rounded(overnight.AverageGlucose),
		TimeInRange:    rounded(overnight.TimeInRange),
	}
	return rec
}

// MealSpike proposes a 5% stronger carb ratio for the first meal window
// that runs more than 30 mg/dL above range with under 50% in range. A ratio
// that would drop below 3 is rejected and the next meal is tried.
func MealSpike(ctx *AnalysisContext) *Recommendation {
	icr := ctx.Settings.ICRSegments
	if len(icr) == 0 {
		return nil
	}

	for _, m := range meals {
		w := cgm.Aggregate(ctx.Summary.HourlyPatterns, cgm.Inclusive(m.from, m.to))
		if w.Empty() {
			continue
		}
		if w.AverageGlucose <= ctx.Goals.TargetRangeHigh+30 || w.TimeInRange >= 50 {
			continue
		}

		seg := icr[min(m.icrIndex, len(icr)-1)]
		suggested := roundTo(seg.Value*decrease, 1)
		if suggested < minCarbRatio {
			continue
		}

		name := strings.ToUpper(m.name[:1]) + m.name[1:]
		return &Recommendation{
			Type:     TypeICR,
			Priority: PriorityMedium,
			TimeRange: TimeRange{
				Start: seg.Start,
				End:   seg.End,
				Label: name + " time",
			},
			CurrentValue:   seg.Value,
			SuggestedValue: suggested,
			ChangePercent:  -5,
			Title:          "Adjust " + name + " Carb Ratio",
			Rationale: fmt.Sprintf(
				"Post-%s glucose is averaging %.0f mg/dL with only %.0f%% in range. "+
					"A slightly stronger carb ratio (1:%s → 1:%s) may help cover %s carbs more effectively.",
				m.name, math.Round(w.AverageGlucose), math.Round(w.TimeInRange),
				num(seg.Value), num(suggested), m.name,
			),
			SupportingData: SupportingData{
				AverageGlucose: rounded(w.AverageGlucose),
				TimeInRange:    rounded(w.TimeInRange),
				HighEvents:     count(ctx.Summary.Events.HighEvents),
			},
		}
	}
	return nil
}

// GeneralHigh proposes a 5% basal increase for the highest hour outside the
// meal windows, when the TIR goal is missed and at least 25% of readings
// are above range.
func GeneralHigh(ctx *AnalysisContext) *Recommendation {
	s := ctx.Summary
	if s.TimeInRange.InRange >= ctx.Goals.TargetTIR {
		return nil
	}
	totalHigh := s.TimeInRange.TotalHigh()
	if totalHigh < 25 {
		return nil
	}

	threshold := ctx.Goals.TargetRangeHigh + 20
	highs := cgm.Filter(s.HourlyPatterns, func(p cgm.HourlyPattern) bool {
		return p.AverageGlucose > threshold && !inMealWindow(p.Hour)
	})
	if len(highs) == 0 {
		return nil
	}
	sort.SliceStable(highs, func(i, j int) bool {
		return highs[i].AverageGlucose > highs[j].AverageGlucose
	})
	worst := highs[0]

	seg, err := therapy.Resolve(ctx.Settings.BasalSegments, worst.Hour)
	if err != nil {
		return nil
	}

	rec := basalChange(seg, increase, PriorityLow)
	rec.Title = "Reduce High Glucose Patterns"
	rec.Rationale = fmt.Sprintf(
		"You're spending %s%% time above range. "+
			"The %s period averages %.0f mg/dL. "+
			"A 5%% basal increase from %s to %s U/hr may help improve time in range.",
		num(totalHigh), rec.TimeRange.Label, math.Round(worst.AverageGlucose),
		num(rec.CurrentValue), num(rec.SuggestedValue),
	)
	rec.SupportingData = SupportingData{
		AverageGlucose: rounded(worst.AverageGlucose),
		TimeInRange:    rounded(worst.TimeInRange),
		HighEvents:     count(s.Events.HighEvents),
	}
	return rec
}

// CorrectionFactor proposes a 5% stronger first ISF segment when glucose is
// both highly variable (CV above 36%) and above range on average. A factor
// that would drop below 15 is rejected.
func CorrectionFactor(ctx *AnalysisContext) *Recommendation {
	stats := ctx.Summary.Statistics
	if stats.CoefficientOfVariation <= 36 || stats.AverageGlucose <= ctx.Goals.TargetRangeHigh {
		return nil
	}
	if len(ctx.Settings.ISFSegments) == 0 {
		return nil
	}
	seg := ctx.Settings.ISFSegments[0]

	suggested := math.Round(seg.Value * decrease)
	if suggested < minCorrectionFactor {
		return nil
	}

	return &Recommendation{
		Type:     TypeISF,
		Priority: PriorityLow,
		TimeRange: TimeRange{
			Start: seg.Start,
			End:   seg.End,
			Label: seg.Label(),
		},
		CurrentValue:   seg.Value,
		SuggestedValue: suggested,
		ChangePercent:  -5,
		Title:          "Strengthen Correction Factor",
		Rationale: fmt.Sprintf(
			"Your glucose variability is high (CV: %.0f%%) and corrections may not be bringing glucose down enough. "+
				"Adjusting ISF from %s to %s mg/dL per unit may make corrections more effective.",
			math.Round(stats.CoefficientOfVariation), num(seg.Value), num(suggested),
		),
		SupportingData: SupportingData{
			AverageGlucose: rounded(stats.AverageGlucose),
		},
	}
}
