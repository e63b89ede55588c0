package analyzer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/basalcoach/basalcoach/internal/therapy"
)

// Explain maps a problem period to plain-language guidance, naming the
// setting most likely involved and its current value at the period start.
func Explain(p ProblemPeriod, settings therapy.Settings) Guidance {
	label := TimeLabel(p.StartHour, p.EndHour)
	avg := math.Round(p.AverageGlucose)
	start := p.StartHour

	basal := currentSetting(settings.BasalSegments, start, func(v float64) string { return num(v) + " U/hr" })
	icr := currentSetting(settings.ICRSegments, start, func(v float64) string { return "1:" + num(v) })
	isf := currentSetting(settings.ISFSegments, start, func(v float64) string { return num(v) + " mg/dL per unit" })

	switch p.Type {
	case ProblemLow:
		switch {
		case start < 6:
			return Guidance{
				Headline:       "Overnight lows are occurring",
				Explanation:    fmt.Sprintf("Your glucose is dropping too low during the night. This is a safety concern that should be addressed first. The average of %.0f mg/dL suggests your overnight insulin delivery may be too aggressive.", avg),
				Setting:        HintBasal,
				Adjustment:     fmt.Sprintf("Reduce overnight basal rate by 5-10%% (%s)", FormatHourRange(p.StartHour, p.EndHour)),
				CurrentSetting: basal,
			}
		case start < 11:
			return Guidance{
				Headline:       "Morning lows after breakfast bolus",
				Explanation:    "You're experiencing low glucose in the morning hours. This could be from too aggressive breakfast carb ratios or morning basal rates.",
				Setting:        HintICR,
				Adjustment:     "Consider weakening breakfast carb ratio (higher number = less insulin per carb)",
				CurrentSetting: icr,
			}
		case start < 15:
			return Guidance{
				Headline:       "Midday lows occurring",
				Explanation:    "Glucose is dropping low around lunchtime. This may be from lunch boluses being too large or afternoon basal being too high.",
				Setting:        HintICR,
				Adjustment:     "Consider weakening lunch carb ratio or reducing early afternoon basal",
				CurrentSetting: icr,
			}
		default:
			return Guidance{
				Headline:       label + " lows need attention",
				Explanation:    fmt.Sprintf("Your glucose is running low during this period with an average of %.0f mg/dL. Safety is the priority - reducing lows comes before fixing highs.", avg),
				Setting:        HintBasal,
				Adjustment:     "Reduce basal rate for this time period by 5-10%",
				CurrentSetting: basal,
			}
		}

	case ProblemHigh:
		ratio := 10.0
		if seg, err := therapy.Resolve(settings.ICRSegments, start); err == nil && seg.Value != 0 {
			ratio = seg.Value
		}
		switch {
		case start >= 3 && start < 7:
			return Guidance{
				Headline:       "Dawn phenomenon causing morning highs",
				Explanation:    "Your glucose rises significantly in the early morning hours (dawn phenomenon). This is caused by natural hormone changes and is very common. The body releases hormones that make you more insulin resistant.",
				Setting:        HintBasal,
				Adjustment:     "Increase basal rate starting around 3-4am by 5-10% to counteract the dawn rise",
				CurrentSetting: basal,
			}
		case start >= 7 && start < 11:
			return Guidance{
				Headline:       "Post-breakfast spikes are too high",
				Explanation:    fmt.Sprintf("Glucose is spiking after breakfast with an average of %.0f mg/dL. Breakfast is typically the hardest meal to cover due to morning insulin resistance.", avg),
				Setting:        HintICR,
				Adjustment:     "Strengthen breakfast carb ratio (lower number = more insulin per carb). Try 1:" + num(math.Max(4, ratio-1)),
				CurrentSetting: icr,
			}
		case start >= 11 && start < 15:
			return Guidance{
				Headline:       "Post-lunch glucose running high",
				Explanation:    fmt.Sprintf("Glucose elevates after lunch averaging %.0f mg/dL. Your lunch carb ratio may need strengthening.", avg),
				Setting:        HintICR,
				Adjustment:     "Strengthen lunch carb ratio (lower number). Consider 1:" + num(math.Max(5, ratio-1)),
				CurrentSetting: icr,
			}
		case start >= 17 && start < 22:
			return Guidance{
				Headline:       "Dinner and evening glucose too high",
				Explanation:    fmt.Sprintf("Evening glucose is elevated with an average of %.0f mg/dL. This could be from dinner bolusing or evening basal rates.", avg),
				Setting:        HintICR,
				Adjustment:     "Strengthen dinner carb ratio or increase evening basal rate by 5%",
				CurrentSetting: icr,
			}
		case start >= 22 || start < 3:
			return Guidance{
				Headline:       "Overnight glucose staying elevated",
				Explanation:    fmt.Sprintf("Glucose remains high through the night averaging %.0f mg/dL. This often indicates overnight basal is too low.", avg),
				Setting:        HintBasal,
				Adjustment:     "Increase overnight basal rate by 5-10%",
				CurrentSetting: basal,
			}
		default:
			return Guidance{
				Headline:       label + " glucose running high",
				Explanation:    fmt.Sprintf("Your glucose averages %.0f mg/dL during this period with only %.0f%% in range.", avg, math.Round(p.TimeInRange)),
				Setting:        HintBasal,
				Adjustment:     "Consider increasing basal rate for this period by 5%",
				CurrentSetting: basal,
			}
		}
	}

	return Guidance{
		Headline:       label + " showing unpredictable swings",
		Explanation:    "Your glucose is swinging between highs and lows during this period. High variability can be harder to manage than consistently high or low patterns. This may indicate correction doses are over- or under-shooting.",
		Setting:        HintISF,
		Adjustment:     "Review correction factor (ISF) - you may need to adjust how aggressively corrections work",
		CurrentSetting: isf,
	}
}

func currentSetting(segments []therapy.Segment, hour int, format func(float64) string) string {
	seg, err := therapy.Resolve(segments, hour)
	if err != nil {
		return ""
	}
	return format(seg.Value)
}

// num formats a setting value without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatHourRange renders a block span, e.g. "12am – 6am".
func FormatHourRange(startHour, endHour int) string {
	return formatHour(startHour) + " – " + formatHour(endHour)
}

func formatHour(hour int) string {
	switch {
	case hour == 0 || hour == 24:
		return "12am"
	case hour == 12:
		return "12pm"
	case hour < 12:
		return fmt.Sprintf("%dam", hour)
	}
	return fmt.Sprintf("%dpm", hour-12)
}

// TimeLabel names a span of hours for headlines.
func TimeLabel(startHour, endHour int) string {
	switch {
	case startHour >= 0 && endHour <= 6:
		return "Overnight"
	case startHour >= 3 && endHour <= 8:
		return "Early morning"
	case startHour >= 6 && endHour <= 11:
		return "Morning"
	case startHour >= 11 && endHour <= 14:
		return "Midday"
	case startHour >= 14 && endHour <= 18:
		return "Afternoon"
	case startHour >= 17 && endHour <= 22:
		return "Evening"
	case startHour >= 21 || endHour <= 3:
		return "Night"
	}
	return "This period"
}
