package analyzer

import (
	"sort"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

// MaxProblemPeriods caps how many problem periods are reported.
const MaxProblemPeriods = 4

// Block is a named span of hours [Start, End).
type Block struct {
	Name  string
	Start int
	End   int
}

// Blocks are the overlapping spans of the day examined for problems.
var Blocks = []Block{
	{Name: "Overnight", Start: 0, End: 6},
	{Name: "Dawn/Morning", Start: 3, End: 8},
	{Name: "Post-breakfast", Start: 7, End: 11},
	{Name: "Midday", Start: 11, End: 14},
	{Name: "Afternoon", Start: 14, End: 18},
	{Name: "Post-dinner", Start: 18, End: 22},
	{Name: "Evening", Start: 21, End: 24},
}

var severityRank = map[Severity]int{
	SeveritySevere:   0,
	SeverityModerate: 1,
	SeverityMild:     2,
}

var typeRank = map[ProblemType]int{
	ProblemLow:      0,
	ProblemVariable: 1,
	ProblemHigh:     2,
}

// IdentifyProblemPeriods classifies each block of the day and returns the
// worst few, ordered by severity and then by type (lows first).
func IdentifyProblemPeriods(summary *cgm.Summary, goals therapy.Goals) []ProblemPeriod {
	problems := []ProblemPeriod{}
	if summary == nil {
		return problems
	}

	for _, b := range Blocks {
		w := cgm.Aggregate(summary.HourlyPatterns, cgm.HalfOpen(b.Start, b.End))
		if w.Empty() {
			continue
		}
		if p, ok := classify(b, w, goals); ok {
			problems = append(problems, p)
		}
	}

	RankProblems(problems)
	if len(problems) > MaxProblemPeriods {
		problems = problems[:MaxProblemPeriods]
	}
	return problems
}

// classify applies the low, high, variable checks in that order; a block
// receives at most one classification.
func classify(b Block, w cgm.Window, goals therapy.Goals) (ProblemPeriod, bool) {
	p := ProblemPeriod{
		Block:          b.Name,
		StartHour:      b.Start,
		EndHour:        b.End,
		AverageGlucose: w.AverageGlucose,
		TimeInRange:    w.TimeInRange,
	}

	switch {
	case w.AverageGlucose < 80:
		p.Type = ProblemLow
		p.Severity = SeverityModerate
		if w.AverageGlucose < 70 {
			p.Severity = SeveritySevere
		}
		p.Description = b.Name + ": Glucose running low."
	case w.AverageGlucose > goals.TargetRangeHigh+20:
		p.Type = ProblemHigh
		switch {
		case w.AverageGlucose > 220:
			p.Severity = SeveritySevere
		case w.AverageGlucose > 200:
			p.Severity = SeverityModerate
		default:
			p.Severity = SeverityMild
		}
		p.Description = b.Name + ": Glucose consistently elevated."
	case w.TimeInRange < 50:
		p.Type = ProblemVariable
		p.Severity = SeverityMild
		if w.TimeInRange < 40 {
			p.Severity = SeverityModerate
		}
		p.Description = b.Name + ": High variability."
	default:
		return ProblemPeriod{}, false
	}
	return p, true
}

// RankProblems sorts in place by severity, then type. Equal entries keep
// their block order.
func RankProblems(problems []ProblemPeriod) {
	sort.SliceStable(problems, func(i, j int) bool {
		si, sj := severityRank[problems[i].Severity], severityRank[problems[j].Severity]
		if si != sj {
			return si < sj
		}
		return typeRank[problems[i].Type] < typeRank[problems[j].Type]
	})
}
