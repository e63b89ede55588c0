package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/coach"
	"github.com/basalcoach/basalcoach/internal/output"
	"github.com/basalcoach/basalcoach/internal/store"
)

var analyzeDemo bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [summary.json]",
	Short: "Find problem periods in a CGM report",
	Long: `Identify the blocks of the day where glucose runs low, high or erratic,
and explain which setting most likely drives each one.

With no file the latest imported report is analyzed. The file is analyzed
without being imported.

Examples:
  basalcoach analyze
  basalcoach analyze report.json
  basalcoach analyze --demo`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDemo, "demo", false, "Analyze a built-in sample report")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	var summary *cgm.Summary
	switch {
	case analyzeDemo:
		summary = cgm.DemoSummary(time.Now())
	case len(args) == 1:
		summary, err = cgm.Load(args[0])
	default:
		summary, err = e.svc.LatestReport()
		if errors.Is(err, coach.ErrNoReport) {
			return fmt.Errorf("%w: import one first or pass --demo", err)
		}
	}
	if err != nil {
		return err
	}

	findings, err := e.svc.Analyze(summary)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		if findings == nil {
			findings = []coach.Finding{}
		}
		return writeJSON(out, map[string]any{"reportId": summary.ID, "findings": findings})
	}

	fmt.Fprintln(out, output.Section("Glucose Overview"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, " %s %s\n", output.StyleLabel.Render("Report"), summary.ID)
	fmt.Fprintf(out, " %s %s\n", output.StyleLabel.Render("Bands"), output.TIRBar(summary.TimeInRange, 40))
	fmt.Fprintf(out, " %s %s\n", output.StyleLabel.Render("In range"),
		output.PercentBar(summary.TimeInRange.InRange, e.cfg.Goals.TargetTIR, 20))
	fmt.Fprintf(out, " %s %.0f mg/dL  CV %.1f%%\n", output.StyleLabel.Render("Average"),
		summary.Statistics.AverageGlucose, summary.Statistics.CoefficientOfVariation)

	if prev := previousReport(e.svc, summary.ID); prev != nil {
		fmt.Fprintf(out, " %s TIR %s  avg %s  (vs %s)\n", output.StyleLabel.Render("Trend"),
			output.TrendArrowPercent(summary.TimeInRange.InRange-prev.InRange, true),
			output.TrendArrow(summary.Statistics.AverageGlucose-prev.AverageGlucose, false),
			prev.ID)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, output.Section("Problem Periods"))
	fmt.Fprintln(out)
	renderFindings(out, findings)
	return nil
}

// previousReport returns the stored report imported before id, or the most
// recent one when id is not stored.
func previousReport(svc *coach.Service, id string) *store.ReportInfo {
	reports, err := svc.Reports(2)
	if err != nil {
		return nil
	}
	for i, r := range reports {
		if r.ID != id {
			return &reports[i]
		}
	}
	return nil
}
