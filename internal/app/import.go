package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/output"
)

var importCmd = &cobra.Command{
	Use:   "import <summary.json>",
	Short: "Import a CGM summary and generate a recommendation",
	Long: `Validate and store an aggregated CGM summary. When no recommendation is
waiting for a decision, one is generated from the new report.

Examples:
  basalcoach import ~/Downloads/clarity-14d.json
  basalcoach import report.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	summary, err := cgm.Load(args[0])
	if err != nil {
		return err
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.svc.Import(summary)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, res)
	}

	fmt.Fprintf(out, " %s Imported %s (%d days)\n",
		output.StyleSuccess.Render("✓"), res.ReportID, summary.ReportPeriod.Days)
	fmt.Fprintf(out, "   %s\n", output.TIRBar(summary.TimeInRange, 40))
	fmt.Fprintln(out)

	switch {
	case res.Recommendation != nil:
		fmt.Fprintln(out, output.Section("Recommendation"))
		fmt.Fprintln(out)
		renderRecommendation(out, *res.Recommendation)
		fmt.Fprintln(out)
		fmt.Fprintln(out, output.StyleMuted.Render(" basalcoach apply   or   basalcoach dismiss"))
	case res.Pending:
		fmt.Fprintln(out, " A recommendation is still waiting for a decision. Run 'basalcoach recommend' to see it.")
	default:
		fmt.Fprintln(out, " No changes suggested for this report.")
	}
	return nil
}
