package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/output"
)

var applyCmd = &cobra.Command{
	Use:   "apply [id]",
	Short: "Accept the pending recommendation and update settings",
	Long: `Apply the pending recommendation to the current settings and record it
in the history. Pass the recommendation ID to make sure the change you
reviewed is the one being applied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss [id]",
	Short: "Dismiss the pending recommendation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDismiss,
}

func init() {
	rootCmd.AddCommand(applyCmd, dismissCmd)
}

func optionalID(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return ""
}

func runApply(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.svc.Accept(optionalID(args))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, map[string]any{
			"recommendation": res.Recommendation,
			"changed":        res.Changed,
			"settings":       res.Settings,
		})
	}

	rec := res.Recommendation
	if !res.Changed {
		fmt.Fprintf(out, " %s No segment spans %s any more; settings left unchanged.\n",
			output.StyleWarning.Render("!"), rec.TimeRange.Label)
		return nil
	}
	fmt.Fprintf(out, " %s Applied: %s\n", output.StyleSuccess.Render("✓"), rec.Title)
	fmt.Fprintf(out, "   %s  %s → %s\n", rec.TimeRange.Label,
		formatValue(rec.Type, rec.CurrentValue), formatValue(rec.Type, rec.SuggestedValue))
	fmt.Fprintln(out)
	fmt.Fprintln(out, output.StyleMuted.Render(" Update your pump to match, then import a new report after a few days."))
	return nil
}

func runDismiss(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	rec, err := e.svc.Dismiss(optionalID(args))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, rec)
	}
	fmt.Fprintf(out, " Dismissed: %s\n", rec.Title)
	return nil
}
