package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/output"
	"github.com/basalcoach/basalcoach/internal/suggest"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List applied recommendations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of entries to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", historyLimit)
	}
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	recs, err := e.svc.History(historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		if recs == nil {
			recs = []suggest.Recommendation{}
		}
		return writeJSON(out, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, " No recommendations applied yet.")
		return nil
	}

	tbl := output.NewTable("Applied", "Setting", "Time", "Change", "Priority")
	for _, rec := range recs {
		applied := ""
		if rec.AppliedAt != nil {
			applied = rec.AppliedAt.Local().Format("2006-01-02")
		}
		tbl.AddRow(
			applied,
			string(rec.Type),
			rec.TimeRange.Label,
			fmt.Sprintf("%s → %s", formatValue(rec.Type, rec.CurrentValue), formatValue(rec.Type, rec.SuggestedValue)),
			priorityLabel(rec.Priority),
		)
	}
	fmt.Fprint(out, tbl.Render())
	return nil
}
