package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/output"
	"github.com/basalcoach/basalcoach/internal/suggest"
)

var (
	recommendAll   bool
	recommendFresh bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show the pending recommendation",
	Long: `Show the recommendation waiting for a decision. With --new, generate a
fresh one from the latest report, replacing the pending one. With --all,
list every change the rules would suggest, ranked, without storing any.

Only one recommendation is offered at a time.`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().BoolVar(&recommendAll, "all", false, "List every candidate, ranked")
	recommendCmd.Flags().BoolVar(&recommendFresh, "new", false, "Regenerate from the latest report")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	out := cmd.OutOrStdout()

	if recommendAll {
		recs, err := e.svc.Candidates()
		if err != nil {
			return err
		}
		if flagJSON {
			if recs == nil {
				recs = []suggest.Recommendation{}
			}
			return writeJSON(out, recs)
		}
		if len(recs) == 0 {
			fmt.Fprintln(out, " No changes suggested for the latest report.")
			return nil
		}
		fmt.Fprintln(out, output.Section(fmt.Sprintf("Candidates (%d)", len(recs))))
		fmt.Fprintln(out)
		for _, rec := range recs {
			renderRecommendation(out, rec)
			fmt.Fprintln(out)
		}
		return nil
	}

	var rec *suggest.Recommendation
	if recommendFresh {
		rec, err = e.svc.Recommend()
	} else {
		rec, err = e.svc.Pending()
	}
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(out, map[string]any{"recommendation": rec})
	}
	if rec == nil {
		fmt.Fprintln(out, " No recommendation pending.")
		return nil
	}
	fmt.Fprintln(out, output.Section("Recommendation"))
	fmt.Fprintln(out)
	renderRecommendation(out, *rec)
	fmt.Fprintln(out)
	fmt.Fprintln(out, output.StyleMuted.Render(" basalcoach apply   or   basalcoach dismiss"))
	return nil
}
