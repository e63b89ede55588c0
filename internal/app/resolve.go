package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/therapy"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <basal|icr|isf> <hour>",
	Short: "Show which segment governs an hour of the day",
	Long: `Look up the segment of a schedule in effect at the start of an hour.

Examples:
  basalcoach resolve basal 3
  basalcoach resolve isf 22`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	kind, err := therapy.ParseKind(args[0])
	if err != nil {
		return err
	}
	hour, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid hour %q: %w", args[1], err)
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	seg, err := e.svc.Resolve(kind, hour)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, map[string]any{
			"schedule": kind,
			"hour":     hour,
			"segment":  seg,
			"unit":     kind.Unit(),
		})
	}
	fmt.Fprintf(out, "%s at %s: %g %s (%s, %s)\n", kind, therapy.AtHour(hour).Label(),
		seg.Value, kind.Unit(), seg.Label(), seg.ID)
	return nil
}
