package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/output"
	"github.com/basalcoach/basalcoach/internal/store"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

var settingsHistory int

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change pump therapy settings",
	Long: `Show the current basal rates, carb ratios and correction factors, or
replace them. Every change is kept as a new version.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace settings from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsImport,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <basal|icr|isf> <start> <end> <value>",
	Short: "Change the value of one segment",
	Long: `Change the value of every segment of a schedule spanning exactly
start to end (HH:MM).

Examples:
  basalcoach settings set basal 00:00 06:00 0.45
  basalcoach settings set icr 11:00 17:00 9.5`,
	Args: cobra.ExactArgs(4),
	RunE: runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsReset,
}

func init() {
	settingsShowCmd.Flags().IntVar(&settingsHistory, "history", 0, "List the N most recent saved versions instead")
	settingsCmd.AddCommand(settingsShowCmd, settingsImportCmd, settingsSetCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	out := cmd.OutOrStdout()

	if settingsHistory > 0 {
		snaps, err := e.db.SettingsHistory(settingsHistory)
		if err != nil {
			return fmt.Errorf("loading settings history: %w", err)
		}
		if flagJSON {
			return writeJSON(out, snaps)
		}
		tbl := output.NewTable("#", "Saved", "Source", "Basal", "ICR", "ISF")
		for _, s := range snaps {
			tbl.AddRow(
				strconv.FormatInt(s.ID, 10),
				s.SavedAt.Local().Format("2006-01-02 15:04"),
				s.Source,
				strconv.Itoa(len(s.Settings.BasalSegments)),
				strconv.Itoa(len(s.Settings.ICRSegments)),
				strconv.Itoa(len(s.Settings.ISFSegments)),
			)
		}
		fmt.Fprint(out, tbl.Render())
		return nil
	}

	settings, err := e.svc.Settings()
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(out, settings)
	}
	renderSettings(out, settings)
	return nil
}

func runSettingsImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	var settings therapy.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("decoding settings: %w", err)
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.svc.SaveSettings(settings, store.SourceImport); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported settings from %s\n", args[0])
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	kind, err := therapy.ParseKind(args[0])
	if err != nil {
		return err
	}
	start, err := therapy.ParseClock(args[1])
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := therapy.ParseClock(args[2])
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	value, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[3], err)
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	settings, err := e.svc.SetSegment(kind, start, end, value)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, settings)
	}
	fmt.Fprintf(out, "Set %s %s to %g %s\n", kind, therapy.RangeLabel(start, end), value, kind.Unit())
	return nil
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.svc.ResetSettings(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults")
	return nil
}
