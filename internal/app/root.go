// Package app contains the Cobra command tree for basalcoach.
package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/coach"
	"github.com/basalcoach/basalcoach/internal/config"
	"github.com/basalcoach/basalcoach/internal/output"
	"github.com/basalcoach/basalcoach/internal/store"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "basalcoach",
	Short: "Glycemic pattern analysis and pump settings recommendations",
	Long: `basalcoach reads aggregated CGM reports, finds the times of day where
glucose runs low, high or erratic, and proposes one small change at a time
to basal rates, carb ratios or correction factors.

Suggestions are educational. Review every change with your care team.

Run 'basalcoach' with no arguments to see the current state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStatus,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/basalcoach/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
}

// env is what most commands need: config, logger, database and service.
type env struct {
	cfg *config.Config
	log *logrus.Logger
	db  *store.DB
	svc *coach.Service
}

func (e *env) Close() {
	_ = e.db.Close()
}

// setup loads config, configures output and opens the database.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flagNoColor {
		output.SetNoColor(true)
	} else {
		output.AutoColor(cfg.Output.Color, os.Stdout)
	}

	log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	svc := coach.New(db, cfg.Goals,
		coach.WithLogger(log),
		coach.WithHistoryLimit(cfg.HistoryLimit),
	)
	return &env{cfg: cfg, log: log, db: db, svc: svc}, nil
}

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(lc config.Log, w io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)

	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if flagVerbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	switch lc.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			DisableColors: output.IsNoColor(),
			FullTimestamp: true,
		})
	}
	return log, nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	pending, err := e.svc.Pending()
	if err != nil {
		return fmt.Errorf("loading pending recommendation: %w", err)
	}
	reports, err := e.svc.Reports(1)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}

	if flagJSON {
		status := map[string]any{"recommendation": pending}
		if len(reports) > 0 {
			status["latestReport"] = reports[0]
		}
		return writeJSON(out, status)
	}

	fmt.Fprintln(out, "basalcoach", appVersion)
	fmt.Fprintln(out)
	if len(reports) == 0 {
		fmt.Fprintln(out, " No CGM reports imported yet. Start with:")
		fmt.Fprintln(out, "   basalcoach import <summary.json>")
		fmt.Fprintln(out, "   basalcoach analyze --demo")
		return nil
	}

	r := reports[0]
	fmt.Fprintf(out, " Latest report  %s (%d days, imported %s)\n",
		r.ID, r.Days, r.ImportedAt.Local().Format("Jan 2 15:04"))
	fmt.Fprintf(out, " Time in range  %s\n", output.PercentBar(r.InRange, e.cfg.Goals.TargetTIR, 20))
	fmt.Fprintf(out, " Average        %.0f mg/dL\n", r.AverageGlucose)
	fmt.Fprintln(out)

	if pending == nil {
		fmt.Fprintln(out, " No recommendation pending.")
		return nil
	}
	fmt.Fprintf(out, " Pending: %s %s\n", priorityLabel(pending.Priority), output.StyleBold.Render(pending.Title))
	fmt.Fprintln(out, strings.Repeat(" ", 10)+output.StyleMuted.Render("basalcoach recommend   for details"))
	return nil
}
