package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/basalcoach/basalcoach/internal/config"
	"github.com/basalcoach/basalcoach/internal/watcher"
)

var (
	watchDaemon   bool
	watchInterval time.Duration
	watchStop     bool
	watchQuiet    bool
	watchOnce     bool
)

// minWatchInterval keeps a misconfigured watcher from spinning on the disk.
const minWatchInterval = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Import CGM summaries dropped into the inbox directory",
	Long: `Poll the inbox directory for new CGM summary files. Each new file is
imported once, compared with the previous report, and a recommendation is
generated when none is pending. Notable changes raise desktop notifications
and/or terminal alerts.

Examples:
  basalcoach watch                    # run in foreground (ctrl-c to stop)
  basalcoach watch --once             # import what is there and exit
  basalcoach watch --daemon           # run in background, write PID file
  basalcoach watch --interval 5m      # check every 5 minutes
  basalcoach watch --stop             # stop the background daemon`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Check interval (default: watch.interval from config)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Check the inbox once and exit")
	rootCmd.AddCommand(watchCmd)
}

// pidFilePath returns the path to the daemon PID file.
func pidFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.pid")
}

// logFilePath returns the path to the daemon log file.
func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		return stopDaemon(cmd.OutOrStdout())
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	interval := e.cfg.Watch.Interval
	if watchInterval != 0 {
		interval = watchInterval
	}
	if interval < minWatchInterval {
		return fmt.Errorf("interval must be at least %s, got %s", minWatchInterval, interval)
	}

	if watchDaemon {
		return runDaemon(e, interval)
	}
	return runForeground(cmd, e, interval)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, shutdownSignals...)
}

// alertHandler builds the watcher callback: a desktop notification when
// enabled, and a formatted line on w unless w is nil.
func alertHandler(notify bool, w io.Writer) func(watcher.Alert) {
	return func(a watcher.Alert) {
		if notify {
			_ = watcher.Notify(a)
		}
		if w != nil {
			fmt.Fprint(w, watcher.Format(a))
		}
	}
}

// runForeground runs the watcher in the foreground with live terminal output.
func runForeground(cmd *cobra.Command, e *env, interval time.Duration) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var out io.Writer
	if !watchQuiet {
		out = cmd.OutOrStdout()
	}

	w := watcher.New(e.cfg.InboxDir, interval, e.svc, e.db, e.cfg.Goals,
		alertHandler(e.cfg.Watch.Notify && !watchOnce, out))
	w.SetLogger(e.log)

	if watchOnce {
		alerts, err := w.Check(ctx)
		if err != nil {
			return err
		}
		for _, a := range alerts {
			if out != nil {
				fmt.Fprint(out, watcher.Format(a))
			}
		}
		if len(alerts) == 0 && out != nil {
			fmt.Fprintf(out, "[%s] %s No new reports in %s\n",
				time.Now().Format("15:04:05"), checkMark(), e.cfg.InboxDir)
		}
		return nil
	}

	if out != nil {
		fmt.Fprintf(out, "basalcoach watching %s... (checking every %s)\n", e.cfg.InboxDir, interval)
	}

	err := w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if out != nil {
			fmt.Fprintln(out, "\nStopped.")
		}
		return nil
	}
	return err
}

// runDaemon sets up PID and log files, then runs the watcher. The actual
// backgrounding should be done by the caller (nohup, &, etc.) since Go
// cannot reliably fork.
func runDaemon(e *env, interval time.Duration) error {
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	if pid, err := readPID(); err == nil {
		if processExists(pid) {
			return fmt.Errorf("daemon already running (PID %d). Use --stop to stop it", pid)
		}
		// Stale PID file.
		_ = os.Remove(pidFilePath())
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() { _ = os.Remove(pidFilePath()) }()

	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	e.log.SetOutput(logFile)

	ctx, stop := signalContext(context.Background())
	defer stop()

	e.log.WithFields(logrus.Fields{"pid": pid, "interval": interval}).Info("daemon started")

	alertFn := func(a watcher.Alert) {
		if e.cfg.Watch.Notify {
			_ = watcher.Notify(a)
		}
		e.log.WithFields(logrus.Fields{"alert": a.Level, "title": a.Title}).Info(a.Message)
	}

	w := watcher.New(e.cfg.InboxDir, interval, e.svc, e.db, e.cfg.Goals, alertFn)
	w.SetLogger(e.log)

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		e.log.Info("daemon stopped")
		return nil
	}
	return err
}

// readPID reads the daemon PID from the PID file.
func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// checkMark returns a terminal check mark indicator.
func checkMark() string {
	return "\xe2\x9c\x93"
}
