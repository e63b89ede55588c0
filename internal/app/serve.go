package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/basalcoach/basalcoach/internal/api"
	"github.com/basalcoach/basalcoach/internal/watcher"
)

var (
	serveAddr    string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and watch the inbox",
	Long: `Start the JSON HTTP API used by the web front end. The inbox watcher
runs alongside it unless --no-watch is given.

Examples:
  basalcoach serve
  basalcoach serve --addr 0.0.0.0:8484 --no-watch`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr from config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not watch the inbox directory")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	addr := e.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	srv := api.NewServer(e.svc, addr, appVersion, e.log)
	g.Go(func() error {
		if err := srv.Start(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if !serveNoWatch {
		w := watcher.New(e.cfg.InboxDir, e.cfg.Watch.Interval, e.svc, e.db, e.cfg.Goals, func(a watcher.Alert) {
			if e.cfg.Watch.Notify {
				_ = watcher.Notify(a)
			}
			e.log.WithField("alert", a.Level).Info(a.Title)
		})
		w.SetLogger(e.log)
		g.Go(func() error {
			if err := w.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watcher: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
