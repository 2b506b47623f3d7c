package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/menusearch/internal/output"
	"github.com/Aman-CERP/menusearch/internal/telemetry"
	"github.com/Aman-CERP/menusearch/internal/watcher"
)

type watchOptions struct {
	debounce     time.Duration
	pollInterval time.Duration
	polling      bool
	metricsAddr  string
}

func newWatchCmd(g *globalOptions) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep indexes in sync with the catalog file",
		Long: `Sync all order types, then watch the catalog file and sync again after
every change. Runs until interrupted.

With --metrics-addr (or metrics.enabled in the config) an HTTP server
exposes /metrics for Prometheus, /stats with query statistics, /healthz
and /search?q=<query>&order_type=<type>&n=<top-n>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, g, opts)
		},
	}

	defaults := watcher.DefaultOptions()
	cmd.Flags().DurationVar(&opts.debounce, "debounce", defaults.Debounce, "Quiet period before re-syncing")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", defaults.PollInterval, "Stat interval when polling")
	cmd.Flags().BoolVar(&opts.polling, "polling", false, "Poll the catalog instead of using filesystem events")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve telemetry on this address (e.g. :9464)")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, g *globalOptions, opts watchOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, g, appOptions{metrics: opts.metricsAddr != ""}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	out := output.New(cmd.OutOrStdout())

	addr := opts.metricsAddr
	if addr == "" && a.cfg.Metrics.Enabled {
		addr = a.cfg.Metrics.Addr
	}
	if addr != "" {
		mux := telemetry.NewMux(a.metrics, a.stats)
		mux.Handle("/search", newSearchHandler(a.service))
		srv, err := telemetry.StartServer(addr, mux, a.logger)
		if err != nil {
			return fmt.Errorf("failed to start telemetry server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		out.Statusf("📈", "Serving http://%s (/search, /metrics, /stats)", srv.Addr())
	}

	report, err := a.service.SyncIndexes(ctx)
	if err != nil {
		return err
	}
	out.SyncReport(report)

	sync := func(ctx context.Context) error {
		report, err := a.service.SyncIndexes(ctx)
		if err != nil {
			return err
		}
		if n := report.Failed(); n > 0 {
			return fmt.Errorf("%d of %d order type(s) failed to sync", n, len(report.Results))
		}
		return nil
	}

	w := watcher.New(a.cfg.Catalog.Path, sync, watcher.Options{
		Debounce:     opts.debounce,
		PollInterval: opts.pollInterval,
		ForcePolling: opts.polling,
	}, a.logger)

	out.Statusf("👀", "Watching %s", a.cfg.Catalog.Path)
	if err := w.Run(ctx); err != nil {
		return err
	}

	a.logger.Info("watch_stopped", slog.Int64("syncs", w.Syncs()))
	out.QueryStats(a.stats.Snapshot())
	return nil
}
