package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eunjujo120/perso-ai-chatbot/internal/preflight"
	"github.com/eunjujo120/perso-ai-chatbot/internal/server"
	"github.com/eunjujo120/perso-ai-chatbot/internal/watcher"
)

type serveOptions struct {
	addr      string
	watch     bool
	noIngest  bool
	skipCheck bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP answer API",
		Long: `Serve the HTTP API:

  GET  /health         liveness
  POST /chat           {"question": "..."} -> {"answer", "matched_question", "score"}
  POST /admin/reload   re-ingest the corpus (bearer admin_token when set)
  GET  /stats          answer telemetry

On start the vector index is brought up to date with the corpus unless
--no-ingest is given. With --watch, edits to the corpus file trigger a reload.`,
		Example: `  # Serve on the configured address
  persoqa serve

  # Serve on another port and reload when the corpus changes
  persoqa serve --addr :9000 --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload when the corpus file changes")
	cmd.Flags().BoolVar(&opts.noIngest, "no-ingest", false, "Skip the startup ingest check")
	cmd.Flags().BoolVar(&opts.skipCheck, "skip-check", false, "Skip preflight system checks")

	return cmd
}

func runServe(ctx context.Context, errOut io.Writer, opts serveOptions) error {
	a, err := newApp(ctx, appOptions{stderrLogs: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if opts.addr != "" {
		a.cfg.Server.Addr = opts.addr
	}

	dataDir := a.cfg.DataDir()
	if !opts.skipCheck && preflight.NeedsCheck(dataDir) {
		checker := preflight.New(preflight.WithOutput(errOut))
		results := checker.RunAll(ctx, preflight.Target{
			Config:   a.cfg,
			Loader:   a.loader,
			Embedder: a.embedder,
			Store:    a.store,
		})
		if checker.HasCriticalFailures(results) {
			checker.PrintResults(results)
			for _, r := range results {
				if r.IsCritical() {
					a.logger.Error("preflight_failed",
						slog.String("check", r.Name),
						slog.String("message", r.Message))
				}
			}
			return errors.New("system check failed: run 'persoqa doctor' for details")
		}
		if err := preflight.MarkPassed(dataDir); err != nil {
			a.logger.Debug("preflight_mark_failed", slog.String("error", err.Error()))
		}
	}

	if !opts.noIngest {
		a.warm(ctx)
	}

	srv := server.New(a.cfg.Server, a.engine,
		server.WithReloader(a.reloader),
		server.WithStats(a.metrics),
		server.WithLogger(a.logger),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if opts.watch || a.cfg.Corpus.Watch {
		w := watcher.New(a.cfg.Corpus.Path, watcher.Options{
			DebounceWindow: a.cfg.Corpus.WatchDebounce,
		}).WithLogger(a.logger)

		g.Go(func() error {
			err := w.Run(gctx, func(ctx context.Context, events []watcher.FileEvent) {
				res, err := a.reloader.Reload(ctx, false)
				if err != nil {
					a.logger.Error("corpus_reload_failed", slog.String("error", err.Error()))
					return
				}
				a.logger.Info("corpus_reload",
					slog.Int("events", len(events)),
					slog.Int("entries", res.Entries),
					slog.Bool("skipped", res.Skipped))
			})
			if err != nil {
				return fmt.Errorf("corpus watcher: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
