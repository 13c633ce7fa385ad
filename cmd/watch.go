package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/km-arc/service-annotations/framework/app"
	"github.com/km-arc/service-annotations/framework/watcher"
)

func newWatchCmd(opts *options) *cobra.Command {
	var serve bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run discovery whenever a bundle source changes",
		Long: `Run a discovery pass, then watch every bundle directory and re-run the pass
after each burst of changes to Go sources. A failing pass is logged and the
last good container is kept.

Examples:
  service-annotations watch
  service-annotations watch --serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, logger, err := opts.boot(cmd)
			if err != nil {
				return err
			}
			if err := renderText(cmd.OutOrStdout(), buildReport(a)); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			if serve {
				go func() { serveErr <- a.Run(ctx) }()
			}
			return watch(ctx, a, logger, cmd.OutOrStdout(), serveErr)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "also serve the inspection API")
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "listen port with --serve (overrides APP_PORT)")
	return cmd
}

func watch(ctx context.Context, a *app.Application, logger *slog.Logger, out io.Writer, serveErr <-chan error) error {
	roots := make([]string, 0, len(a.Bundles()))
	for _, b := range a.Bundles() {
		if !b.IsVendored() {
			roots = append(roots, b.Path)
		}
	}

	cfg := watcher.DefaultConfig(roots...)
	cfg.Skip = a.Excludes()
	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return err
	}
	logger.Info("watching bundles", "roots", len(roots))

	for {
		select {
		case <-changes:
			if err := a.Reload(); err != nil {
				logger.Error("re-scan failed, keeping previous definitions", "error", err)
				continue
			}
			if err := renderText(out, buildReport(a)); err != nil {
				return err
			}

		case err := <-w.Errors():
			logger.Warn("watch error", "error", err)

		case err := <-serveErr:
			return err

		case <-ctx.Done():
			return nil
		}
	}
}
