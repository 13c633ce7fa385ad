package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registered definitions as a read-only JSON API",
		Long: `Run one discovery pass and serve the resulting container.

Routes:
  GET /api/definitions[?tag=name]
  GET /api/definitions/{id}
  GET /api/tags/{tag}
  GET /api/parameters`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.boot(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "listen port (overrides APP_PORT)")
	return cmd
}
