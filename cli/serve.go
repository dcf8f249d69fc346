package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/inboxflow/inboxflow/pkg/config"
	"github.com/inboxflow/inboxflow/server"
	"github.com/spf13/cobra"
)

// ServeCmd runs the HTTP API until interrupted.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cfg := config.FromContext(ctx)
			components, err := server.NewComponents(ctx, cfg)
			if err != nil {
				return err
			}
			return server.NewServer(&cfg.Server, components).Run(ctx)
		},
	}
	cmd.Flags().Int("port", 0, "Port to listen on; overrides server.port")
	return cmd
}
