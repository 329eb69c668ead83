package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/confbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/server"
)

func newServeCmd() *cobra.Command {
	var (
		port string
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the host bridge",
		Long: `Serve the conference controller over HTTP.

Configuration is read from the environment (PORT, HOST, LOG_LEVEL, ENGINE_*,
PERMISSIONS_AUTO_GRANT, RATE_LIMIT_*). Flags override the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if dev {
				cfg.Logging.Development = true
				cfg.Logging.Level = "debug"
			}

			srv, err := server.NewServer(cfg)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8000", "HTTP port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen address")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development mode (coloured logs, debug level)")

	return cmd
}
