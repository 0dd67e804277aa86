package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/BerryBytes/awsbridge/internal/bridge"
	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/BerryBytes/awsbridge/internal/regions"
	"github.com/BerryBytes/awsbridge/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewServeCommand returns the command running the loopback HTTP API.
func NewServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the profile bridge HTTP API on loopback",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.NewSettings()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			if port != 0 {
				settings.Port = port
			}

			closeLog, err := bridge.SetupLogging(settings, "awsbridge_api.log", true)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			b := bridge.New(settings)
			if _, err := b.Tokens.LoadOrCreate(); err != nil {
				return fmt.Errorf("failed to prepare API token: %w", err)
			}
			logrus.WithField("token_file", settings.TokenFile).Info("API token ready")

			srv := server.New(
				settings,
				b.Auth,
				b.Aggregator,
				b.Generator,
				regions.NewCatalog(),
				b.Metadata,
				server.SystemURLOpener{},
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Override the listen port")
	return cmd
}
