package host

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BerryBytes/awsbridge/internal/bridge"
	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/BerryBytes/awsbridge/internal/nativemsg"
	"github.com/spf13/cobra"
)

// NewHostCommand returns the command running the native messaging
// host over stdin/stdout for browsers that spawn the bridge directly.
func NewHostCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Run the native messaging host on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.NewSettings()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			// stdout carries protocol frames; logs must not touch it.
			closeLog, err := bridge.SetupLogging(settings, "awsbridge_host.log", false)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			b := bridge.New(settings)
			h := &nativemsg.Host{
				In:       os.Stdin,
				Out:      os.Stdout,
				Profiles: b.Aggregator,
				Console:  b.Generator,
				Metadata: b.Metadata,
				Settings: settings,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return h.Run(ctx)
		},
	}
}
