package root

import (
	"fmt"

	"github.com/BerryBytes/awsbridge/cmd/diagnose"
	"github.com/BerryBytes/awsbridge/cmd/host"
	"github.com/BerryBytes/awsbridge/cmd/serve"
	"github.com/BerryBytes/awsbridge/cmd/token"
	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/spf13/cobra"
)

// RootCmd is the entry point for every awsbridge subcommand.
var RootCmd = &cobra.Command{
	Use:     "awsbridge",
	Short:   "Local bridge exposing AWS profiles to the browser extension",
	Long:    "awsbridge discovers AWS profiles from the local credentials and config files,\nresolves SSO session state, and serves them to the companion browser extension\nover a loopback HTTP API or a native messaging host.",
	Version: config.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	RootCmd.AddCommand(
		serve.NewServeCommand(),
		host.NewHostCommand(),
		token.NewTokenCommand(),
		diagnose.NewDiagnoseCommand(),
	)
}

// Execute runs the root command.
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}
