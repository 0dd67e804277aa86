package token

import (
	"fmt"

	"github.com/BerryBytes/awsbridge/internal/bridge"
	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// NewTokenCommand returns the token management command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API token the browser extension authenticates with",
	}
	cmd.AddCommand(newShowCommand(), newRotateCommand())
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current API token, creating one if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.NewSettings()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			b := bridge.New(settings)
			token, err := b.Tokens.LoadOrCreate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newRotateCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Replace the API token, invalidating the previous one",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.NewSettings()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			if !yes {
				prompt := promptui.Prompt{
					Label:     "Rotate the API token? Connected extensions must be reconfigured",
					IsConfirm: true,
				}
				if _, err := prompt.Run(); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Rotation cancelled.")
					return nil
				}
			}

			b := bridge.New(settings)
			token, err := b.Tokens.Rotate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
