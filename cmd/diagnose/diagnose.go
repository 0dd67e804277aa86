package diagnose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BerryBytes/awsbridge/internal/bridge"
	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/BerryBytes/awsbridge/internal/profile"
	"github.com/BerryBytes/awsbridge/internal/ssocache"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfigv2 "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/shirou/gopsutil/process"
	"github.com/spf13/cobra"
)

// NewDiagnoseCommand returns the command that prints a local health
// report: configured paths, discovered profiles, and optionally an STS
// identity check for one profile.
func NewDiagnoseCommand() *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Report bridge configuration and profile state",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.NewSettings()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}

			b := bridge.New(settings)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "awsbridge %s\n\n", config.Version)
			fmt.Fprintf(out, "Listen address:   %s\n", settings.Addr())
			fmt.Fprintf(out, "Credentials file: %s (%s)\n", settings.CredentialsFile, fileState(settings.CredentialsFile))
			fmt.Fprintf(out, "Config file:      %s (%s)\n", settings.ConfigFile, fileState(settings.ConfigFile))
			fmt.Fprintf(out, "SSO cache dir:    %s (%s)\n", settings.SSOCacheDir, fileState(settings.SSOCacheDir))
			fmt.Fprintf(out, "Token file:       %s (%s)\n", settings.TokenFile, fileState(settings.TokenFile))
			fmt.Fprintf(out, "Sentinel file:    %s (%s)\n", settings.SentinelFile, fileState(settings.SentinelFile))

			if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
				if mem, err := proc.MemoryInfo(); err == nil {
					fmt.Fprintf(out, "Process RSS:      %d bytes\n", mem.RSS)
				}
			}

			profiles, err := b.Aggregator.Profiles(profile.Options{EnrichSSO: true})
			if err != nil {
				return fmt.Errorf("failed to aggregate profiles: %w", err)
			}

			fmt.Fprintf(out, "\nProfiles (%d):\n", len(profiles))
			for _, p := range profiles {
				state := "ok"
				if p.Expired {
					state = "expired"
				} else if !p.HasCredentials {
					state = "no credentials"
				}
				fmt.Fprintf(out, "  %-30s %-8s %s\n", p.Name, p.Source, state)
			}

			if profileName != "" {
				fmt.Fprintf(out, "\nIdentity check for %q:\n", profileName)
				if err := checkIdentity(cmd.Context(), b, profileName, out); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profileName, "profile", "", "Verify a profile's credentials against STS")
	return cmd
}

func fileState(path string) string {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "missing"
		}
		return "unreadable"
	}
	return "present"
}

// checkIdentity resolves the profile's credentials through the same
// path the console URL generator uses, then calls GetCallerIdentity
// with them pinned as a static provider.
func checkIdentity(ctx context.Context, b *bridge.Bridge, name string, out io.Writer) error {
	creds, err := b.Credentials.Credentials(ctx, name)
	if err != nil {
		if errors.Is(err, ssocache.ErrTokenExpired) {
			return fmt.Errorf("SSO session expired for %q - run aws sso login", name)
		}
		return err
	}

	cfg, err := awsconfigv2.LoadDefaultConfig(ctx,
		awsconfigv2.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	identity, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("STS identity check failed: %w", err)
	}

	fmt.Fprintf(out, "  Account: %s\n  ARN:     %s\n", aws.ToString(identity.Account), aws.ToString(identity.Arn))
	return nil
}
