package bridge

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BerryBytes/awsbridge/internal/auth"
	"github.com/BerryBytes/awsbridge/internal/awsconfig"
	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/BerryBytes/awsbridge/internal/console"
	"github.com/BerryBytes/awsbridge/internal/profile"
	"github.com/BerryBytes/awsbridge/internal/ssocache"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Bridge wires the credential bridge's components around one shared
// filesystem and settings instance. Both transports and the CLI
// commands run against the same assembly.
type Bridge struct {
	Settings    *config.Settings
	FS          afero.Fs
	FileCache   *awsconfig.FileCache
	TokenCache  *ssocache.Cache
	Reader      *awsconfig.ProfileReader
	Aggregator  *profile.Aggregator
	Metadata    *profile.MetadataProvider
	Credentials *console.CredentialProvider
	Generator   *console.Generator
	Tokens      *auth.TokenManager
	Auth        *auth.Authenticator
}

// New assembles a bridge over the OS filesystem.
func New(settings *config.Settings) *Bridge {
	return NewWithFS(settings, afero.NewOsFs())
}

// NewWithFS assembles a bridge over an arbitrary filesystem; tests
// pass an in-memory one.
func NewWithFS(settings *config.Settings, fs afero.Fs) *Bridge {
	fileCache := awsconfig.NewFileCache(fs)
	tokenCache := ssocache.New(fs, settings.SSOCacheDir).WithTTL(settings.TokenCacheTTL)
	reader := awsconfig.NewProfileReader(fs, settings.CredentialsFile, settings.ConfigFile)
	metadata := profile.NewMetadataProvider(nil)

	aggregator := profile.NewAggregator(
		fs,
		awsconfig.NewCredentialsParser(fs, settings.CredentialsFile, fileCache),
		awsconfig.NewConfigParser(fs, settings.ConfigFile, fileCache),
		tokenCache,
		metadata,
		settings.SentinelFile,
	)

	credentials := console.NewCredentialProvider(reader, tokenCache)
	generator := console.NewGenerator(
		credentials,
		console.NewSigninTokenClient(settings.FederationEndpoint, settings.SessionDuration, settings.FederationTimeout),
		settings.FederationEndpoint,
		settings.ConsoleBaseURL,
		settings.Issuer,
	)

	tokens := auth.NewTokenManager(fs, settings.TokenFile)
	authenticator := auth.NewAuthenticator(tokens, auth.NewRateLimiter(settings.MaxAuthAttempts, settings.AuthWindow))

	return &Bridge{
		Settings:    settings,
		FS:          fs,
		FileCache:   fileCache,
		TokenCache:  tokenCache,
		Reader:      reader,
		Aggregator:  aggregator,
		Metadata:    metadata,
		Credentials: credentials,
		Generator:   generator,
		Tokens:      tokens,
		Auth:        authenticator,
	}
}

// SetupLogging directs logrus at a log file under the settings' log
// directory. When mirrorStderr is false the file is the only sink;
// the native messaging host must keep stdio clean for the frame
// protocol.
func SetupLogging(settings *config.Settings, fileName string, mirrorStderr bool) (func() error, error) {
	if err := os.MkdirAll(settings.LogDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(settings.LogDir, fileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	if mirrorStderr {
		logrus.SetOutput(io.MultiWriter(file, os.Stderr))
	} else {
		logrus.SetOutput(file)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return file.Close, nil
}
