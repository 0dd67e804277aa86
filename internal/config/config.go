package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Version of the bridge, reported by the health endpoint and CLI.
const Version = "2.0.0"

// Settings holds every path and tunable the bridge uses. Values come
// from defaults relative to the user's home directory, optionally
// overridden by an awsbridge.yaml file in the AWS directory.
type Settings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	AWSDir          string `yaml:"aws_dir"`
	CredentialsFile string `yaml:"credentials_file"`
	ConfigFile      string `yaml:"config_file"`
	SSOCacheDir     string `yaml:"sso_cache_dir"`
	SentinelFile    string `yaml:"sentinel_file"`
	TokenFile       string `yaml:"token_file"`
	LogDir          string `yaml:"log_dir"`

	FederationEndpoint string        `yaml:"federation_endpoint"`
	ConsoleBaseURL     string        `yaml:"console_base_url"`
	Issuer             string        `yaml:"issuer"`
	SessionDuration    time.Duration `yaml:"session_duration"`
	FederationTimeout  time.Duration `yaml:"federation_timeout"`

	ProfilesTimeout time.Duration `yaml:"profiles_timeout"`
	EnrichTimeout   time.Duration `yaml:"enrich_timeout"`
	ConsoleTimeout  time.Duration `yaml:"console_timeout"`

	MaxAuthAttempts int           `yaml:"max_auth_attempts"`
	AuthWindow      time.Duration `yaml:"auth_window"`
	TokenCacheTTL   time.Duration `yaml:"token_cache_ttl"`
}

// DefaultSettings returns settings rooted at the given home directory.
func DefaultSettings(homeDir string) *Settings {
	awsDir := filepath.Join(homeDir, ".aws")
	return &Settings{
		Host: "127.0.0.1",
		Port: 10999,

		AWSDir:          awsDir,
		CredentialsFile: filepath.Join(awsDir, "credentials"),
		ConfigFile:      filepath.Join(awsDir, "config"),
		SSOCacheDir:     filepath.Join(awsDir, "sso", "cache"),
		SentinelFile:    filepath.Join(awsDir, ".nosso"),
		TokenFile:       filepath.Join(awsDir, "profile_bridge_config.json"),
		LogDir:          filepath.Join(awsDir, "logs"),

		FederationEndpoint: "https://signin.aws.amazon.com/federation",
		ConsoleBaseURL:     "https://console.aws.amazon.com/",
		Issuer:             "awsbridge",
		SessionDuration:    12 * time.Hour,
		FederationTimeout:  10 * time.Second,

		ProfilesTimeout: 5 * time.Second,
		EnrichTimeout:   30 * time.Second,
		ConsoleTimeout:  15 * time.Second,

		MaxAuthAttempts: 10,
		AuthWindow:      60 * time.Second,
		TokenCacheTTL:   30 * time.Second,
	}
}

// NewSettings builds default settings for the current user and merges
// overrides from <aws dir>/awsbridge.yaml when the file exists.
func NewSettings() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	settings := DefaultSettings(homeDir)

	overridePath := filepath.Join(settings.AWSDir, "awsbridge.yaml")
	data, err := os.ReadFile(overridePath)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", overridePath, err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", overridePath, err)
	}
	return settings, nil
}

// Addr returns the host:port the HTTP server binds to.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
