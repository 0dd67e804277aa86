package nativemsg

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerryBytes/awsbridge/internal/config"
	"github.com/BerryBytes/awsbridge/internal/console"
	"github.com/BerryBytes/awsbridge/internal/profile"
	"github.com/BerryBytes/awsbridge/internal/ssocache"
	"github.com/BerryBytes/awsbridge/models"
)

type stubProfiles struct {
	profiles []models.Profile
	err      error
	delay    time.Duration
	lastOpts profile.Options
}

func (s *stubProfiles) Profiles(opts profile.Options) ([]models.Profile, error) {
	s.lastOpts = opts
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.profiles, s.err
}

type stubConsole struct {
	url string
	err error
}

func (s *stubConsole) ConsoleURL(ctx context.Context, profileName, region string) (string, error) {
	return s.url, s.err
}

func testSettings() *config.Settings {
	settings := config.DefaultSettings("/home")
	settings.ProfilesTimeout = 200 * time.Millisecond
	settings.EnrichTimeout = 200 * time.Millisecond
	settings.ConsoleTimeout = 200 * time.Millisecond
	return settings
}

// runHost feeds requests through a host and returns the response frames.
func runHost(t *testing.T, host *Host, requests ...Request) []map[string]any {
	t.Helper()
	var in bytes.Buffer
	for _, req := range requests {
		require.NoError(t, WriteFrame(&in, req))
	}
	var out bytes.Buffer
	host.In = &in
	host.Out = &out

	require.NoError(t, host.Run(context.Background()))

	var responses []map[string]any
	for {
		var resp map[string]any
		err := ReadFrame(&out, &resp)
		if err == io.EOF {
			return responses
		}
		require.NoError(t, err)
		responses = append(responses, resp)
	}
}

func newHost(profiles *stubProfiles, consoleStub *stubConsole) *Host {
	return &Host{
		Profiles: profiles,
		Console:  consoleStub,
		Metadata: profile.NewMetadataProvider(nil),
		Settings: testSettings(),
	}
}

func TestHost_GetProfiles(t *testing.T) {
	profiles := &stubProfiles{profiles: []models.Profile{{Name: "dev", HasCredentials: true}}}
	host := newHost(profiles, &stubConsole{})

	responses := runHost(t, host, Request{Action: ActionGetProfiles})
	require.Len(t, responses, 1)
	assert.Equal(t, "profiles", responses[0]["action"])
	assert.False(t, profiles.lastOpts.EnrichSSO)
}

func TestHost_EnrichSSOProfiles(t *testing.T) {
	profiles := &stubProfiles{}
	host := newHost(profiles, &stubConsole{})

	responses := runHost(t, host, Request{Action: ActionEnrichSSO})
	require.Len(t, responses, 1)
	assert.Equal(t, "ssoProfiles", responses[0]["action"])
	assert.True(t, profiles.lastOpts.EnrichSSO)
}

func TestHost_OpenProfile(t *testing.T) {
	host := newHost(&stubProfiles{}, &stubConsole{url: "https://signin.aws.amazon.com/federation?Action=login"})

	responses := runHost(t, host, Request{Action: ActionOpenProfile, ProfileName: "prod-admin", Region: "eu-west-1"})
	require.Len(t, responses, 1)
	assert.Equal(t, "openUrl", responses[0]["action"])
	assert.Equal(t, "prod-admin", responses[0]["profileName"])
	assert.Equal(t, "https://signin.aws.amazon.com/federation?Action=login", responses[0]["url"])
	assert.Equal(t, "red", responses[0]["color"])
	assert.Equal(t, "briefcase", responses[0]["icon"])
}

func TestHost_OpenProfileRequiresName(t *testing.T) {
	host := newHost(&stubProfiles{}, &stubConsole{})

	responses := runHost(t, host, Request{Action: ActionOpenProfile})
	require.Len(t, responses, 1)
	assert.Equal(t, "error", responses[0]["action"])
	assert.Equal(t, "internal error", responses[0]["message"])
}

func TestHost_UnknownAction(t *testing.T) {
	host := newHost(&stubProfiles{}, &stubConsole{})

	responses := runHost(t, host, Request{Action: "destroyEverything"})
	require.Len(t, responses, 1)
	assert.Equal(t, "error", responses[0]["action"])
	assert.Equal(t, "unknown action", responses[0]["message"])
}

func TestHost_SequentialRequests(t *testing.T) {
	profiles := &stubProfiles{}
	host := newHost(profiles, &stubConsole{url: "https://example.com"})

	responses := runHost(t, host,
		Request{Action: ActionGetProfiles},
		Request{Action: ActionEnrichSSO},
	)
	require.Len(t, responses, 2)
	assert.Equal(t, "profiles", responses[0]["action"])
	assert.Equal(t, "ssoProfiles", responses[1]["action"])
}

func TestHost_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"profile not found", console.ErrProfileNotFound, "profile not found"},
		{"token expired", ssocache.ErrTokenExpired, "SSO session expired - run aws sso login"},
		{"federation", &console.FederationError{Op: "get signin token", Err: io.ErrUnexpectedEOF}, "federation request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newHost(&stubProfiles{}, &stubConsole{err: tt.err})
			responses := runHost(t, host, Request{Action: ActionOpenProfile, ProfileName: "dev"})
			require.Len(t, responses, 1)
			assert.Equal(t, "error", responses[0]["action"])
			assert.Equal(t, tt.message, responses[0]["message"])
		})
	}
}

func TestHost_Timeout(t *testing.T) {
	profiles := &stubProfiles{delay: time.Second}
	host := newHost(profiles, &stubConsole{})

	responses := runHost(t, host, Request{Action: ActionGetProfiles})
	require.Len(t, responses, 1)
	assert.Equal(t, "operation timed out", responses[0]["message"])
}

func TestHost_BadFrameExits(t *testing.T) {
	var in bytes.Buffer
	in.Write([]byte{0, 0, 0, 0})
	host := newHost(&stubProfiles{}, &stubConsole{})
	host.In = &in
	host.Out = &bytes.Buffer{}

	assert.Error(t, host.Run(context.Background()))
}
