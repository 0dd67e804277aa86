package awsconfig

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerryBytes/awsbridge/models"
)

const credentialsFile = `[prod-admin]
aws_access_key_id = AKIAEXAMPLE
aws_secret_access_key = secret
# Expires 2024-06-01 12:00:00 UTC
aws_session_token = token

[empty-section]

[dev]
aws_access_key_id = AKIADEV
aws_secret_access_key = devsecret
`

func newCredentialsParser(t *testing.T, contents string) (*CredentialsParser, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/.aws/credentials", []byte(contents), 0o600))
	return NewCredentialsParser(fs, "/home/.aws/credentials", NewFileCache(fs)), fs
}

func TestCredentialsParser_Parse(t *testing.T) {
	parser, _ := newCredentialsParser(t, credentialsFile)
	parser.Now = func() time.Time { return time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC) }

	profiles, err := parser.Parse()
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	assert.Equal(t, "prod-admin", profiles[0].Name)
	assert.Equal(t, models.ProfileSourceStatic, profiles[0].Source)
	assert.True(t, profiles[0].HasCredentials)
	require.NotNil(t, profiles[0].Expiration)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), *profiles[0].Expiration)
	assert.False(t, profiles[0].Expired)

	assert.Equal(t, "empty-section", profiles[1].Name)
	assert.False(t, profiles[1].HasCredentials)

	assert.Equal(t, "dev", profiles[2].Name)
	assert.True(t, profiles[2].HasCredentials)
}

func TestCredentialsParser_ExpiredComment(t *testing.T) {
	parser, _ := newCredentialsParser(t, credentialsFile)
	parser.Now = func() time.Time { return time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC) }

	profiles, err := parser.Parse()
	require.NoError(t, err)
	assert.True(t, profiles[0].Expired)
}

func TestCredentialsParser_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	parser := NewCredentialsParser(fs, "/home/.aws/credentials", NewFileCache(fs))

	profiles, err := parser.Parse()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestCredentialsParser_MalformedSectionSkipped(t *testing.T) {
	parser, _ := newCredentialsParser(t, "[broken\naws_access_key_id = x\n[ok]\naws_access_key_id = y\naws_secret_access_key = z\n")

	profiles, err := parser.Parse()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "ok", profiles[0].Name)
	assert.True(t, profiles[0].HasCredentials)
}

const configFile = `[profile sso-prod]
sso_start_url = https://example.awsapps.com/start#
sso_region = eu-west-1
sso_account_id = 111122223333
sso_role_name = AdminAccess
region = eu-west-1

[profile plain]
region = us-east-2
output = json

[profile session-style]
sso_session = corp
sso_account_id = 444455556666
sso_role_name = ReadOnly

[default]
region = us-east-1
`

func TestConfigParser_Parse(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/.aws/config", []byte(configFile), 0o600))
	parser := NewConfigParser(fs, "/home/.aws/config", NewFileCache(fs))

	profiles, err := parser.Parse()
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "sso-prod", profiles[0].Name)
	assert.Equal(t, models.ProfileSourceSSO, profiles[0].Source)
	assert.True(t, profiles[0].HasCredentials)
	require.NotNil(t, profiles[0].SSO)
	assert.Equal(t, "https://example.awsapps.com/start", profiles[0].SSO.StartURL)
	assert.Equal(t, "eu-west-1", profiles[0].SSO.Region)
	assert.Equal(t, "111122223333", profiles[0].SSO.AccountID)
	assert.Equal(t, "AdminAccess", profiles[0].SSO.RoleName)
	assert.Equal(t, "eu-west-1", profiles[0].Region)

	assert.Equal(t, "session-style", profiles[1].Name)
	require.NotNil(t, profiles[1].SSO)
	assert.Equal(t, "corp", profiles[1].SSO.Session)
	assert.Equal(t, "us-east-1", profiles[1].SSO.Region, "sso_region defaults when absent")
}

func TestConfigParser_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	parser := NewConfigParser(fs, "/home/.aws/config", NewFileCache(fs))

	profiles, err := parser.Parse()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestFileCache_ServesUntilModified(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/.aws/credentials"
	require.NoError(t, afero.WriteFile(fs, path, []byte("[a]\naws_access_key_id = x\naws_secret_access_key = y\n"), 0o600))

	cache := NewFileCache(fs)
	parser := NewCredentialsParser(fs, path, cache)

	first, err := parser.Parse()
	require.NoError(t, err)
	require.Len(t, first, 1)

	cached, ok := cache.Get(path)
	require.True(t, ok)
	assert.Equal(t, first, cached)

	// A newer mtime invalidates the entry even if the size is unchanged.
	require.NoError(t, fs.Chtimes(path, time.Now(), time.Now().Add(time.Minute)))
	_, ok = cache.Get(path)
	assert.False(t, ok)
}

func TestFileCache_MissingFile(t *testing.T) {
	cache := NewFileCache(afero.NewMemMapFs())
	_, ok := cache.Get("/nope")
	assert.False(t, ok)
}

func TestProfileReader_Credentials(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/.aws/credentials", []byte(credentialsFile), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/home/.aws/config", []byte(configFile), 0o600))
	reader := NewProfileReader(fs, "/home/.aws/credentials", "/home/.aws/config")

	creds, err := reader.Credentials("prod-admin")
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "AKIAEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "token", creds.SessionToken)
	assert.True(t, creds.Temporary())

	creds, err = reader.Credentials("dev")
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.False(t, creds.Temporary())

	creds, err = reader.Credentials("empty-section")
	require.NoError(t, err)
	assert.Nil(t, creds)

	creds, err = reader.Credentials("absent")
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestProfileReader_Config(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/home/.aws/config", []byte(configFile), 0o600))
	reader := NewProfileReader(fs, "/home/.aws/credentials", "/home/.aws/config")

	values, err := reader.Config("sso-prod")
	require.NoError(t, err)
	require.NotNil(t, values)
	assert.Equal(t, "https://example.awsapps.com/start#", values["sso_start_url"])
	assert.Equal(t, "AdminAccess", values["sso_role_name"])

	values, err = reader.Config("absent")
	require.NoError(t, err)
	assert.Nil(t, values)
}
