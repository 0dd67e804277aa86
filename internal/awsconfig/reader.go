package awsconfig

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/BerryBytes/awsbridge/models"
	"github.com/spf13/afero"
)

// ProfileReader extracts the configuration of a single profile from
// the credentials and config files without going through the parsers'
// whole-file view.
type ProfileReader struct {
	FS              afero.Fs
	CredentialsPath string
	ConfigPath      string
}

func NewProfileReader(fs afero.Fs, credentialsPath, configPath string) *ProfileReader {
	return &ProfileReader{FS: fs, CredentialsPath: credentialsPath, ConfigPath: configPath}
}

// Credentials returns the static credential keys of the named profile,
// or nil when the profile has none.
func (r *ProfileReader) Credentials(profileName string) (*models.AWSCredentials, error) {
	values, err := r.sectionValues(r.CredentialsPath, profileName, false)
	if err != nil || values == nil {
		return nil, err
	}

	creds := &models.AWSCredentials{
		AccessKeyID:     values["aws_access_key_id"],
		SecretAccessKey: values["aws_secret_access_key"],
		SessionToken:    values["aws_session_token"],
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, nil
	}
	return creds, nil
}

// Config returns every key of the named profile's config-file section,
// or nil when the section does not exist.
func (r *ProfileReader) Config(profileName string) (map[string]string, error) {
	return r.sectionValues(r.ConfigPath, profileName, true)
}

func (r *ProfileReader) sectionValues(path, profileName string, stripProfilePrefix bool) (map[string]string, error) {
	file, err := r.FS.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var values map[string]string
	inProfile := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "[") {
			if inProfile {
				break
			}
			name, ok := sectionName(line)
			if !ok {
				continue
			}
			if stripProfilePrefix {
				name = strings.TrimPrefix(name, "profile ")
			}
			if name == profileName {
				inProfile = true
				values = make(map[string]string)
			}
			continue
		}

		if !inProfile {
			continue
		}
		if key, value, ok := splitKeyValue(line); ok {
			values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}
