package awsconfig

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BerryBytes/awsbridge/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ProfileParser parses one AWS configuration file into profiles.
type ProfileParser interface {
	Parse() ([]models.Profile, error)
}

var expirationPattern = regexp.MustCompile(`Expires\s+(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2})`)

var credentialKeys = map[string]bool{
	"aws_access_key_id":     true,
	"aws_secret_access_key": true,
	"aws_session_token":     true,
}

// CredentialsParser parses the static credentials file (~/.aws/credentials).
type CredentialsParser struct {
	FS    afero.Fs
	Path  string
	Cache *FileCache
	Now   func() time.Time
}

func NewCredentialsParser(fs afero.Fs, path string, cache *FileCache) *CredentialsParser {
	return &CredentialsParser{FS: fs, Path: path, Cache: cache, Now: time.Now}
}

// Parse returns one profile per section. A missing file yields an
// empty list, not an error. Malformed sections are skipped with a
// warning; the rest of the file still parses.
func (p *CredentialsParser) Parse() ([]models.Profile, error) {
	if cached, ok := p.Cache.Get(p.Path); ok {
		return cached, nil
	}

	file, err := p.FS.Open(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Profile{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", p.Path, err)
	}
	defer file.Close()

	profiles := []models.Profile{}
	var current *models.Profile

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "[") {
			if current != nil {
				profiles = append(profiles, *current)
			}
			current = nil

			name, ok := sectionName(line)
			if !ok {
				logrus.Warnf("Skipping malformed section in %s: %q", p.Path, line)
				continue
			}
			current = &models.Profile{Name: name, Source: models.ProfileSourceStatic}
			continue
		}

		if current == nil {
			continue
		}

		if strings.HasPrefix(line, "#") && strings.Contains(line, "Expires") {
			if expiry, ok := parseExpiration(line); ok {
				current.Expiration = &expiry
				current.Expired = expiry.Before(p.Now())
			}
			continue
		}

		if key, _, ok := splitKeyValue(line); ok && credentialKeys[key] {
			current.HasCredentials = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.Path, err)
	}

	if current != nil {
		profiles = append(profiles, *current)
	}

	p.Cache.Set(p.Path, profiles)
	return profiles, nil
}

// ConfigParser parses the profile config file (~/.aws/config),
// keeping only SSO profiles.
type ConfigParser struct {
	FS    afero.Fs
	Path  string
	Cache *FileCache
}

func NewConfigParser(fs afero.Fs, path string, cache *FileCache) *ConfigParser {
	return &ConfigParser{FS: fs, Path: path, Cache: cache}
}

func (p *ConfigParser) Parse() ([]models.Profile, error) {
	if cached, ok := p.Cache.Get(p.Path); ok {
		return cached, nil
	}

	file, err := p.FS.Open(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Profile{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", p.Path, err)
	}
	defer file.Close()

	profiles := []models.Profile{}
	var current *models.Profile
	var sso models.SSOConfig

	flush := func() {
		if current == nil {
			return
		}
		// Only profiles carrying an SSO marker belong to this file's output.
		if sso.StartURL != "" || sso.Session != "" {
			ssoCopy := sso
			current.SSO = &ssoCopy
			if current.SSO.Region == "" {
				current.SSO.Region = "us-east-1"
			}
			// Role credentials resolve on demand, so the profile is usable
			// until enrichment proves otherwise.
			current.HasCredentials = true
			profiles = append(profiles, *current)
		}
		current = nil
		sso = models.SSOConfig{}
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "[") {
			flush()

			name, ok := sectionName(line)
			if !ok {
				logrus.Warnf("Skipping malformed section in %s: %q", p.Path, line)
				continue
			}
			name = strings.TrimPrefix(name, "profile ")
			current = &models.Profile{Name: name, Source: models.ProfileSourceSSO}
			continue
		}

		if current == nil {
			continue
		}

		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		switch key {
		case "sso_start_url":
			sso.StartURL = strings.TrimSuffix(value, "#")
		case "sso_session":
			sso.Session = value
		case "sso_region":
			sso.Region = value
		case "sso_account_id":
			sso.AccountID = value
		case "sso_role_name":
			sso.RoleName = value
		case "region":
			current.Region = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.Path, err)
	}
	flush()

	p.Cache.Set(p.Path, profiles)
	return profiles, nil
}

func sectionName(line string) (string, bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", false
	}
	name := strings.TrimSpace(line[1 : len(line)-1])
	if name == "" {
		return "", false
	}
	return name, true
}

func splitKeyValue(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func parseExpiration(comment string) (time.Time, bool) {
	match := expirationPattern.FindStringSubmatch(comment)
	if match == nil {
		return time.Time{}, false
	}
	expiry, err := time.ParseInLocation("2006-01-02 15:04:05", match[1], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return expiry, true
}
