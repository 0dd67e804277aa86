package profile

import (
	"fmt"
	"sort"
	"time"

	"github.com/BerryBytes/awsbridge/internal/awsconfig"
	"github.com/BerryBytes/awsbridge/internal/ssocache"
	"github.com/BerryBytes/awsbridge/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// TokenCache is the slice of the SSO token cache the aggregator needs.
type TokenCache interface {
	GetToken(startURL string) (*models.SSOToken, error)
}

// Options controls a single aggregation pass.
type Options struct {
	// EnrichSSO validates each SSO profile's cached token, which may
	// touch the filesystem per profile. The fast path leaves token
	// state unknown.
	EnrichSSO bool
}

// Aggregator merges static and SSO profiles into one normalized,
// name-sorted list. A fresh list is built on every call; nothing is
// mutated across calls.
type Aggregator struct {
	FS           afero.Fs
	Credentials  awsconfig.ProfileParser
	Config       awsconfig.ProfileParser
	Tokens       TokenCache
	Metadata     *MetadataProvider
	SentinelPath string
	Now          func() time.Time
}

func NewAggregator(
	fs afero.Fs,
	credentials, config awsconfig.ProfileParser,
	tokens TokenCache,
	metadata *MetadataProvider,
	sentinelPath string,
) *Aggregator {
	return &Aggregator{
		FS:           fs,
		Credentials:  credentials,
		Config:       config,
		Tokens:       tokens,
		Metadata:     metadata,
		SentinelPath: sentinelPath,
		Now:          time.Now,
	}
}

// Profiles returns every known profile. SSO enumeration is skipped
// entirely when the sentinel opt-out file exists, regardless of the
// requested options.
func (a *Aggregator) Profiles(opts Options) ([]models.Profile, error) {
	static, err := a.Credentials.Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	merged := make(map[string]models.Profile, len(static))
	for _, p := range static {
		merged[p.Name] = p
	}

	if a.ssoDisabled() {
		logrus.Info("SSO opt-out sentinel present, skipping SSO profile enumeration")
	} else {
		ssoProfiles, err := a.Config.Parse()
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		for _, p := range ssoProfiles {
			if opts.EnrichSSO {
				a.enrich(&p)
			}
			// SSO wins when a name exists in both files.
			merged[p.Name] = p
		}
	}

	profiles := make([]models.Profile, 0, len(merged))
	for _, p := range merged {
		a.Metadata.Apply(&p)
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

func (a *Aggregator) ssoDisabled() bool {
	_, err := a.FS.Stat(a.SentinelPath)
	return err == nil
}

// enrich stamps token expiry state onto an SSO profile. A missing or
// expired token means the profile cannot open a session right now.
func (a *Aggregator) enrich(p *models.Profile) {
	if p.SSO == nil || p.SSO.StartURL == "" {
		return
	}

	token, err := a.Tokens.GetToken(p.SSO.StartURL)
	if err != nil {
		p.Expired = true
		p.HasCredentials = false
		return
	}

	expiresAt := token.ExpiresAt
	p.Expiration = &expiresAt
	p.Expired = expiresAt.Before(a.Now())
	p.HasCredentials = !p.Expired
}

var _ TokenCache = (*ssocache.Cache)(nil)
