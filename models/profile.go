package models

import "time"

// ProfileSource identifies which configuration file a profile came from.
type ProfileSource string

const (
	ProfileSourceStatic ProfileSource = "static"
	ProfileSourceSSO    ProfileSource = "sso"
)

// Profile is a named AWS account/role configuration discovered from
// the local credentials and config files. Profiles are rebuilt from
// the files on every aggregation pass and never mutated in place.
type Profile struct {
	Name           string        `json:"name"`
	Source         ProfileSource `json:"sourceType"`
	HasCredentials bool          `json:"hasCredentials"`
	Expiration     *time.Time    `json:"expiresAt,omitempty"`
	Expired        bool          `json:"expired"`
	Color          string        `json:"color,omitempty"`
	Icon           string        `json:"icon,omitempty"`
	Region         string        `json:"region,omitempty"`
	SSO            *SSOConfig    `json:"sso,omitempty"`
}

// SSOConfig holds the SSO-specific keys of a config-file profile.
type SSOConfig struct {
	StartURL  string `json:"startUrl"`
	Session   string `json:"session,omitempty"`
	Region    string `json:"ssoRegion"`
	AccountID string `json:"accountId"`
	RoleName  string `json:"roleName"`
}
