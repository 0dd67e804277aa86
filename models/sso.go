package models

import "time"

// SSOToken is a cached access token written by `aws sso login`. This
// service only ever reads these tokens, it never creates them.
type SSOToken struct {
	StartURL    string    `json:"startUrl"`
	AccessToken string    `json:"accessToken"`
	Region      string    `json:"region"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Valid reports whether the token has not yet lapsed at the given time.
func (t *SSOToken) Valid(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}
