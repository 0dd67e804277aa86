package models

import "time"

// AWSCredentials is a resolved credential set for a profile, either
// read from the credentials file or fetched for an SSO role.
type AWSCredentials struct {
	AccessKeyID     string     `json:"accessKeyId"`
	SecretAccessKey string     `json:"secretAccessKey"`
	SessionToken    string     `json:"sessionToken,omitempty"`
	Expiration      *time.Time `json:"expiration,omitempty"`
}

// Temporary reports whether the credential set carries a session
// token and therefore can be exchanged at the federation endpoint.
func (c *AWSCredentials) Temporary() bool {
	return c.SessionToken != ""
}
