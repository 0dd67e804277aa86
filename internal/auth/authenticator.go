package auth

import "errors"

var (
	// ErrRateLimited rejects a client with too many recent failures.
	// The same error is returned whether or not the token was valid.
	ErrRateLimited = errors.New("too many failed authentication attempts")
	// ErrInvalidFormat rejects tokens that fail the pure shape check.
	ErrInvalidFormat = errors.New("malformed API token")
	// ErrInvalidToken rejects well-formed tokens that do not match the
	// stored value.
	ErrInvalidToken = errors.New("invalid API token")
)

// Authenticator combines token validation with failure rate limiting.
// The rate limit is checked first so lockouts are uniform regardless
// of token correctness.
type Authenticator struct {
	Tokens  *TokenManager
	Limiter *RateLimiter
}

func NewAuthenticator(tokens *TokenManager, limiter *RateLimiter) *Authenticator {
	return &Authenticator{Tokens: tokens, Limiter: limiter}
}

// Authenticate validates a bearer token, recording failures.
func (a *Authenticator) Authenticate(token string) error {
	if a.Limiter.Limited(token) {
		return ErrRateLimited
	}

	if !ValidateFormat(token) {
		a.Limiter.RecordFailure(token)
		return ErrInvalidFormat
	}
	if !a.Tokens.Validate(token) {
		a.Limiter.RecordFailure(token)
		return ErrInvalidToken
	}
	return nil
}
