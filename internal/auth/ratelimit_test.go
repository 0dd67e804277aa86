package auth

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_LockoutAfterThreshold(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(10, time.Minute).WithClock(func() time.Time { return now })

	for i := 0; i < 9; i++ {
		limiter.RecordFailure("bad-token")
	}
	assert.False(t, limiter.Limited("bad-token"))

	limiter.RecordFailure("bad-token")
	assert.True(t, limiter.Limited("bad-token"))
	assert.False(t, limiter.Limited("other-token"), "lockout is per client key")
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := now
	limiter := NewRateLimiter(10, time.Minute).WithClock(func() time.Time { return clock })

	for i := 0; i < 10; i++ {
		limiter.RecordFailure("bad-token")
	}
	require.True(t, limiter.Limited("bad-token"))

	clock = now.Add(61 * time.Second)
	assert.False(t, limiter.Limited("bad-token"), "failures age out of the window")
}

func TestAuthenticator_ValidToken(t *testing.T) {
	fs := afero.NewMemMapFs()
	tokens := NewTokenManager(fs, tokenPath)
	stored, err := tokens.LoadOrCreate()
	require.NoError(t, err)

	auth := NewAuthenticator(tokens, NewRateLimiter(10, time.Minute))
	assert.NoError(t, auth.Authenticate(stored))
}

func TestAuthenticator_FailureTaxonomy(t *testing.T) {
	fs := afero.NewMemMapFs()
	tokens := NewTokenManager(fs, tokenPath)
	_, err := tokens.LoadOrCreate()
	require.NoError(t, err)

	auth := NewAuthenticator(tokens, NewRateLimiter(10, time.Minute))

	assert.ErrorIs(t, auth.Authenticate("bad!"), ErrInvalidFormat)

	wrong, err := GenerateToken()
	require.NoError(t, err)
	assert.ErrorIs(t, auth.Authenticate(wrong), ErrInvalidToken)
}

func TestAuthenticator_RateLimitBeatsValidToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	fs := afero.NewMemMapFs()
	tokens := NewTokenManager(fs, tokenPath)
	stored, err := tokens.LoadOrCreate()
	require.NoError(t, err)

	limiter := NewRateLimiter(10, time.Minute).WithClock(func() time.Time { return now })
	auth := NewAuthenticator(tokens, limiter)

	// Lock out the stored token's client key, then present the correct
	// value: the lockout must win.
	for i := 0; i < 10; i++ {
		limiter.RecordFailure(stored)
	}
	assert.ErrorIs(t, auth.Authenticate(stored), ErrRateLimited)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, auth.Authenticate(stored))
}

func TestAuthenticator_ElevenBadAttempts(t *testing.T) {
	fs := afero.NewMemMapFs()
	tokens := NewTokenManager(fs, tokenPath)
	_, err := tokens.LoadOrCreate()
	require.NoError(t, err)

	auth := NewAuthenticator(tokens, NewRateLimiter(10, time.Minute))

	wrong, err := GenerateToken()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, auth.Authenticate(wrong), ErrInvalidToken)
	}
	assert.ErrorIs(t, auth.Authenticate(wrong), ErrRateLimited)
}
