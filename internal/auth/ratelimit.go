package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter tracks failed authentication attempts per client key in
// a sliding window. Once the window holds the threshold, every
// attempt is rejected until old failures age out, valid token or not.
type RateLimiter struct {
	max      int
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:      max,
		window:   window,
		now:      time.Now,
		attempts: make(map[string][]time.Time),
	}
}

// WithClock replaces the limiter's time source. Tests only.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// Limited reports whether the client behind token is currently locked out.
func (r *RateLimiter) Limited(token string) bool {
	key := clientKey(token)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(key)
	return len(r.attempts[key]) >= r.max
}

// RecordFailure adds a failed attempt for the client behind token.
func (r *RateLimiter) RecordFailure(token string) {
	key := clientKey(token)

	r.mu.Lock()
	r.attempts[key] = append(r.attempts[key], r.now())
	count := len(r.attempts[key])
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"client":   key[:8],
		"failures": count,
	}).Warn("Failed authentication attempt")
}

func (r *RateLimiter) prune(key string) {
	cutoff := r.now().Add(-r.window)
	kept := r.attempts[key][:0]
	for _, t := range r.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(r.attempts, key)
		return
	}
	r.attempts[key] = kept
}

// clientKey hashes the presented token so raw values never key the
// map or reach the logs.
func clientKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
