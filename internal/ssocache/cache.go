package ssocache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BerryBytes/awsbridge/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var (
	// ErrTokenNotFound means no cached token exists for the start URL.
	ErrTokenNotFound = errors.New("no cached SSO token for start URL")
	// ErrTokenExpired means a token exists but has lapsed; the caller
	// should re-run the external SSO login.
	ErrTokenExpired = errors.New("cached SSO token has expired")
)

// DefaultMemoryTTL bounds how long a token is served from memory
// before the cache re-reads the file tier.
const DefaultMemoryTTL = 30 * time.Second

type memoryEntry struct {
	token    *models.SSOToken
	cachedAt time.Time
}

// Cache resolves SSO access tokens written by `aws sso login` under
// the SSO cache directory. Lookup is two-tier: a short-TTL in-memory
// map, then the file named by the SHA-1 of the start URL. When the
// indexed file is missing (older CLI versions name files differently)
// a full directory scan matching on the embedded startUrl field is
// the fallback; both paths validate expiry identically.
type Cache struct {
	fs     afero.Fs
	dir    string
	ttl    time.Duration
	now    func() time.Time
	mu     sync.RWMutex
	memory map[string]memoryEntry
}

func New(fs afero.Fs, dir string) *Cache {
	return &Cache{
		fs:     fs,
		dir:    dir,
		ttl:    DefaultMemoryTTL,
		now:    time.Now,
		memory: make(map[string]memoryEntry),
	}
}

// WithClock replaces the cache's time source. Tests only.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// WithTTL replaces the memory tier's retention period. Non-positive
// values keep the default.
func (c *Cache) WithTTL(ttl time.Duration) *Cache {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// GetToken returns the cached token for startURL. It reports
// ErrTokenExpired when a matching token exists but has lapsed, and
// ErrTokenNotFound when nothing matches.
func (c *Cache) GetToken(startURL string) (*models.SSOToken, error) {
	startURL = strings.TrimSuffix(startURL, "#")

	if token := c.fromMemory(startURL); token != nil {
		return token, nil
	}

	token, indexedErr := c.fromIndexedFile(startURL)
	if indexedErr == nil {
		c.remember(startURL, token)
		return token, nil
	}

	// An expired indexed file does not end the search: a newer token
	// for the same start URL may live under a different file name.
	token, scanErr := c.scanFiles(startURL)
	if scanErr == nil {
		c.remember(startURL, token)
		return token, nil
	}
	if errors.Is(indexedErr, ErrTokenExpired) || errors.Is(scanErr, ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	return nil, scanErr
}

// Clear drops the memory tier. The file tier is owned by the AWS CLI
// and is never touched.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.memory = make(map[string]memoryEntry)
	c.mu.Unlock()
}

func (c *Cache) fromMemory(startURL string) *models.SSOToken {
	c.mu.RLock()
	entry, ok := c.memory[startURL]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	now := c.now()
	if now.Sub(entry.cachedAt) >= c.ttl || !entry.token.Valid(now) {
		c.mu.Lock()
		delete(c.memory, startURL)
		c.mu.Unlock()
		return nil
	}
	return entry.token
}

func (c *Cache) remember(startURL string, token *models.SSOToken) {
	c.mu.Lock()
	c.memory[startURL] = memoryEntry{token: token, cachedAt: c.now()}
	c.mu.Unlock()
}

// IndexPath returns the cache file path the AWS CLI derives from a
// start URL: the hex SHA-1 of the URL, with a .json suffix.
func (c *Cache) IndexPath(startURL string) string {
	sum := sha1.Sum([]byte(startURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

func (c *Cache) fromIndexedFile(startURL string) (*models.SSOToken, error) {
	token, err := c.readTokenFile(c.IndexPath(startURL))
	if err != nil {
		return nil, ErrTokenNotFound
	}
	// The file name only hints at the owner; the embedded startUrl
	// decides. A foreign token at the index path must not shadow the
	// scan, which would make the two lookup paths disagree.
	if token.StartURL != startURL {
		return nil, ErrTokenNotFound
	}
	if !token.Valid(c.now()) {
		return nil, ErrTokenExpired
	}
	return token, nil
}

func (c *Cache) scanFiles(startURL string) (*models.SSOToken, error) {
	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read SSO cache directory: %w", err)
	}

	foundExpired := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		token, err := c.readTokenFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			continue
		}
		if token.StartURL != startURL {
			continue
		}
		if token.Valid(c.now()) {
			return token, nil
		}
		foundExpired = true
	}

	if foundExpired {
		return nil, ErrTokenExpired
	}
	return nil, ErrTokenNotFound
}

func (c *Cache) readTokenFile(path string) (*models.SSOToken, error) {
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, err
	}

	var raw struct {
		StartURL    string `json:"startUrl"`
		AccessToken string `json:"accessToken"`
		Region      string `json:"region"`
		ExpiresAt   string `json:"expiresAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		logrus.Debugf("Skipping unreadable SSO cache file %s: %v", filepath.Base(path), err)
		return nil, err
	}
	if raw.AccessToken == "" || raw.ExpiresAt == "" {
		return nil, fmt.Errorf("cache file %s has no token", filepath.Base(path))
	}

	// Older CLI versions write "2024-01-02T15:04:05UTC" instead of a Z suffix.
	expiresAt, err := time.Parse(time.RFC3339, strings.Replace(raw.ExpiresAt, "UTC", "Z", 1))
	if err != nil {
		return nil, fmt.Errorf("invalid expiration time in %s: %w", filepath.Base(path), err)
	}

	return &models.SSOToken{
		StartURL:    strings.TrimSuffix(raw.StartURL, "#"),
		AccessToken: raw.AccessToken,
		Region:      raw.Region,
		ExpiresAt:   expiresAt,
	}, nil
}
