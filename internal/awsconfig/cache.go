package awsconfig

import (
	"sync"
	"time"

	"github.com/BerryBytes/awsbridge/models"
	"github.com/spf13/afero"
)

type cacheEntry struct {
	modTime  time.Time
	profiles []models.Profile
}

// FileCache caches parsed profile lists keyed by file path, using the
// file's modification time for invalidation. An entry is served only
// while the on-disk mtime still equals the recorded one; any mismatch
// forces a reparse. Entries are replaced wholesale, never mutated.
type FileCache struct {
	fs      afero.Fs
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewFileCache(fs afero.Fs) *FileCache {
	return &FileCache{
		fs:      fs,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached profiles for path if the file has not been
// modified since they were stored.
func (c *FileCache) Get(path string) ([]models.Profile, bool) {
	info, err := c.fs.Stat(path)
	if err != nil {
		return nil, false
	}

	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if !ok || !entry.modTime.Equal(info.ModTime()) {
		return nil, false
	}
	return entry.profiles, true
}

// Set stores profiles against the file's current modification time.
func (c *FileCache) Set(path string, profiles []models.Profile) {
	info, err := c.fs.Stat(path)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{modTime: info.ModTime(), profiles: profiles}
	c.mu.Unlock()
}

// Clear drops every cached entry.
func (c *FileCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
