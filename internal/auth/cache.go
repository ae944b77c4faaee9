package auth

import (
	"sync"
	"time"
)

// DefaultCredentialTTL bounds how long a verified secret is trusted
// before the store is consulted again.
const DefaultCredentialTTL = 60 * time.Minute

type credentialEntry struct {
	secret   string
	storedAt time.Time
}

// CredentialCache is a write-through cache of verified webhook secrets
// keyed by user ID. It is never the source of truth: entries are only
// written after the store confirmed the secret, so eviction is always
// safe. Safe for concurrent use.
type CredentialCache struct {
	mu      sync.RWMutex
	entries map[string]credentialEntry
	ttl     time.Duration
	hits    int64
	misses  int64

	now func() time.Time
}

// CacheStats summarizes credential cache activity for diagnostics
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// NewCredentialCache creates an empty credential cache with the given TTL
func NewCredentialCache(ttl time.Duration) *CredentialCache {
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}
	return &CredentialCache{
		entries: make(map[string]credentialEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached secret for the user if present and unexpired
func (c *CredentialCache) Get(userID string) (string, bool) {
	c.mu.RLock()
	entry, exists := c.entries[userID]
	c.mu.RUnlock()

	if exists && c.now().Sub(entry.storedAt) <= c.ttl {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return entry.secret, true
	}

	c.mu.Lock()
	if exists {
		// Drop the stale entry so Stats reflects live entries only
		if stale, ok := c.entries[userID]; ok && c.now().Sub(stale.storedAt) > c.ttl {
			delete(c.entries, userID)
		}
	}
	c.misses++
	c.mu.Unlock()
	return "", false
}

// Set records a verified secret for the user
func (c *CredentialCache) Set(userID, secret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = credentialEntry{
		secret:   secret,
		storedAt: c.now(),
	}
}

// Invalidate removes the user's cached secret
func (c *CredentialCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// Stats returns a snapshot of cache activity
func (c *CredentialCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
