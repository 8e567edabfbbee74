package cache

import (
	"context"
	"sync"
	"time"

	appbanking "github.com/hanainplan/backend/internal/application/banking"
)

// InMemoryVerificationCache is a process-local verification cache for
// single-instance deployments and tests
type InMemoryVerificationCache struct {
	mu      sync.RWMutex
	entries map[string]inMemoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type inMemoryEntry struct {
	result    appbanking.VerificationResult
	expiresAt time.Time
}

// NewInMemoryVerificationCache creates an in-memory cache with the given TTL
func NewInMemoryVerificationCache(ttl time.Duration) *InMemoryVerificationCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &InMemoryVerificationCache{
		entries: make(map[string]inMemoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached verification result, or (nil, nil) on a miss.
// Expired entries are removed lazily.
func (c *InMemoryVerificationCache) Get(ctx context.Context, accountNumber string) (*appbanking.VerificationResult, error) {
	c.mu.RLock()
	entry, ok := c.entries[accountNumber]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, accountNumber)
		c.mu.Unlock()
		return nil, nil
	}

	result := entry.result
	return &result, nil
}

// Set stores the verification result for the configured TTL
func (c *InMemoryVerificationCache) Set(ctx context.Context, result *appbanking.VerificationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[result.AccountNumber] = inMemoryEntry{
		result:    *result,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Len reports the number of entries, expired ones included
func (c *InMemoryVerificationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryVerificationCache implements VerificationCache
var _ appbanking.VerificationCache = (*InMemoryVerificationCache)(nil)
