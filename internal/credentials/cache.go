package credentials

import (
	"context"
	"sync"
	"time"

	"video-publisher/internal/logging"
	"video-publisher/internal/metrics"
)

// Cache memoizes credentials per shop. A cached credential is reused
// until its remaining lifetime drops under the leeway, at which point
// the provider is consulted again.
type Cache struct {
	provider Provider
	ttl      time.Duration
	leeway   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]Credential
}

// NewCache wraps provider with per-shop caching. ttl caps how long a
// credential is held even if the issuer granted longer; leeway is the
// safety margin subtracted from expiry. now is injectable for tests and
// defaults to time.Now.
func NewCache(provider Provider, ttl, leeway time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		provider: provider,
		ttl:      ttl,
		leeway:   leeway,
		now:      now,
		entries:  make(map[string]Credential),
	}
}

// Issue returns a cached credential for shopID or fetches a fresh one.
func (c *Cache) Issue(ctx context.Context, shopID string) (Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cred, ok := c.entries[shopID]; ok {
		if c.now().Add(c.leeway).Before(cred.ExpiresAt) {
			metrics.CredentialCacheHits.Inc()
			return cred, nil
		}
		delete(c.entries, shopID)
	}

	metrics.CredentialCacheMisses.Inc()
	cred, err := c.provider.Issue(ctx, shopID)
	if err != nil {
		return Credential{}, err
	}

	// Cap the cached lifetime at the configured ttl.
	capped := c.now().Add(c.ttl)
	if cred.ExpiresAt.After(capped) {
		cred.ExpiresAt = capped
	}

	c.entries[shopID] = cred
	logging.Debug("cached credential for shop %s until %s", shopID, cred.ExpiresAt.Format(time.RFC3339))
	return cred, nil
}

// Invalidate drops any cached credential for shopID.
func (c *Cache) Invalidate(shopID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, shopID)
}
