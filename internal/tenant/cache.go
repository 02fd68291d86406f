package tenant

import (
	"net/http"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how stale a cached tenant resolution may be.
const DefaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	tenant  Tenant
	expires time.Time
}

// Cache is a read-only TTL memo over a Resolver, keyed by bearer token.
// Streams resolve their tenant once at setup; the cache exists so many
// short-lived reconnecting clients don't hammer the backing store.
// Failures are not cached. Safe for concurrent use.
type Cache struct {
	next Resolver
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache wraps next with a TTL cache. ttl <= 0 uses DefaultCacheTTL.
func NewCache(next Resolver, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Resolve returns the cached tenant for the request's bearer token when
// fresh, delegating to the wrapped Resolver otherwise.
func (c *Cache) Resolve(r *http.Request) (Tenant, error) {
	token := BearerToken(r)
	if token == "" {
		return Tenant{}, ErrUnauthorized
	}

	c.mu.RLock()
	entry, ok := c.entries[token]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.tenant, nil
	}

	t, err := c.next.Resolve(r)
	if err != nil {
		return Tenant{}, err
	}

	c.mu.Lock()
	c.entries[token] = cacheEntry{tenant: t, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return t, nil
}
