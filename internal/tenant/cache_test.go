package tenant

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingResolver counts how often it is consulted.
type countingResolver struct {
	next  Resolver
	calls int
}

func (c *countingResolver) Resolve(r *http.Request) (Tenant, error) {
	c.calls++
	return c.next.Resolve(r)
}

func TestCacheHitAvoidsBackingResolver(t *testing.T) {
	backing := &countingResolver{next: NewStaticTokenResolver(map[string]Tenant{
		"tok": {User: "ada", Organization: "x", Role: "admin"},
	})}
	cache := NewCache(backing, time.Minute)

	first, err := cache.Resolve(requestWithToken("tok"))
	require.NoError(t, err)
	second, err := cache.Resolve(requestWithToken("tok"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, backing.calls)
}

func TestCacheExpiryReResolves(t *testing.T) {
	backing := &countingResolver{next: NewStaticTokenResolver(map[string]Tenant{
		"tok": {User: "ada", Organization: "x", Role: "admin"},
	})}
	cache := NewCache(backing, time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }

	_, err := cache.Resolve(requestWithToken("tok"))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cache.Resolve(requestWithToken("tok"))
	require.NoError(t, err)

	assert.Equal(t, 2, backing.calls)
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	backing := &countingResolver{next: NewStaticTokenResolver(nil)}
	cache := NewCache(backing, time.Minute)

	_, err := cache.Resolve(requestWithToken("tok"))
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = cache.Resolve(requestWithToken("tok"))
	require.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, 2, backing.calls)
}

func TestCacheMissingTokenShortCircuits(t *testing.T) {
	backing := &countingResolver{next: NewStaticTokenResolver(nil)}
	cache := NewCache(backing, time.Minute)

	_, err := cache.Resolve(requestWithToken(""))
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, backing.calls)
}
