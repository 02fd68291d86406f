// Package tenant resolves the caller's organization scope for watch routes.
//
// The dashboard proper does not own authentication: a deployment wires in a
// Resolver backed by its session store. The package ships a static
// token-table resolver for stand-alone use and a read-only TTL cache that
// keeps hot-path resolution off the backing store.
package tenant

import (
	"errors"
	"net/http"
	"strings"
)

// Sentinel errors a Resolver reports before any streaming begins.
var (
	// ErrUnauthorized means no valid session accompanies the request (401).
	ErrUnauthorized = errors.New("tenant: unauthorized")

	// ErrForbidden means the session is valid but carries no access to an
	// organization (403).
	ErrForbidden = errors.New("tenant: forbidden")
)

// Tenant is the resolved caller identity a watch route scopes to.
type Tenant struct {
	User         string
	Organization string
	Role         string
}

// Resolver resolves the caller's tenant from an inbound request, or fails
// with ErrUnauthorized / ErrForbidden.
type Resolver interface {
	Resolve(r *http.Request) (Tenant, error)
}

// StaticTokenResolver maps bearer tokens to tenants. Intended for
// stand-alone deployments and tests; production wires a session-store
// backed Resolver instead.
type StaticTokenResolver struct {
	tenants map[string]Tenant
}

// NewStaticTokenResolver creates a resolver over a fixed token table.
func NewStaticTokenResolver(tenants map[string]Tenant) *StaticTokenResolver {
	copied := make(map[string]Tenant, len(tenants))
	for k, v := range tenants {
		copied[k] = v
	}
	return &StaticTokenResolver{tenants: copied}
}

// Resolve looks up the request's bearer token in the table.
func (s *StaticTokenResolver) Resolve(r *http.Request) (Tenant, error) {
	token := BearerToken(r)
	if token == "" {
		return Tenant{}, ErrUnauthorized
	}
	t, ok := s.tenants[token]
	if !ok {
		return Tenant{}, ErrUnauthorized
	}
	if t.Organization == "" {
		return Tenant{}, ErrForbidden
	}
	return t, nil
}

// BearerToken extracts the bearer token from the Authorization header.
// Returns "" when absent or malformed.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return auth[len(prefix):]
}
