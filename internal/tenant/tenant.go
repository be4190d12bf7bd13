// Package tenant resolves Maximo tenant credentials and API roots from
// configuration. Resolution happens once per request, before any network call.
package tenant

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/config"
)

// Context is the resolved identity of one Maximo tenant for one request.
type Context struct {
	ID         string
	BaseAPIURL string
	APIKey     string
	User       string
	Password   string
}

// Registry looks up tenants by id.
type Registry struct {
	tenants map[string]config.TenantConfig
}

// NewRegistry builds a registry over the configured tenant table.
func NewRegistry(tenants map[string]config.TenantConfig) *Registry {
	if tenants == nil {
		tenants = map[string]config.TenantConfig{}
	}
	return &Registry{tenants: tenants}
}

// Resolve returns the tenant context for id with a normalized API root.
// An unknown tenant or an unusable base URL fails here, never mid-run.
func (r *Registry) Resolve(id string) (*Context, error) {
	cfg, ok := r.tenants[id]
	if !ok {
		return nil, fmt.Errorf("unknown tenant %q", id)
	}

	base, err := NormalizeBaseURL(cfg.BaseAPIURL)
	if err != nil {
		return nil, fmt.Errorf("tenant %q: %w", id, err)
	}

	return &Context{
		ID:         id,
		BaseAPIURL: base,
		APIKey:     cfg.APIKey,
		User:       cfg.User,
		Password:   cfg.Password,
	}, nil
}

// NormalizeBaseURL trims whitespace and trailing slashes and verifies the
// result is a non-empty absolute URL.
func NormalizeBaseURL(raw string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return "", fmt.Errorf("base API URL is empty")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base API URL %q is not an absolute URL", raw)
	}
	return base, nil
}
