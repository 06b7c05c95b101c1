// Package cache provides the in-process, TTL-bounded tenant-context cache
// backing the read-through resolver.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/infrastructure/monitoring"
)

// TenantCache wraps go-cache with the TenantContextCache contract. Entries
// expire after the configured TTL; there is no explicit fill lock, so
// concurrent misses may each consult the directory once, which is harmless.
type TenantCache struct {
	store   *gocache.Cache
	metrics *monitoring.Metrics
}

// NewTenantCache creates a cache with the given TTL.
func NewTenantCache(ttl time.Duration, metrics *monitoring.Metrics) *TenantCache {
	return &TenantCache{
		store:   gocache.New(ttl, ttl/2),
		metrics: metrics,
	}
}

// Get returns a cached tenant context.
func (c *TenantCache) Get(key string) (*models.TenantContext, bool) {
	value, found := c.store.Get(key)
	if c.metrics != nil {
		c.metrics.RecordCacheEvent(found)
	}
	if !found {
		return nil, false
	}
	return value.(*models.TenantContext), true
}

// Set stores a tenant context under the default TTL. The stored value is
// replaced wholesale on metadata changes, never edited in place.
func (c *TenantCache) Set(key string, tenantCtx *models.TenantContext) {
	c.store.SetDefault(key, tenantCtx)
}

// Invalidate drops an entry ahead of its TTL.
func (c *TenantCache) Invalidate(key string) {
	c.store.Delete(key)
}
