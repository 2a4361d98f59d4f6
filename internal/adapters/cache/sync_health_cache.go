package cache

import (
	"fmt"
	"fxledger/internal/domain"

	"github.com/dgraph-io/ristretto"
)

// RistrettoSyncHealthCache keeps the last pass summary per tenant in front of the audit table.
type RistrettoSyncHealthCache struct {
	cache *ristretto.Cache
}

func NewSyncHealthCache(maxItems int64) (*RistrettoSyncHealthCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create sync health cache failed: %w", err)
	}
	return &RistrettoSyncHealthCache{cache: c}, nil
}

func (c *RistrettoSyncHealthCache) Get(tenantID string) (domain.SyncHealth, bool) {
	if v, ok := c.cache.Get(tenantID); ok {
		health, ok := v.(domain.SyncHealth)
		return health, ok
	}
	return domain.SyncHealth{}, false
}

// Set is asynchronous: a Get right after it may still miss.
func (c *RistrettoSyncHealthCache) Set(health domain.SyncHealth) {
	c.cache.Set(health.TenantID, health, 1)
}

func (c *RistrettoSyncHealthCache) Invalidate(tenantIDs []string) {
	for _, id := range tenantIDs {
		c.cache.Del(id)
	}
}

func (c *RistrettoSyncHealthCache) Close() { c.cache.Close() }
