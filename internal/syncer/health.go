package syncer

import (
	"context"
	"fmt"
	"fxledger/internal/adapters"
	"fxledger/internal/domain"
)

// HealthService answers "when did this tenant last sync and how did it go".
// The cache is filled by finished passes and by audit lookups.
type HealthService struct {
	tenants adapters.TenantRepository
	audit   adapters.SyncAuditRepository
	cache   adapters.SyncHealthCache
}

func (s *HealthService) GetSyncHealth(ctx context.Context, tenantID string) (domain.SyncHealth, error) {
	if health, ok := s.cache.Get(tenantID); ok {
		return health, nil
	}

	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return domain.SyncHealth{}, err
	}
	health, err := s.audit.LastPass(ctx, tenantID)
	if err != nil {
		return domain.SyncHealth{}, fmt.Errorf("failed to read last pass: %w", err)
	}
	if health.LastPassAt != nil {
		s.cache.Set(health)
	}
	return health, nil
}

func NewHealthService(tenants adapters.TenantRepository, audit adapters.SyncAuditRepository, cache adapters.SyncHealthCache) *HealthService {
	return &HealthService{tenants: tenants, audit: audit, cache: cache}
}
