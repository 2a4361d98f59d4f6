package adapters

import (
	"context"
	"fxledger/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateStore persists one observation per (tenant, currency, date). It never deletes.
type RateStore interface {
	Upsert(ctx context.Context, obs domain.RateObservation) (domain.UpsertResult, error)
	Latest(ctx context.Context, tenantID string, codes []string) ([]domain.RateObservation, error)
	ForDate(ctx context.Context, tenantID string, date time.Time, codes []string) ([]domain.RateObservation, error)
}

type SyncAuditRepository interface {
	Append(ctx context.Context, passID uuid.UUID, outcome domain.SyncOutcome) error
	LastPass(ctx context.Context, tenantID string) (domain.SyncHealth, error)
}

// TenantRepository is the tenant-management subsystem as seen by the sync core.
type TenantRepository interface {
	Get(ctx context.Context, tenantID string) (domain.Tenant, error)
	ListSyncable(ctx context.Context) ([]domain.Tenant, error)
	ListActive(ctx context.Context) ([]domain.Tenant, error)
	SaveCredential(ctx context.Context, tenantID string, expectedVersion int64, cred domain.Credential) error
	MarkNeedsReauthorization(ctx context.Context, tenantID string, reason string) error
	SaveActivatedCurrencies(ctx context.Context, tenantID string, codes []string) error
	TouchLastSync(ctx context.Context, tenantID string, at time.Time) error
}

// LedgerClient talks to the remote accounting system on behalf of one tenant per call.
type LedgerClient interface {
	GetExistingRate(ctx context.Context, tenant domain.Tenant, code string, date time.Time) (domain.RemoteRateRecord, error)
	CreateOrUpdateRate(ctx context.Context, tenant domain.Tenant, code string, date time.Time, rate decimal.Decimal, known *domain.RemoteRateRecord) (domain.RemoteRateRecord, domain.WriteKind, error)
	ListActiveCurrencies(ctx context.Context, tenant domain.Tenant) (map[string]struct{}, error)
	AddCurrency(ctx context.Context, tenant domain.Tenant, code string) error
}

type SyncHealthCache interface {
	Get(tenantID string) (domain.SyncHealth, bool)
	Set(health domain.SyncHealth)
	Invalidate(tenantIDs []string)
}

type EventPublisher interface {
	PublishNeedsReauthorization(ctx context.Context, tenantID string, reason string) error
	PublishPassCompleted(ctx context.Context, result *domain.SyncResult) error
}
