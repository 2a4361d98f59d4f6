package syncer

import (
	"context"
	"fmt"
	"fxledger/internal/adapters"
	"fxledger/internal/domain"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PassRunner runs one tenant pass; Orchestrator is the production one.
type PassRunner interface {
	SyncTenant(ctx context.Context, tenant domain.Tenant, date time.Time, opts Options) (*domain.SyncResult, error)
}

// FanOut runs tenant passes concurrently, bounded by limit. Each tenant is isolated:
// an error or panic becomes that tenant's single failed outcome and the others carry on.
type FanOut struct {
	tenants adapters.TenantRepository
	passes  PassRunner
	audit   adapters.SyncAuditRepository
	health  adapters.SyncHealthCache
	limit   int
	now     func() time.Time
}

// MaxRangeDays bounds one SyncRange call, both ends included.
const MaxRangeDays = 366

func (f *FanOut) SyncAll(ctx context.Context, date time.Time, tenantIDs []string) (*domain.BatchSyncResult, error) {
	date = domain.Day(date)
	log := logrus.WithField("as_of_date", date.Format(domain.DateLayout))

	tenants, err := f.tenants.ListSyncable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list syncable tenants: %w", err)
	}
	if len(tenantIDs) > 0 {
		tenants = slices.DeleteFunc(tenants, func(t domain.Tenant) bool {
			return !slices.Contains(tenantIDs, t.ID)
		})
	}
	log.Infof("Syncing %d tenants", len(tenants))

	batch := domain.NewBatchSyncResult(date)
	var mu sync.Mutex

	// plain Group: one tenant failing must not cancel its siblings
	var g errgroup.Group
	g.SetLimit(f.limit)
	for _, tenant := range tenants {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := f.runIsolated(ctx, tenant, date)
			mu.Lock()
			batch.Merge(res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.WithFields(logrus.Fields{
		"tenants":   batch.TotalTenants,
		"succeeded": batch.SucceededTenants,
		"failed":    batch.FailedTenants,
	}).Info("Sync of all tenants finished")
	return batch, ctx.Err()
}

// SyncRange runs SyncAll once per calendar day from..to, oldest first. A day counts as synced
// when some tenant recorded an outcome and no tenant failed. On cancellation the days already
// run are returned together with the context error.
func (f *FanOut) SyncRange(ctx context.Context, from, to time.Time, tenantIDs []string) (*domain.RangeSyncResult, error) {
	from, to = domain.Day(from), domain.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is after %s", domain.ErrInvalidRange,
			from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	}
	if days := domain.DaysBetween(from, to) + 1; days > MaxRangeDays {
		return nil, fmt.Errorf("%w: %d days requested, at most %d allowed", domain.ErrInvalidRange, days, MaxRangeDays)
	}

	log := logrus.WithFields(logrus.Fields{
		"date_from": from.Format(domain.DateLayout),
		"date_to":   to.Format(domain.DateLayout),
	})
	log.Info("Range sync started")

	result := domain.NewRangeSyncResult(from, to)
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		batch, err := f.SyncAll(ctx, date, tenantIDs)
		if batch == nil {
			return nil, err
		}
		result.Merge(batch)
		if err != nil {
			log.WithError(err).Warn("Range sync stopped early")
			return result, err
		}
	}

	log.WithFields(logrus.Fields{
		"synced":   len(result.SyncedDates),
		"failed":   len(result.FailedDates),
		"outcomes": result.TotalOutcomes,
	}).Info("Range sync finished")
	return result, nil
}

func (f *FanOut) runIsolated(ctx context.Context, tenant domain.Tenant, date time.Time) (res *domain.SyncResult) {
	log := logrus.WithField("tenant_id", tenant.ID)
	defer func() {
		if p := recover(); p != nil {
			log.WithField("stack", string(debug.Stack())).Errorf("Tenant sync panicked: %v", p)
			res = f.tenantFailure(ctx, tenant.ID, date, fmt.Errorf("panic: %v", p))
		}
	}()

	result, err := f.passes.SyncTenant(ctx, tenant, date, Options{})
	if err != nil {
		if result != nil && result.Interrupted {
			return result
		}
		log.WithError(err).Error("Tenant sync failed")
		return f.tenantFailure(ctx, tenant.ID, date, err)
	}
	return result
}

// tenantFailure builds the result of a pass that could not run, with one failed outcome and no currency.
// The failed pass becomes the tenant's last pass: it replaces the cached health, or drops it
// when the audit row could not be written so the next read goes back to the audit table.
func (f *FanOut) tenantFailure(ctx context.Context, tenantID string, date time.Time, err error) *domain.SyncResult {
	result := domain.NewSyncResult(tenantID, date, uuid.New())
	recordedAt := f.now().UTC()
	outcome := domain.SyncOutcome{
		TenantID:    tenantID,
		AsOfDate:    date,
		Status:      domain.StatusFailed,
		ErrorDetail: err.Error(),
		RecordedAt:  recordedAt,
	}
	result.Add(outcome)
	if appendErr := f.audit.Append(context.WithoutCancel(ctx), result.PassID, outcome); appendErr != nil {
		logrus.WithField("tenant_id", tenantID).WithError(appendErr).Error("failed to append sync audit")
		f.health.Invalidate([]string{tenantID})
		return result
	}
	f.health.Set(domain.SyncHealth{
		TenantID:          tenantID,
		LastPassID:        result.PassID,
		LastPassAt:        &recordedAt,
		LastResultSummary: result.Summary(),
	})
	return result
}

func NewFanOut(
	tenants adapters.TenantRepository,
	passes PassRunner,
	audit adapters.SyncAuditRepository,
	health adapters.SyncHealthCache,
	limit int,
) *FanOut {
	if limit <= 0 {
		limit = 1
	}
	return &FanOut{tenants: tenants, passes: passes, audit: audit, health: health, limit: limit, now: time.Now}
}
