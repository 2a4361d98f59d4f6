package rate

import (
	"cmp"
	"context"
	"fmt"
	"fxledger/internal/domain"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const numWorkers = 5

// DailyRates is one scraped publication: foreign currency code -> home units per 1 foreign unit.
// The same figures are stored for every tenant, or only for TenantIDs when given.
type DailyRates struct {
	AsOfDate   time.Time
	Rates      map[string]decimal.Decimal
	TenantIDs  []string
	ObservedAt time.Time
}

type IngestFailure struct {
	TenantID     string `json:"tenant_id"`
	CurrencyCode string `json:"currency_code"`
	Error        string `json:"error"`
}

type IngestResult struct {
	AsOfDate  time.Time       `json:"-"`
	Tenants   int             `json:"tenants"`
	New       int             `json:"new"`
	Changed   int             `json:"changed"`
	Unchanged int             `json:"unchanged"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Failures  []IngestFailure `json:"failures,omitempty"`
}

type tenantIngest struct {
	results  map[domain.UpsertResult]int
	skipped  int
	failures []IngestFailure
}

// Ingest stores one scraped day for the selected tenants.
// A failure for one tenant/currency is reported and does not stop the others.
func (s *Service) Ingest(ctx context.Context, execID string, day DailyRates) (IngestResult, error) {
	log := logrus.WithFields(logrus.Fields{"exec_id": execID, "as_of_date": day.AsOfDate.Format(domain.DateLayout)})

	// STEP 1: resolving the tenants the publication goes to
	tenants, err := s.resolveTenants(ctx, day.TenantIDs)
	if err != nil {
		return IngestResult{}, err
	}
	result := IngestResult{AsOfDate: domain.Day(day.AsOfDate), Tenants: len(tenants)}
	if len(tenants) == 0 {
		log.Info("No active tenants, nothing to ingest")
		return result, nil
	}
	if day.ObservedAt.IsZero() {
		day.ObservedAt = s.now().UTC()
	}
	log.Infof("Ingesting %d rates for %d tenants", len(day.Rates), len(tenants))

	// STEP 2: feeding tenants to a small worker pool; each worker records every rate of its tenant
	workQueue := make(chan domain.Tenant, len(tenants))
	for _, tenant := range tenants {
		workQueue <- tenant
	}
	close(workQueue)

	codes := slices.Sorted(maps.Keys(day.Rates))
	doneCh := make(chan tenantIngest, len(tenants))

	var wg sync.WaitGroup
	for i := 0; i < min(numWorkers, len(tenants)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tenant := range workQueue {
				if ctx.Err() != nil {
					return
				}
				doneCh <- s.ingestTenant(ctx, tenant, codes, day)
			}
		}()
	}

	wg.Wait()
	close(doneCh)

	// STEP 3: folding per-tenant counters into the result
	for done := range doneCh {
		result.New += done.results[domain.UpsertNew]
		result.Changed += done.results[domain.UpsertChanged]
		result.Unchanged += done.results[domain.UpsertUnchanged]
		result.Skipped += done.skipped
		result.Failed += len(done.failures)
		result.Failures = append(result.Failures, done.failures...)
	}
	slices.SortFunc(result.Failures, func(a, b IngestFailure) int {
		if a.TenantID != b.TenantID {
			return cmp.Compare(a.TenantID, b.TenantID)
		}
		return cmp.Compare(a.CurrencyCode, b.CurrencyCode)
	})

	if err = ctx.Err(); err != nil {
		return result, err
	}
	log.WithFields(logrus.Fields{
		"new": result.New, "changed": result.Changed, "unchanged": result.Unchanged, "failed": result.Failed,
	}).Info("Ingest finished")
	return result, nil
}

func (s *Service) ingestTenant(ctx context.Context, tenant domain.Tenant, codes []string, day DailyRates) tenantIngest {
	done := tenantIngest{results: make(map[domain.UpsertResult]int, 3)}
	for _, code := range codes {
		if code == tenant.HomeCurrency {
			done.skipped++
			continue
		}
		res, err := s.Record(ctx, domain.RateObservation{
			TenantID:     tenant.ID,
			CurrencyCode: code,
			AsOfDate:     day.AsOfDate,
			Rate:         day.Rates[code],
			ObservedAt:   day.ObservedAt,
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{"tenant_id": tenant.ID, "currency": code}).WithError(err).Error("Failed to record rate")
			done.failures = append(done.failures, IngestFailure{TenantID: tenant.ID, CurrencyCode: code, Error: err.Error()})
			continue
		}
		done.results[res]++
	}
	return done
}

// resolveTenants defaults to every active tenant, syncable or not, so a tenant waiting for
// re-authorization still has the days it missed stored when it comes back.
func (s *Service) resolveTenants(ctx context.Context, ids []string) ([]domain.Tenant, error) {
	if len(ids) == 0 {
		tenants, err := s.tenants.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tenants: %w", err)
		}
		return tenants, nil
	}

	tenants := make([]domain.Tenant, 0, len(ids))
	for _, id := range ids {
		tenant, err := s.tenants.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}
