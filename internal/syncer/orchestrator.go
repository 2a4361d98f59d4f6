package syncer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"fxledger/internal/adapters"
	"fxledger/internal/domain"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options narrows a pass. Currencies limits the codes attempted; ResumeAfter skips every code
// up to and including it, so an interrupted pass can continue where it stopped.
type Options struct {
	Currencies  []string
	ResumeAfter string
}

// Orchestrator pushes the stored rates of one date to a tenant's remote ledger.
type Orchestrator struct {
	store      adapters.RateStore
	tenants    adapters.TenantRepository
	ledger     adapters.LedgerClient
	activation *ActivationManager
	audit      adapters.SyncAuditRepository
	health     adapters.SyncHealthCache
	events     adapters.EventPublisher
	// -----
	locks *keyedMutex
	now   func() time.Time
}

func (o *Orchestrator) SyncOne(ctx context.Context, tenantID string, date time.Time, opts Options) (*domain.SyncResult, error) {
	tenant, err := o.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return o.SyncTenant(ctx, tenant, date, opts)
}

// SyncTenant runs one pass. Currencies go in ascending code order and every attempted one
// gets an outcome; a failing currency never stops the rest. When ctx is canceled the pass
// stops after the current currency and returns the partial result with ctx's error.
func (o *Orchestrator) SyncTenant(ctx context.Context, tenant domain.Tenant, date time.Time, opts Options) (*domain.SyncResult, error) {
	if tenant.NeedsReauthorization {
		return nil, fmt.Errorf("%w: tenant %s needs re-authorization", domain.ErrAuthentication, tenant.ID)
	}

	unlock := o.locks.Lock(tenant.ID)
	defer unlock()

	date = domain.Day(date)
	result := domain.NewSyncResult(tenant.ID, date, uuid.New())
	log := logrus.WithFields(logrus.Fields{
		"tenant_id":  tenant.ID,
		"pass_id":    result.PassID,
		"as_of_date": date.Format(domain.DateLayout),
	})

	// STEP 1: loading the stored observations the pass has to push
	observations, err := o.store.ForDate(ctx, tenant.ID, date, opts.Currencies)
	if err != nil {
		return nil, fmt.Errorf("failed to load rates for %s: %w", tenant.ID, err)
	}
	work := plan(tenant, observations, opts)
	if len(work) == 0 {
		log.Info("No rates to sync")
		o.finish(ctx, tenant, result, nil)
		return result, nil
	}
	log.Infof("Syncing %d currencies", len(work))

	// STEP 2: one activation listing per pass
	activations, err := o.activation.Begin(ctx, tenant)
	if err != nil {
		log.WithError(err).Error("Failed to read remote currencies, failing the pass")
		for _, obs := range work {
			o.record(ctx, result, failedOutcome(obs, err))
		}
		o.finish(ctx, tenant, result, nil)
		return result, nil
	}

	// STEP 3: currency by currency state machine
	var authErr error
	for _, obs := range work {
		var outcome domain.SyncOutcome
		if authErr != nil {
			outcome = failedOutcome(obs, authErr)
		} else {
			var syncErr error
			outcome, syncErr = o.syncCurrency(ctx, tenant, activations, obs)
			if syncErr != nil && ctx.Err() != nil {
				// the currency was cut off midway, leave it to the resumed pass
				result.Interrupted = true
				break
			}
			if errors.Is(syncErr, domain.ErrAuthentication) {
				authErr = syncErr
				log.WithError(syncErr).Error("Authentication failed, remaining currencies will not be attempted")
			}
		}

		o.record(ctx, result, outcome)

		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}
	}

	if result.Interrupted {
		log.WithField("recorded", result.Total).Warn("Sync pass interrupted")
		o.finish(context.WithoutCancel(ctx), tenant, result, activations)
		return result, ctx.Err()
	}

	o.finish(ctx, tenant, result, activations)
	return result, nil
}

// syncCurrency walks one currency from activation to the remote write and returns its outcome.
func (o *Orchestrator) syncCurrency(
	ctx context.Context,
	tenant domain.Tenant,
	activations *ActivationSet,
	obs domain.RateObservation,
) (domain.SyncOutcome, error) {
	code := obs.CurrencyCode

	if _, err := activations.EnsureActive(ctx, code); err != nil {
		return failedOutcome(obs, err), err
	}

	var known *domain.RemoteRateRecord
	existing, err := o.ledger.GetExistingRate(ctx, tenant, code, obs.AsOfDate)
	switch {
	case err == nil:
		known = &existing
	case errors.Is(err, domain.ErrRemoteRateNotFound):
	default:
		return failedOutcome(obs, err), err
	}

	if known != nil && known.Rate.Equal(obs.Rate) {
		return outcomeWith(obs, domain.StatusUnchanged), nil
	}

	_, kind, err := o.ledger.CreateOrUpdateRate(ctx, tenant, code, obs.AsOfDate, obs.Rate, known)
	if err != nil {
		return failedOutcome(obs, err), err
	}
	if kind == domain.WriteUpdated {
		return outcomeWith(obs, domain.StatusUpdated), nil
	}
	return outcomeWith(obs, domain.StatusCreated), nil
}

func (o *Orchestrator) record(ctx context.Context, result *domain.SyncResult, outcome domain.SyncOutcome) {
	outcome.RecordedAt = o.now().UTC()
	result.Add(outcome)

	log := logrus.WithFields(logrus.Fields{
		"tenant_id": outcome.TenantID,
		"pass_id":   result.PassID,
		"currency":  outcome.CurrencyCode,
		"status":    outcome.Status,
	})
	if outcome.Status == domain.StatusFailed {
		log.WithField("error_detail", outcome.ErrorDetail).Warn("currency sync failed")
	} else {
		log.Debug("currency synced")
	}

	if err := o.audit.Append(context.WithoutCancel(ctx), result.PassID, outcome); err != nil {
		log.WithError(err).Error("failed to append sync audit")
	}
}

// finish runs the pass bookkeeping. Its failures are logged; the pass result stands.
func (o *Orchestrator) finish(ctx context.Context, tenant domain.Tenant, result *domain.SyncResult, activations *ActivationSet) {
	log := logrus.WithFields(logrus.Fields{"tenant_id": tenant.ID, "pass_id": result.PassID})
	now := o.now().UTC()

	if activations != nil {
		if err := o.tenants.SaveActivatedCurrencies(ctx, tenant.ID, activations.Codes()); err != nil {
			log.WithError(err).Warn("failed to save activated currencies")
		}
	}
	if err := o.tenants.TouchLastSync(ctx, tenant.ID, now); err != nil {
		log.WithError(err).Warn("failed to update last sync time")
	}
	if result.Total > 0 {
		o.health.Set(domain.SyncHealth{
			TenantID:          tenant.ID,
			LastPassID:        result.PassID,
			LastPassAt:        &now,
			LastResultSummary: result.Summary(),
		})
	}
	if err := o.events.PublishPassCompleted(ctx, result); err != nil {
		log.WithError(err).Warn("failed to publish pass completed event")
	}

	log.WithFields(logrus.Fields{
		"total":       result.Total,
		"succeeded":   result.Succeeded,
		"failed":      result.Failed,
		"interrupted": result.Interrupted,
	}).Info("Sync pass finished")
}

// plan orders the observations by code and drops the ones the pass must not attempt.
func plan(tenant domain.Tenant, observations []domain.RateObservation, opts Options) []domain.RateObservation {
	sortByCode(observations)
	work := make([]domain.RateObservation, 0, len(observations))
	for _, obs := range observations {
		if opts.ResumeAfter != "" && obs.CurrencyCode <= opts.ResumeAfter {
			continue
		}
		if obs.CurrencyCode == tenant.HomeCurrency {
			logrus.WithFields(logrus.Fields{"tenant_id": tenant.ID, "currency": obs.CurrencyCode}).
				Debug("skipping home currency")
			continue
		}
		work = append(work, obs)
	}
	return work
}

func sortByCode(observations []domain.RateObservation) {
	slices.SortStableFunc(observations, func(a, b domain.RateObservation) int {
		return cmp.Compare(a.CurrencyCode, b.CurrencyCode)
	})
}

func outcomeWith(obs domain.RateObservation, status domain.SyncStatus) domain.SyncOutcome {
	return domain.SyncOutcome{
		TenantID:     obs.TenantID,
		CurrencyCode: obs.CurrencyCode,
		AsOfDate:     obs.AsOfDate,
		Rate:         obs.Rate,
		Status:       status,
	}
}

func failedOutcome(obs domain.RateObservation, err error) domain.SyncOutcome {
	outcome := outcomeWith(obs, domain.StatusFailed)
	outcome.ErrorDetail = err.Error()
	return outcome
}

func NewOrchestrator(
	store adapters.RateStore,
	tenants adapters.TenantRepository,
	ledger adapters.LedgerClient,
	audit adapters.SyncAuditRepository,
	health adapters.SyncHealthCache,
	events adapters.EventPublisher,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		tenants:    tenants,
		ledger:     ledger,
		activation: NewActivationManager(ledger),
		audit:      audit,
		health:     health,
		events:     events,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}
