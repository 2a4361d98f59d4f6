package rate

import (
	"context"
	"errors"
	"fmt"
	"fxledger/internal/adapters"
	"fxledger/internal/domain"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	defaultStorageRetries = 3
	defaultRetryInterval  = 50 * time.Millisecond
)

type Service struct {
	store   adapters.RateStore
	tenants adapters.TenantRepository
	// -----
	storageRetries int
	retryInterval  time.Duration
	now            func() time.Time
}

// Record upserts one observation. Contention with a concurrent writer surfaces as ErrStorage,
// in which case the whole upsert is repeated; nothing is assumed about the failed attempt.
func (s *Service) Record(ctx context.Context, obs domain.RateObservation) (domain.UpsertResult, error) {
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = s.now().UTC()
	}
	obs.AsOfDate = domain.Day(obs.AsOfDate)

	var result domain.UpsertResult
	operation := func() error {
		res, err := s.store.Upsert(ctx, obs)
		if err != nil {
			if errors.Is(err, domain.ErrStorage) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = s.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(s.storageRetries)), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{
			"tenant_id": obs.TenantID,
			"currency":  obs.CurrencyCode,
			"wait":      wait,
		}).WithError(err).Warn("rate upsert contended, retrying")
	})
	if err != nil {
		return "", fmt.Errorf("failed to record rate %s/%s: %w", obs.TenantID, obs.CurrencyCode, err)
	}
	return result, nil
}

func (s *Service) Latest(ctx context.Context, tenantID string, codes []string) ([]domain.RateObservation, error) {
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.Latest(ctx, tenantID, codes)
}

func (s *Service) ForDate(ctx context.Context, tenantID string, date time.Time, codes []string) ([]domain.RateObservation, error) {
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.ForDate(ctx, tenantID, domain.Day(date), codes)
}

func NewService(store adapters.RateStore, tenants adapters.TenantRepository) *Service {
	return &Service{
		store:          store,
		tenants:        tenants,
		storageRetries: defaultStorageRetries,
		retryInterval:  defaultRetryInterval,
		now:            time.Now,
	}
}
