package postgres

import (
	"context"
	"errors"
	"fmt"
	"fxledger/internal/domain"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type RateRepository struct {
	pool *pgxpool.Pool
}

// Upsert writes obs only when no row exists for its key or the stored rate differs.
// Numeric comparison in postgres is exact, so 100.00 and 100.000000 are the same rate.
func (r *RateRepository) Upsert(ctx context.Context, obs domain.RateObservation) (domain.UpsertResult, error) {
	const q = `
		insert into fx_rates (tenant_id, currency_code, as_of_date, rate, observed_at)
		values ($1, $2, $3, $4::numeric, $5)
		on conflict (tenant_id, currency_code, as_of_date) do update
		  set rate = excluded.rate, observed_at = excluded.observed_at, updated_at = now()
		  where fx_rates.rate <> excluded.rate
		returning (xmax = 0) as inserted;
	`

	var inserted bool
	err := r.pool.QueryRow(ctx, q,
		obs.TenantID,
		obs.CurrencyCode,
		domain.Day(obs.AsOfDate),
		obs.Rate.String(),
		obs.ObservedAt,
	).Scan(&inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UpsertUnchanged, nil
		}
		if isContention(err) {
			return "", fmt.Errorf("%w: upsert rate %s/%s: %v", domain.ErrStorage, obs.TenantID, obs.CurrencyCode, err)
		}
		return "", fmt.Errorf("failed to upsert rate %s/%s: %w", obs.TenantID, obs.CurrencyCode, err)
	}
	if inserted {
		return domain.UpsertNew, nil
	}
	return domain.UpsertChanged, nil
}

func (r *RateRepository) Latest(ctx context.Context, tenantID string, codes []string) ([]domain.RateObservation, error) {
	const q = `
		select distinct on (currency_code) tenant_id, currency_code, as_of_date, rate::text, observed_at
		from fx_rates
		where tenant_id = $1 and (cardinality($2::text[]) = 0 or currency_code = any($2::text[]))
		order by currency_code, as_of_date desc;
	`
	return r.query(ctx, q, tenantID, nonNil(codes))
}

func (r *RateRepository) ForDate(ctx context.Context, tenantID string, date time.Time, codes []string) ([]domain.RateObservation, error) {
	const q = `
		select tenant_id, currency_code, as_of_date, rate::text, observed_at
		from fx_rates
		where tenant_id = $1 and as_of_date = $2
		  and (cardinality($3::text[]) = 0 or currency_code = any($3::text[]))
		order by currency_code;
	`
	return r.query(ctx, q, tenantID, domain.Day(date), nonNil(codes))
}

func (r *RateRepository) query(ctx context.Context, q string, args ...any) ([]domain.RateObservation, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()

	observations := make([]domain.RateObservation, 0, 32)
	for rows.Next() {
		var (
			obs     domain.RateObservation
			rawRate string
		)
		if err = rows.Scan(&obs.TenantID, &obs.CurrencyCode, &obs.AsOfDate, &rawRate, &obs.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		if obs.Rate, err = decimal.NewFromString(rawRate); err != nil {
			return nil, fmt.Errorf("failed to parse stored rate %q: %w", rawRate, err)
		}
		obs.AsOfDate = domain.Day(obs.AsOfDate)
		observations = append(observations, obs)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rates: %w", err)
	}
	return observations, nil
}

// isContention reports constraint violations and serialization failures caused by a concurrent writer.
func isContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "23505", "40001", "40P01":
		return true
	}
	return false
}

func nonNil(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}

func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}
