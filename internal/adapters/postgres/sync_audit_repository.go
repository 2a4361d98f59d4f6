package postgres

import (
	"context"
	"errors"
	"fmt"
	"fxledger/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SyncAuditRepository struct {
	pool *pgxpool.Pool
}

// Append records one outcome. An empty currency code marks a tenant-level failure and is stored as null.
func (r *SyncAuditRepository) Append(ctx context.Context, passID uuid.UUID, outcome domain.SyncOutcome) error {
	const q = `
		insert into sync_audit (id, pass_id, tenant_id, currency_code, as_of_date, rate, status, error_detail, recorded_at)
		values ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9);
	`

	var (
		code, rate, detail *string
	)
	if outcome.CurrencyCode != "" {
		code = &outcome.CurrencyCode
	}
	if !outcome.Rate.IsZero() {
		s := outcome.Rate.String()
		rate = &s
	}
	if outcome.ErrorDetail != "" {
		detail = &outcome.ErrorDetail
	}
	recordedAt := outcome.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, q,
		uuid.New(),
		passID,
		outcome.TenantID,
		code,
		domain.Day(outcome.AsOfDate),
		rate,
		string(outcome.Status),
		detail,
		recordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append sync outcome for %s: %w", outcome.TenantID, err)
	}
	return nil
}

// LastPass summarizes the most recent pass recorded for tenantID.
// A tenant that was never synced yields a zero-value health with only TenantID set.
func (r *SyncAuditRepository) LastPass(ctx context.Context, tenantID string) (domain.SyncHealth, error) {
	const lastQ = `
		select pass_id, max(recorded_at) as last_at
		from sync_audit
		where tenant_id = $1
		group by pass_id
		order by last_at desc
		limit 1;
	`
	const countsQ = `
		select status, count(*)
		from sync_audit
		where pass_id = $1
		group by status;
	`

	health := domain.SyncHealth{TenantID: tenantID}

	var (
		passID uuid.UUID
		lastAt time.Time
	)
	err := r.pool.QueryRow(ctx, lastQ, tenantID).Scan(&passID, &lastAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return health, nil
		}
		return domain.SyncHealth{}, fmt.Errorf("failed to find last pass for %s: %w", tenantID, err)
	}

	rows, err := r.pool.Query(ctx, countsQ, passID)
	if err != nil {
		return domain.SyncHealth{}, fmt.Errorf("failed to count pass outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.SyncStatus]int, 4)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err = rows.Scan(&status, &n); err != nil {
			return domain.SyncHealth{}, fmt.Errorf("failed to scan pass outcome count: %w", err)
		}
		counts[domain.SyncStatus(status)] = n
	}
	if err = rows.Err(); err != nil {
		return domain.SyncHealth{}, fmt.Errorf("error iterating pass outcome counts: %w", err)
	}

	health.LastPassID = passID
	health.LastPassAt = &lastAt
	health.LastResultSummary = domain.SummaryFromCounts(counts)
	return health, nil
}

func NewSyncAuditRepository(pool *pgxpool.Pool) *SyncAuditRepository {
	return &SyncAuditRepository{pool: pool}
}
