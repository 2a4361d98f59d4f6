package postgres

import (
	"context"
	"errors"
	"fmt"
	"fxledger/internal/domain"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tenantColumns = `
	tenant_id, realm_id, name, home_currency, is_active, sync_enabled, needs_reauth,
	access_token, refresh_token, token_expiry, credential_version, activated_currencies, last_sync_at`

type TenantRepository struct {
	pool *pgxpool.Pool
}

func (r *TenantRepository) Get(ctx context.Context, tenantID string) (domain.Tenant, error) {
	q := `select` + tenantColumns + ` from tenants where tenant_id = $1;`

	tenant, err := scanTenant(r.pool.QueryRow(ctx, q, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tenant{}, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, tenantID)
		}
		return domain.Tenant{}, fmt.Errorf("failed to get tenant %s: %w", tenantID, err)
	}
	return tenant, nil
}

// ListSyncable returns active tenants with sync enabled that do not wait for reauthorization.
func (r *TenantRepository) ListSyncable(ctx context.Context) ([]domain.Tenant, error) {
	tenants, err := r.list(ctx, `is_active and sync_enabled and not needs_reauth`)
	if err != nil {
		return nil, fmt.Errorf("failed to list syncable tenants: %w", err)
	}
	return tenants, nil
}

// ListActive returns every active tenant, including those that cannot sync right now.
func (r *TenantRepository) ListActive(ctx context.Context) ([]domain.Tenant, error) {
	tenants, err := r.list(ctx, `is_active`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tenants: %w", err)
	}
	return tenants, nil
}

func (r *TenantRepository) list(ctx context.Context, where string) ([]domain.Tenant, error) {
	q := `select` + tenantColumns + `
		from tenants
		where ` + where + `
		order by tenant_id;`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := make([]domain.Tenant, 0, 16)
	for rows.Next() {
		tenant, scanErr := scanTenant(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", scanErr)
		}
		tenants = append(tenants, tenant)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}
	return tenants, nil
}

// SaveCredential stores cred only if the stored version still equals expectedVersion.
// The stored version becomes cred.Version, which callers set to expectedVersion+1.
func (r *TenantRepository) SaveCredential(ctx context.Context, tenantID string, expectedVersion int64, cred domain.Credential) error {
	const q = `
		update tenants
		set access_token = $3, refresh_token = $4, token_expiry = $5, credential_version = $6, updated_at = now()
		where tenant_id = $1 and credential_version = $2;
	`

	var expiry *time.Time
	if !cred.Expiry.IsZero() {
		expiry = &cred.Expiry
	}
	tag, err := r.pool.Exec(ctx, q, tenantID, expectedVersion, cred.AccessToken, cred.RefreshToken, expiry, cred.Version)
	if err != nil {
		return fmt.Errorf("failed to save credential for %s: %w", tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, tenantID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: tenant %s expected version %d", domain.ErrCredentialConflict, tenantID, expectedVersion)
	}
	return nil
}

func (r *TenantRepository) MarkNeedsReauthorization(ctx context.Context, tenantID string, reason string) error {
	const q = `update tenants set needs_reauth = true, reauth_reason = $2, updated_at = now() where tenant_id = $1;`
	return r.exec(ctx, "mark reauthorization", tenantID, q, tenantID, reason)
}

func (r *TenantRepository) SaveActivatedCurrencies(ctx context.Context, tenantID string, codes []string) error {
	const q = `update tenants set activated_currencies = $2, updated_at = now() where tenant_id = $1;`
	return r.exec(ctx, "save activated currencies", tenantID, q, tenantID, nonNil(codes))
}

func (r *TenantRepository) TouchLastSync(ctx context.Context, tenantID string, at time.Time) error {
	const q = `update tenants set last_sync_at = $2, updated_at = now() where tenant_id = $1;`
	return r.exec(ctx, "touch last sync", tenantID, q, tenantID, at)
}

func (r *TenantRepository) exec(ctx context.Context, op, tenantID, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to %s for %s: %w", op, tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTenantNotFound, tenantID)
	}
	return nil
}

func scanTenant(row pgx.Row) (domain.Tenant, error) {
	var (
		t      domain.Tenant
		expiry *time.Time
	)
	err := row.Scan(
		&t.ID,
		&t.RealmID,
		&t.Name,
		&t.HomeCurrency,
		&t.IsActive,
		&t.SyncEnabled,
		&t.NeedsReauthorization,
		&t.Credential.AccessToken,
		&t.Credential.RefreshToken,
		&expiry,
		&t.Credential.Version,
		&t.ActivatedCurrencies,
		&t.LastSyncAt,
	)
	if err != nil {
		return domain.Tenant{}, err
	}
	if expiry != nil {
		t.Credential.Expiry = *expiry
	}
	t.HomeCurrency = strings.TrimSpace(t.HomeCurrency)
	return t, nil
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}
