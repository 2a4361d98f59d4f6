package ledger

import (
	"context"
	"errors"
	"fmt"
	"fxledger/internal/adapters"
	"fxledger/internal/config"
	"fxledger/internal/domain"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// CredentialManager hands out valid access tokens per tenant and owns the refresh step.
// It keeps its own copy of each tenant's credential; callers never share a mutable one.
type CredentialManager struct {
	tenants    adapters.TenantRepository
	events     adapters.EventPublisher
	oauth      *oauth2.Config
	httpClient *http.Client
	threshold  time.Duration
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	creds map[string]domain.Credential
}

// AccessToken returns a token that stays valid for at least the refresh threshold,
// refreshing and persisting a new one first when needed.
func (m *CredentialManager) AccessToken(ctx context.Context, tenant domain.Tenant) (string, error) {
	lock := m.lockFor(tenant.ID)
	lock.Lock()
	defer lock.Unlock()

	cred := m.current(tenant)
	if !cred.ExpiresWithin(m.now(), m.threshold) {
		return cred.AccessToken, nil
	}
	return m.refresh(ctx, tenant.ID, cred)
}

// Expire forgets the cached access token so the next AccessToken call refreshes.
func (m *CredentialManager) Expire(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cred, ok := m.creds[tenantID]; ok {
		cred.Expiry = time.Time{}
		m.creds[tenantID] = cred
	}
}

func (m *CredentialManager) refresh(ctx context.Context, tenantID string, cred domain.Credential) (string, error) {
	log := logrus.WithFields(logrus.Fields{"tenant_id": tenantID, "credential_version": cred.Version})

	if cred.RefreshToken == "" {
		return "", m.revoke(ctx, tenantID, "no refresh token on record")
	}

	// empty access token makes the token source go straight to the refresh grant
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	token, err := m.oauth.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			return "", m.revoke(ctx, tenantID, refreshFailureReason(retrieveErr))
		}
		log.WithError(err).Warn("credential refresh did not reach the token endpoint")
		return "", fmt.Errorf("%w: refresh credential: %v", domain.ErrRemoteUnavailable, err)
	}

	next := domain.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Version:      cred.Version + 1,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}

	err = m.tenants.SaveCredential(ctx, tenantID, cred.Version, next)
	if errors.Is(err, domain.ErrCredentialConflict) {
		// another process refreshed first; its credential wins
		stored, getErr := m.tenants.Get(ctx, tenantID)
		if getErr != nil {
			return "", fmt.Errorf("failed to reload credential after conflict: %w", getErr)
		}
		m.store(tenantID, stored.Credential)
		log.WithField("stored_version", stored.Credential.Version).Info("credential refreshed concurrently, using stored one")
		if stored.Credential.AccessToken == "" {
			return "", fmt.Errorf("%w: stored credential has no access token", domain.ErrAuthentication)
		}
		return stored.Credential.AccessToken, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	m.store(tenantID, next)
	log.WithField("expires_at", next.Expiry).Info("credential refreshed")
	return next.AccessToken, nil
}

// revoke flags the tenant for re-authorization and drops the cached credential, so the
// next pass starts from whatever the tenant record carries. The refresh is not retried.
func (m *CredentialManager) revoke(ctx context.Context, tenantID, reason string) error {
	log := logrus.WithField("tenant_id", tenantID)
	log.WithField("reason", reason).Error("credential refresh failed, tenant needs re-authorization")

	m.mu.Lock()
	delete(m.creds, tenantID)
	m.mu.Unlock()

	if err := m.tenants.MarkNeedsReauthorization(ctx, tenantID, reason); err != nil {
		log.WithError(err).Error("failed to mark tenant for re-authorization")
	}
	if err := m.events.PublishNeedsReauthorization(ctx, tenantID, reason); err != nil {
		log.WithError(err).Warn("failed to publish re-authorization event")
	}
	return fmt.Errorf("%w: %s", domain.ErrAuthentication, reason)
}

// current picks the newer of the cached copy and the credential the tenant record carries.
func (m *CredentialManager) current(tenant domain.Tenant) domain.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	cached, ok := m.creds[tenant.ID]
	if ok && cached.Version >= tenant.Credential.Version {
		return cached
	}
	m.creds[tenant.ID] = tenant.Credential
	return tenant.Credential
}

func (m *CredentialManager) store(tenantID string, cred domain.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[tenantID] = cred
}

func (m *CredentialManager) lockFor(tenantID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[tenantID] = lock
	}
	return lock
}

func refreshFailureReason(err *oauth2.RetrieveError) string {
	if err.ErrorCode != "" {
		if err.ErrorDescription != "" {
			return err.ErrorCode + ": " + err.ErrorDescription
		}
		return err.ErrorCode
	}
	return fmt.Sprintf("token endpoint returned %d", err.Response.StatusCode)
}

func NewCredentialManager(
	cfg config.Ledger,
	httpClient *http.Client,
	tenants adapters.TenantRepository,
	events adapters.EventPublisher,
) *CredentialManager {
	return &CredentialManager{
		tenants: tenants,
		events:  events,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
		threshold:  cfg.RefreshThreshold(),
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
		creds:      make(map[string]domain.Credential),
	}
}
