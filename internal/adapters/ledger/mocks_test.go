package ledger

import (
	"context"
	"fxledger/internal/domain"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Get(ctx context.Context, tenantID string) (domain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListSyncable(ctx context.Context) ([]domain.Tenant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListActive(ctx context.Context) ([]domain.Tenant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) SaveCredential(ctx context.Context, tenantID string, expectedVersion int64, cred domain.Credential) error {
	args := m.Called(ctx, tenantID, expectedVersion, cred)
	return args.Error(0)
}

func (m *MockTenantRepository) MarkNeedsReauthorization(ctx context.Context, tenantID string, reason string) error {
	args := m.Called(ctx, tenantID, reason)
	return args.Error(0)
}

func (m *MockTenantRepository) SaveActivatedCurrencies(ctx context.Context, tenantID string, codes []string) error {
	args := m.Called(ctx, tenantID, codes)
	return args.Error(0)
}

func (m *MockTenantRepository) TouchLastSync(ctx context.Context, tenantID string, at time.Time) error {
	args := m.Called(ctx, tenantID, at)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishNeedsReauthorization(ctx context.Context, tenantID string, reason string) error {
	args := m.Called(ctx, tenantID, reason)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishPassCompleted(ctx context.Context, result *domain.SyncResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// stubTokens hands out a fixed token and counts Expire calls.
type stubTokens struct {
	mu      sync.Mutex
	token   string
	err     error
	expired int
}

func (s *stubTokens) AccessToken(context.Context, domain.Tenant) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.err
}

func (s *stubTokens) Expire(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired++
}
