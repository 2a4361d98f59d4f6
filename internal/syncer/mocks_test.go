package syncer

import (
	"context"
	"fmt"
	"fxledger/internal/domain"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Testify mocks ---

type MockTenantRepository struct{ mock.Mock }

func (m *MockTenantRepository) Get(ctx context.Context, tenantID string) (domain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	t, _ := args.Get(0).(domain.Tenant)
	return t, args.Error(1)
}

func (m *MockTenantRepository) ListSyncable(ctx context.Context) ([]domain.Tenant, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).([]domain.Tenant)
	return t, args.Error(1)
}

func (m *MockTenantRepository) ListActive(ctx context.Context) ([]domain.Tenant, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).([]domain.Tenant)
	return t, args.Error(1)
}

func (m *MockTenantRepository) SaveCredential(ctx context.Context, tenantID string, expectedVersion int64, cred domain.Credential) error {
	return m.Called(ctx, tenantID, expectedVersion, cred).Error(0)
}

func (m *MockTenantRepository) MarkNeedsReauthorization(ctx context.Context, tenantID string, reason string) error {
	return m.Called(ctx, tenantID, reason).Error(0)
}

func (m *MockTenantRepository) SaveActivatedCurrencies(ctx context.Context, tenantID string, codes []string) error {
	return m.Called(ctx, tenantID, codes).Error(0)
}

func (m *MockTenantRepository) TouchLastSync(ctx context.Context, tenantID string, at time.Time) error {
	return m.Called(ctx, tenantID, at).Error(0)
}

type MockSyncAuditRepository struct{ mock.Mock }

func (m *MockSyncAuditRepository) Append(ctx context.Context, passID uuid.UUID, outcome domain.SyncOutcome) error {
	return m.Called(ctx, passID, outcome).Error(0)
}

func (m *MockSyncAuditRepository) LastPass(ctx context.Context, tenantID string) (domain.SyncHealth, error) {
	args := m.Called(ctx, tenantID)
	h, _ := args.Get(0).(domain.SyncHealth)
	return h, args.Error(1)
}

type MockSyncHealthCache struct{ mock.Mock }

func (m *MockSyncHealthCache) Get(tenantID string) (domain.SyncHealth, bool) {
	args := m.Called(tenantID)
	h, _ := args.Get(0).(domain.SyncHealth)
	return h, args.Bool(1)
}

func (m *MockSyncHealthCache) Set(health domain.SyncHealth) {
	m.Called(health)
}

func (m *MockSyncHealthCache) Invalidate(tenantIDs []string) {
	m.Called(tenantIDs)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) PublishNeedsReauthorization(ctx context.Context, tenantID string, reason string) error {
	return m.Called(ctx, tenantID, reason).Error(0)
}

func (m *MockEventPublisher) PublishPassCompleted(ctx context.Context, result *domain.SyncResult) error {
	return m.Called(ctx, result).Error(0)
}

type MockLedgerClient struct{ mock.Mock }

func (m *MockLedgerClient) GetExistingRate(ctx context.Context, tenant domain.Tenant, code string, date time.Time) (domain.RemoteRateRecord, error) {
	args := m.Called(ctx, tenant, code, date)
	r, _ := args.Get(0).(domain.RemoteRateRecord)
	return r, args.Error(1)
}

func (m *MockLedgerClient) CreateOrUpdateRate(ctx context.Context, tenant domain.Tenant, code string, date time.Time, rate decimal.Decimal, known *domain.RemoteRateRecord) (domain.RemoteRateRecord, domain.WriteKind, error) {
	args := m.Called(ctx, tenant, code, date, rate, known)
	r, _ := args.Get(0).(domain.RemoteRateRecord)
	k, _ := args.Get(1).(domain.WriteKind)
	return r, k, args.Error(2)
}

func (m *MockLedgerClient) ListActiveCurrencies(ctx context.Context, tenant domain.Tenant) (map[string]struct{}, error) {
	args := m.Called(ctx, tenant)
	s, _ := args.Get(0).(map[string]struct{})
	return s, args.Error(1)
}

func (m *MockLedgerClient) AddCurrency(ctx context.Context, tenant domain.Tenant, code string) error {
	return m.Called(ctx, tenant, code).Error(0)
}

type MockPassRunner struct{ mock.Mock }

func (m *MockPassRunner) SyncTenant(ctx context.Context, tenant domain.Tenant, date time.Time, opts Options) (*domain.SyncResult, error) {
	args := m.Called(ctx, tenant, date, opts)
	r, _ := args.Get(0).(*domain.SyncResult)
	return r, args.Error(1)
}

// --- In-memory fakes for scenario tests ---

type remoteWrite struct {
	Code         string
	Rate         decimal.Decimal
	VersionToken string
}

// fakeLedger keeps remote exchange rates in memory and counts every call.
type fakeLedger struct {
	mu      sync.Mutex
	active  map[string]struct{}
	records map[string]domain.RemoteRateRecord
	version int

	listErr  error
	addErr   map[string]error
	getErr   map[string]error
	writeErr map[string]error
	// hooks run outside the lock
	beforeGet  func(code string)
	afterWrite func(code string)

	listCalls, addCalls, getCalls int
	writes                        []remoteWrite
	calls                         []string
	inFlight, maxInFlight         int
}

func newFakeLedger(active ...string) *fakeLedger {
	l := &fakeLedger{
		active:   make(map[string]struct{}),
		records:  make(map[string]domain.RemoteRateRecord),
		addErr:   make(map[string]error),
		getErr:   make(map[string]error),
		writeErr: make(map[string]error),
	}
	for _, c := range active {
		l.active[c] = struct{}{}
	}
	return l
}

func recordKey(code string, date time.Time) string {
	return code + "|" + date.Format(domain.DateLayout)
}

func (l *fakeLedger) enter(call string) func() {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.inFlight++
	l.maxInFlight = max(l.maxInFlight, l.inFlight)
	l.mu.Unlock()
	// widen the window for overlapping passes
	time.Sleep(time.Millisecond)
	return func() {
		l.mu.Lock()
		l.inFlight--
		l.mu.Unlock()
	}
}

func (l *fakeLedger) GetExistingRate(_ context.Context, _ domain.Tenant, code string, date time.Time) (domain.RemoteRateRecord, error) {
	defer l.enter("get:" + code)()
	if l.beforeGet != nil {
		l.beforeGet(code)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getCalls++
	if err := l.getErr[code]; err != nil {
		return domain.RemoteRateRecord{}, err
	}
	rec, ok := l.records[recordKey(code, date)]
	if !ok {
		return domain.RemoteRateRecord{}, domain.ErrRemoteRateNotFound
	}
	return rec, nil
}

func (l *fakeLedger) CreateOrUpdateRate(_ context.Context, tenant domain.Tenant, code string, date time.Time, rate decimal.Decimal, known *domain.RemoteRateRecord) (domain.RemoteRateRecord, domain.WriteKind, error) {
	defer l.enter("write:" + code)()
	l.mu.Lock()
	w := remoteWrite{Code: code, Rate: rate}
	if known != nil {
		w.VersionToken = known.VersionToken
	}
	l.writes = append(l.writes, w)
	if err := l.writeErr[code]; err != nil {
		l.mu.Unlock()
		return domain.RemoteRateRecord{}, "", err
	}

	kind := domain.WriteCreated
	rec := domain.RemoteRateRecord{ID: code, SourceCurrency: code, TargetCurrency: tenant.HomeCurrency, AsOfDate: date}
	if known != nil {
		kind = domain.WriteUpdated
		rec.ID = known.ID
	}
	l.version++
	rec.Rate = rate
	rec.VersionToken = fmt.Sprint(l.version)
	l.records[recordKey(code, date)] = rec
	hook := l.afterWrite
	l.mu.Unlock()

	if hook != nil {
		hook(code)
	}
	return rec, kind, nil
}

func (l *fakeLedger) ListActiveCurrencies(_ context.Context, tenant domain.Tenant) (map[string]struct{}, error) {
	defer l.enter("list")()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listCalls++
	if l.listErr != nil {
		return nil, l.listErr
	}
	out := map[string]struct{}{tenant.HomeCurrency: {}}
	for c := range l.active {
		out[c] = struct{}{}
	}
	return out, nil
}

func (l *fakeLedger) AddCurrency(_ context.Context, _ domain.Tenant, code string) error {
	defer l.enter("add:" + code)()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addCalls++
	if err := l.addErr[code]; err != nil {
		return err
	}
	l.active[code] = struct{}{}
	return nil
}

func (l *fakeLedger) remoteCalls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

// fakeStore serves ForDate from memory in insertion order, like an unordered source would.
type fakeStore struct {
	mu   sync.Mutex
	obs  []domain.RateObservation
	fail error
}

func (s *fakeStore) put(obs domain.RateObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.obs {
		if o.TenantID == obs.TenantID && o.CurrencyCode == obs.CurrencyCode && o.AsOfDate.Equal(obs.AsOfDate) {
			s.obs[i] = obs
			return
		}
	}
	s.obs = append(s.obs, obs)
}

func (s *fakeStore) Upsert(_ context.Context, obs domain.RateObservation) (domain.UpsertResult, error) {
	s.put(obs)
	return domain.UpsertNew, nil
}

func (s *fakeStore) Latest(context.Context, string, []string) ([]domain.RateObservation, error) {
	return nil, nil
}

func (s *fakeStore) ForDate(_ context.Context, tenantID string, date time.Time, codes []string) ([]domain.RateObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var out []domain.RateObservation
	for _, o := range s.obs {
		if o.TenantID != tenantID || !o.AsOfDate.Equal(date) {
			continue
		}
		if len(codes) > 0 && !slices.Contains(codes, o.CurrencyCode) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
