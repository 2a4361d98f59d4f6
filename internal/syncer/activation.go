package syncer

import (
	"context"
	"errors"
	"fmt"
	"fxledger/internal/adapters"
	"fxledger/internal/domain"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"
)

type Activation string

const (
	Active    Activation = "active"
	Activated Activation = "activated"
)

// ActivationManager makes sure a currency is enabled in the remote company before rates are written for it.
type ActivationManager struct {
	ledger adapters.LedgerClient
}

// Begin lists the remote active currencies once and returns a set scoped to one pass.
// Activation can change in the remote UI, so a set must not outlive its pass.
func (m *ActivationManager) Begin(ctx context.Context, tenant domain.Tenant) (*ActivationSet, error) {
	active, err := m.ledger.ListActiveCurrencies(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to list active currencies: %w", err)
	}
	return &ActivationSet{ledger: m.ledger, tenant: tenant, active: active}, nil
}

// ActivationSet is not safe for concurrent use; a pass processes its currencies one at a time.
type ActivationSet struct {
	ledger adapters.LedgerClient
	tenant domain.Tenant
	active map[string]struct{}
}

func (s *ActivationSet) EnsureActive(ctx context.Context, code string) (Activation, error) {
	if _, ok := s.active[code]; ok {
		return Active, nil
	}

	err := s.ledger.AddCurrency(ctx, s.tenant, code)
	switch {
	case err == nil:
		s.active[code] = struct{}{}
		logrus.WithFields(logrus.Fields{"tenant_id": s.tenant.ID, "currency": code}).Info("currency activated")
		return Activated, nil
	case errors.Is(err, domain.ErrAlreadyActive):
		s.active[code] = struct{}{}
		return Active, nil
	default:
		return "", fmt.Errorf("failed to activate %s: %w", code, err)
	}
}

// Codes returns the active codes observed during the pass, sorted.
func (s *ActivationSet) Codes() []string {
	return slices.Sorted(maps.Keys(s.active))
}

func NewActivationManager(ledger adapters.LedgerClient) *ActivationManager {
	return &ActivationManager{ledger: ledger}
}
