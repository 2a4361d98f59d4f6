package domain

import (
	"slices"
	"time"
)

// Credential is an owned, versioned copy of a tenant's OAuth tokens.
// Version increases by one on every persisted refresh.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Version      int64
}

// ExpiresWithin reports whether the access token is expired or will expire before now+threshold.
func (c Credential) ExpiresWithin(now time.Time, threshold time.Duration) bool {
	if c.AccessToken == "" || c.Expiry.IsZero() {
		return true
	}
	return !now.Add(threshold).Before(c.Expiry)
}

type Tenant struct {
	ID                   string
	RealmID              string
	Name                 string
	HomeCurrency         string
	IsActive             bool
	SyncEnabled          bool
	NeedsReauthorization bool
	Credential           Credential
	ActivatedCurrencies  []string
	LastSyncAt           *time.Time
}

func (t Tenant) HasActivated(code string) bool {
	return slices.Contains(t.ActivatedCurrencies, code)
}
