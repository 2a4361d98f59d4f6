package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SyncStatus string

const (
	StatusCreated   SyncStatus = "created"
	StatusUpdated   SyncStatus = "updated"
	StatusUnchanged SyncStatus = "unchanged"
	StatusFailed    SyncStatus = "failed"
)

type SyncOutcome struct {
	TenantID     string
	CurrencyCode string
	AsOfDate     time.Time
	Rate         decimal.Decimal
	Status       SyncStatus
	ErrorDetail  string
	RecordedAt   time.Time
}

type SyncResult struct {
	TenantID    string
	AsOfDate    time.Time
	PassID      uuid.UUID
	Total       int
	Succeeded   int
	Failed      int
	Outcomes    []SyncOutcome
	Interrupted bool
}

func NewSyncResult(tenantID string, asOfDate time.Time, passID uuid.UUID) *SyncResult {
	return &SyncResult{
		TenantID: tenantID,
		AsOfDate: asOfDate,
		PassID:   passID,
		Outcomes: make([]SyncOutcome, 0),
	}
}

// Add appends an outcome keeping the counters consistent with it.
func (r *SyncResult) Add(o SyncOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Total++
	if o.Status == StatusFailed {
		r.Failed++
	} else {
		r.Succeeded++
	}
}

func (r *SyncResult) HasFailures() bool { return r.Failed > 0 }

func (r *SyncResult) Summary() SyncSummary {
	s := SyncSummary{Total: r.Total, Succeeded: r.Succeeded, Failed: r.Failed}
	for _, o := range r.Outcomes {
		s.count(o.Status, 1)
	}
	return s
}

type BatchSyncResult struct {
	AsOfDate         time.Time
	TotalTenants     int
	SucceededTenants int
	FailedTenants    int
	PerTenant        map[string]*SyncResult
}

func NewBatchSyncResult(asOfDate time.Time) *BatchSyncResult {
	return &BatchSyncResult{AsOfDate: asOfDate, PerTenant: make(map[string]*SyncResult)}
}

// Merge records one tenant's result. A tenant succeeds only when none of its outcomes failed.
func (b *BatchSyncResult) Merge(r *SyncResult) {
	b.PerTenant[r.TenantID] = r
	b.TotalTenants++
	if r.HasFailures() {
		b.FailedTenants++
	} else {
		b.SucceededTenants++
	}
}

// RangeSyncResult holds one batch per calendar day of [From, To].
type RangeSyncResult struct {
	From          time.Time
	To            time.Time
	PerDate       map[string]*BatchSyncResult
	SyncedDates   []time.Time
	FailedDates   []time.Time
	TotalOutcomes int
}

func NewRangeSyncResult(from, to time.Time) *RangeSyncResult {
	return &RangeSyncResult{
		From:        from,
		To:          to,
		PerDate:     make(map[string]*BatchSyncResult),
		SyncedDates: make([]time.Time, 0),
		FailedDates: make([]time.Time, 0),
	}
}

// Merge records one day's batch. A day with no recorded outcome at all is failed:
// nothing was stored for it.
func (r *RangeSyncResult) Merge(b *BatchSyncResult) {
	r.PerDate[b.AsOfDate.Format(DateLayout)] = b
	outcomes := 0
	for _, res := range b.PerTenant {
		outcomes += res.Total
	}
	r.TotalOutcomes += outcomes
	if outcomes == 0 || b.FailedTenants > 0 {
		r.FailedDates = append(r.FailedDates, b.AsOfDate)
	} else {
		r.SyncedDates = append(r.SyncedDates, b.AsOfDate)
	}
}

type SyncSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

func (s *SyncSummary) count(status SyncStatus, n int) {
	switch status {
	case StatusCreated:
		s.Created += n
	case StatusUpdated:
		s.Updated += n
	case StatusUnchanged:
		s.Unchanged += n
	}
}

// SummaryFromCounts builds a summary out of per-status counts, e.g. read back from the audit table.
func SummaryFromCounts(counts map[SyncStatus]int) SyncSummary {
	var s SyncSummary
	for status, n := range counts {
		s.count(status, n)
		s.Total += n
		if status == StatusFailed {
			s.Failed += n
		} else {
			s.Succeeded += n
		}
	}
	return s
}

type SyncHealth struct {
	TenantID          string
	LastPassID        uuid.UUID
	LastPassAt        *time.Time
	LastResultSummary SyncSummary
}
