package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fxledger/internal/domain"
	"fxledger/internal/syncer"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxSyncBody = 16 << 10

type Validator interface {
	NormalizeCode(code string) (string, error)
	NormalizeCodes(codes []string) ([]string, error)
}

type TenantSyncer interface {
	SyncOne(ctx context.Context, tenantID string, date time.Time, opts syncer.Options) (*domain.SyncResult, error)
}

type RangeSyncer interface {
	SyncRange(ctx context.Context, from, to time.Time, tenantIDs []string) (*domain.RangeSyncResult, error)
}

type HealthReader interface {
	GetSyncHealth(ctx context.Context, tenantID string) (domain.SyncHealth, error)
}

type Handler struct {
	validator Validator
	tenant    TenantSyncer
	all       syncer.AllSyncer
	ranges    RangeSyncer
	health    HealthReader
	now       func() time.Time
}

func NewSyncHandler(validator Validator, tenant TenantSyncer, all syncer.AllSyncer, ranges RangeSyncer, health HealthReader) *Handler {
	return &Handler{validator: validator, tenant: tenant, all: all, ranges: ranges, health: health, now: time.Now}
}

type OutcomeView struct {
	CurrencyCode string          `json:"currency_code,omitempty" example:"USD"`
	Status       string          `json:"status" example:"created"`
	Rate         decimal.Decimal `json:"rate" swaggertype:"string" example:"100.50"`
	ErrorDetail  string          `json:"error_detail,omitempty"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

type SyncResultView struct {
	TenantID    string        `json:"tenant_id"`
	PassID      uuid.UUID     `json:"pass_id"`
	AsOfDate    string        `json:"as_of_date" example:"2025-11-07"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Interrupted bool          `json:"interrupted"`
	Outcomes    []OutcomeView `json:"outcomes"`
}

type BatchSyncView struct {
	AsOfDate         string                    `json:"as_of_date" example:"2025-11-07"`
	TotalTenants     int                       `json:"total_tenants"`
	SucceededTenants int                       `json:"succeeded_tenants"`
	FailedTenants    int                       `json:"failed_tenants"`
	Tenants          map[string]SyncResultView `json:"tenants"`
}

type RangeSyncView struct {
	DateFrom      string                   `json:"date_from" example:"2025-11-01"`
	DateTo        string                   `json:"date_to" example:"2025-11-07"`
	SyncedDates   []string                 `json:"synced_dates"`
	FailedDates   []string                 `json:"failed_dates"`
	TotalOutcomes int                      `json:"total_outcomes"`
	Dates         map[string]BatchSyncView `json:"dates"`
}

type SyncHealthView struct {
	TenantID          string             `json:"tenant_id"`
	LastPassID        *uuid.UUID         `json:"last_pass_id"`
	LastPassAt        *time.Time         `json:"last_pass_at"`
	LastResultSummary domain.SyncSummary `json:"last_result_summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg string) {
	writeJSON(w, statusCode, errorResponse{Error: errorMsg})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeBody fills dst from the request body. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSyncBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// asOfDate parses an optional YYYY-MM-DD date, defaulting to today (UTC).
func (h *Handler) asOfDate(raw string) (time.Time, error) {
	if raw == "" {
		return domain.Day(h.now().UTC()), nil
	}
	date, err := domain.ParseDay(raw)
	if err != nil {
		return time.Time{}, errors.New("as_of_date must be YYYY-MM-DD")
	}
	return date, nil
}

func toResultView(r *domain.SyncResult) SyncResultView {
	outcomes := make([]OutcomeView, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		outcomes = append(outcomes, OutcomeView{
			CurrencyCode: o.CurrencyCode,
			Status:       string(o.Status),
			Rate:         o.Rate,
			ErrorDetail:  o.ErrorDetail,
			RecordedAt:   o.RecordedAt,
		})
	}
	return SyncResultView{
		TenantID:    r.TenantID,
		PassID:      r.PassID,
		AsOfDate:    r.AsOfDate.Format(domain.DateLayout),
		Total:       r.Total,
		Succeeded:   r.Succeeded,
		Failed:      r.Failed,
		Interrupted: r.Interrupted,
		Outcomes:    outcomes,
	}
}

func toBatchView(b *domain.BatchSyncResult) BatchSyncView {
	tenants := make(map[string]SyncResultView, len(b.PerTenant))
	for id, r := range b.PerTenant {
		tenants[id] = toResultView(r)
	}
	return BatchSyncView{
		AsOfDate:         b.AsOfDate.Format(domain.DateLayout),
		TotalTenants:     b.TotalTenants,
		SucceededTenants: b.SucceededTenants,
		FailedTenants:    b.FailedTenants,
		Tenants:          tenants,
	}
}

func toRangeView(r *domain.RangeSyncResult) RangeSyncView {
	dates := make(map[string]BatchSyncView, len(r.PerDate))
	for day, b := range r.PerDate {
		dates[day] = toBatchView(b)
	}
	return RangeSyncView{
		DateFrom:      r.From.Format(domain.DateLayout),
		DateTo:        r.To.Format(domain.DateLayout),
		SyncedDates:   formatDays(r.SyncedDates),
		FailedDates:   formatDays(r.FailedDates),
		TotalOutcomes: r.TotalOutcomes,
		Dates:         dates,
	}
}

func formatDays(days []time.Time) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Format(domain.DateLayout))
	}
	return out
}

func toHealthView(h domain.SyncHealth) SyncHealthView {
	view := SyncHealthView{TenantID: h.TenantID, LastPassAt: h.LastPassAt, LastResultSummary: h.LastResultSummary}
	if h.LastPassAt != nil {
		id := h.LastPassID
		view.LastPassID = &id
	}
	return view
}
