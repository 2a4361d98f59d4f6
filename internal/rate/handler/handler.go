package handler

import (
	"context"
	"encoding/json"
	"fxledger/internal/domain"
	"fxledger/internal/rate"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Validator interface {
	NormalizeCode(code string) (string, error)
	NormalizeCodes(codes []string) ([]string, error)
	ValidateRate(rate decimal.Decimal) error
	SupportedCodes() []string
}

type Service interface {
	Ingest(ctx context.Context, execID string, day rate.DailyRates) (rate.IngestResult, error)
	Latest(ctx context.Context, tenantID string, codes []string) ([]domain.RateObservation, error)
	ForDate(ctx context.Context, tenantID string, date time.Time, codes []string) ([]domain.RateObservation, error)
}

type Handler struct {
	validator Validator
	service   Service
}

func NewRateHandler(validator Validator, service Service) *Handler {
	return &Handler{validator: validator, service: service}
}

type RateView struct {
	CurrencyCode string          `json:"currency_code" example:"USD"`
	AsOfDate     string          `json:"as_of_date" example:"2025-11-07"`
	Rate         decimal.Decimal `json:"rate" swaggertype:"string" example:"100.50"`
	ObservedAt   time.Time       `json:"observed_at"`
}

type RatesResponse struct {
	TenantID string     `json:"tenant_id"`
	Rates    []RateView `json:"rates"`
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

// currencyFilter reads the optional ?currency=USD,EUR filter.
func (h *Handler) currencyFilter(r *http.Request) ([]string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("currency"))
	if raw == "" {
		return nil, nil
	}
	return h.validator.NormalizeCodes(strings.Split(raw, ","))
}

func toViews(observations []domain.RateObservation) []RateView {
	views := make([]RateView, 0, len(observations))
	for _, o := range observations {
		views = append(views, RateView{
			CurrencyCode: o.CurrencyCode,
			AsOfDate:     o.AsOfDate.Format(domain.DateLayout),
			Rate:         o.Rate,
			ObservedAt:   o.ObservedAt,
		})
	}
	return views
}
