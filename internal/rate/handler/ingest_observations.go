package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"fxledger/internal/domain"
	"fxledger/internal/rate"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxIngestBody = 64 << 10

type ObservedRate struct {
	CurrencyCode string          `json:"currency_code" example:"USD"`
	Rate         decimal.Decimal `json:"rate" swaggertype:"string" example:"100.50"`
}

type IngestObservationsRequest struct {
	AsOfDate   string         `json:"as_of_date" example:"2025-11-07"`
	Rates      []ObservedRate `json:"rates"`
	TenantIDs  []string       `json:"tenant_ids,omitempty"`
	ObservedAt *time.Time     `json:"observed_at,omitempty"`
}

type IngestObservationsResponse struct {
	ExecID   string `json:"exec_id"`
	AsOfDate string `json:"as_of_date"`
	rate.IngestResult
}

// IngestObservations godoc
// @Summary Store one scraped day of rates
// @Description Upserts the published rates for every active tenant, or only for tenant_ids.
// @Tags Rates
// @Accept json
// @Produce json
// @Param request body IngestObservationsRequest true "published rates"
// @Success 200 {object} IngestObservationsResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /rates/observations [post]
func (h *Handler) IngestObservations(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req IngestObservationsRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	day, err := h.toDailyRates(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	execID := uuid.NewString()
	res, err := h.service.Ingest(r.Context(), execID, day)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		msg := "failed to ingest rates"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "IngestObservations", "exec_id": execID}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeJSON(w, http.StatusOK, IngestObservationsResponse{
		ExecID:       execID,
		AsOfDate:     day.AsOfDate.Format(domain.DateLayout),
		IngestResult: res,
	})
}

func (h *Handler) toDailyRates(req IngestObservationsRequest) (rate.DailyRates, error) {
	asOf, err := domain.ParseDay(req.AsOfDate)
	if err != nil {
		return rate.DailyRates{}, errors.New("as_of_date must be YYYY-MM-DD")
	}
	if len(req.Rates) == 0 {
		return rate.DailyRates{}, rate.ErrNoRates
	}

	rates := make(map[string]decimal.Decimal, len(req.Rates))
	for _, obs := range req.Rates {
		code, codeErr := h.validator.NormalizeCode(obs.CurrencyCode)
		if codeErr != nil {
			return rate.DailyRates{}, fmt.Errorf("%s: %w", obs.CurrencyCode, codeErr)
		}
		if _, dup := rates[code]; dup {
			return rate.DailyRates{}, fmt.Errorf("%s: %w", code, rate.ErrDuplicateCode)
		}
		if rateErr := h.validator.ValidateRate(obs.Rate); rateErr != nil {
			return rate.DailyRates{}, fmt.Errorf("%s: %w", code, rateErr)
		}
		rates[code] = obs.Rate
	}

	day := rate.DailyRates{AsOfDate: asOf, Rates: rates, TenantIDs: req.TenantIDs}
	if req.ObservedAt != nil {
		day.ObservedAt = req.ObservedAt.UTC()
	}
	return day, nil
}
