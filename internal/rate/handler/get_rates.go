package handler

import (
	"errors"
	"fxledger/internal/domain"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// GetLatest godoc
// @Summary Latest stored rate per currency
// @Tags Rates
// @Produce json
// @Param tenantID path string true "tenant id"
// @Param currency query string false "comma separated currency codes"
// @Success 200 {object} RatesResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /tenants/{tenantID}/rates/latest [get]
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	codes, err := h.currencyFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	observations, err := h.service.Latest(r.Context(), tenantID, codes)
	if err != nil {
		h.writeLookupError(w, err, "GetLatest", tenantID)
		return
	}
	writeJSON(w, http.StatusOK, RatesResponse{TenantID: tenantID, Rates: toViews(observations)})
}

// GetForDate godoc
// @Summary Stored rates of one date
// @Tags Rates
// @Produce json
// @Param tenantID path string true "tenant id"
// @Param date path string true "as-of date, YYYY-MM-DD"
// @Param currency query string false "comma separated currency codes"
// @Success 200 {object} RatesResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /tenants/{tenantID}/rates/{date} [get]
func (h *Handler) GetForDate(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	date, err := domain.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	codes, err := h.currencyFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	observations, err := h.service.ForDate(r.Context(), tenantID, date, codes)
	if err != nil {
		h.writeLookupError(w, err, "GetForDate", tenantID)
		return
	}
	writeJSON(w, http.StatusOK, RatesResponse{TenantID: tenantID, Rates: toViews(observations)})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error, handler, tenantID string) {
	if errors.Is(err, domain.ErrTenantNotFound) {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	msg := "ups, couldn't get rates this time"
	logrus.WithError(err).WithFields(logrus.Fields{"handler": handler, "tenant_id": tenantID}).Error(msg)
	writeError(w, http.StatusInternalServerError, msg)
}
