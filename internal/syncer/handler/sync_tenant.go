package handler

import (
	"errors"
	"fmt"
	"fxledger/internal/domain"
	"fxledger/internal/syncer"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type SyncTenantRequest struct {
	AsOfDate    string   `json:"as_of_date,omitempty" example:"2025-11-07"`
	Currencies  []string `json:"currencies,omitempty"`
	ResumeAfter string   `json:"resume_after,omitempty" example:"EUR"`
}

// SyncTenant godoc
// @Summary Push one date of stored rates to a tenant's ledger
// @Description Runs a sync pass. A pass cut short by shutdown comes back with interrupted=true; resume it with resume_after.
// @Tags Sync
// @Accept json
// @Produce json
// @Param tenantID path string true "tenant id"
// @Param request body SyncTenantRequest false "pass options"
// @Success 200 {object} SyncResultView
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /tenants/{tenantID}/sync [post]
func (h *Handler) SyncTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req SyncTenantRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := h.asOfDate(req.AsOfDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := h.options(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.tenant.SyncOne(r.Context(), tenantID, date, opts)
	switch {
	case err == nil, res != nil && res.Interrupted:
		writeJSON(w, http.StatusOK, toResultView(res))
	case errors.Is(err, domain.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, domain.ErrAuthentication):
		writeError(w, http.StatusConflict, "tenant needs re-authorization")
	default:
		msg := "ups, sync failed this time"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "SyncTenant", "tenant_id": tenantID}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) options(req SyncTenantRequest) (syncer.Options, error) {
	var opts syncer.Options
	if len(req.Currencies) > 0 {
		codes, err := h.validator.NormalizeCodes(req.Currencies)
		if err != nil {
			return opts, fmt.Errorf("currencies: %w", err)
		}
		opts.Currencies = codes
	}
	if req.ResumeAfter != "" {
		code, err := h.validator.NormalizeCode(req.ResumeAfter)
		if err != nil {
			return opts, fmt.Errorf("resume_after: %w", err)
		}
		opts.ResumeAfter = code
	}
	return opts, nil
}
