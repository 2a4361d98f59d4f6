package handler

import (
	"errors"
	"fxledger/internal/domain"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// GetSyncHealth godoc
// @Summary Last sync pass of a tenant
// @Tags Sync
// @Produce json
// @Param tenantID path string true "tenant id"
// @Success 200 {object} SyncHealthView
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /tenants/{tenantID}/sync/health [get]
func (h *Handler) GetSyncHealth(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	health, err := h.health.GetSyncHealth(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		msg := "ups, couldn't get sync health this time"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "GetSyncHealth", "tenant_id": tenantID}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	writeJSON(w, http.StatusOK, toHealthView(health))
}
