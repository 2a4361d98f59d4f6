package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

type SyncAllRequest struct {
	AsOfDate  string   `json:"as_of_date,omitempty" example:"2025-11-07"`
	TenantIDs []string `json:"tenant_ids,omitempty"`
}

// SyncAll godoc
// @Summary Push one date of stored rates to every syncable tenant
// @Tags Sync
// @Accept json
// @Produce json
// @Param request body SyncAllRequest false "batch options"
// @Success 200 {object} BatchSyncView
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /sync [post]
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	var req SyncAllRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := h.asOfDate(req.AsOfDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := h.all.SyncAll(r.Context(), date, req.TenantIDs)
	if batch == nil {
		msg := "ups, sync failed this time"
		logrus.WithError(err).WithField("handler", "SyncAll").Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("handler", "SyncAll").Warn("Batch sync stopped early")
	}
	writeJSON(w, http.StatusOK, toBatchView(batch))
}
