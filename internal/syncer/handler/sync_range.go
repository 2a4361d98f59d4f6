package handler

import (
	"errors"
	"fmt"
	"fxledger/internal/domain"
	"fxledger/internal/syncer"
	"net/http"

	"github.com/sirupsen/logrus"
)

type SyncRangeRequest struct {
	DateFrom  string   `json:"date_from" example:"2025-11-01"`
	DateTo    string   `json:"date_to" example:"2025-11-07"`
	TenantIDs []string `json:"tenant_ids,omitempty"`
}

// SyncRange godoc
// @Summary Push stored rates of every day in a date range to every syncable tenant
// @Tags Sync
// @Accept json
// @Produce json
// @Param request body SyncRangeRequest true "date range, both ends included"
// @Success 200 {object} RangeSyncView
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /sync/range [post]
func (h *Handler) SyncRange(w http.ResponseWriter, r *http.Request) {
	var req SyncRangeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	from, err := domain.ParseDay(req.DateFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date_from must be YYYY-MM-DD")
		return
	}
	to, err := domain.ParseDay(req.DateTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date_to must be YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "date_from must not be after date_to")
		return
	}
	if domain.DaysBetween(from, to) >= syncer.MaxRangeDays {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("date range must not exceed %d days", syncer.MaxRangeDays))
		return
	}

	result, err := h.ranges.SyncRange(r.Context(), from, to, req.TenantIDs)
	if errors.Is(err, domain.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if result == nil {
		msg := "ups, range sync failed this time"
		logrus.WithError(err).WithField("handler", "SyncRange").Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("handler", "SyncRange").Warn("Range sync stopped early")
	}
	writeJSON(w, http.StatusOK, toRangeView(result))
}
