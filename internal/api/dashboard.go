package api

import (
	"net/http"

	"admin-dashboard/backend/internal/service"
	apperrors "admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/pipeline"
)

// DashboardHandler serves dashboard statistics.
type DashboardHandler struct {
	stats *service.StatsService
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(stats *service.StatsService) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

// Stats returns the current stats snapshot for the caller.
func (h *DashboardHandler) Stats(req *pipeline.Request) error {
	snap, err := h.stats.Snapshot(req.Request.Context(), req.User)
	if err != nil {
		return apperrors.Internal(err)
	}
	req.JSON(http.StatusOK, snap)
	return nil
}
