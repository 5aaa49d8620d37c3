package api

import (
	"net/http"
	"time"

	"admin-dashboard/backend/pkg/pipeline"

	"github.com/gin-gonic/gin"
)

// StatusTimeLayout formats the server's local time in status responses.
const StatusTimeLayout = "2006-01-02 15:04:05"

// StatusHandler reports that the API is up.
type StatusHandler struct {
	now func() time.Time
}

// NewStatusHandler creates a status handler reading the given clock.
func NewStatusHandler(now func() time.Time) *StatusHandler {
	if now == nil {
		now = time.Now
	}
	return &StatusHandler{now: now}
}

// Status returns {status: "online", time}.
func (h *StatusHandler) Status(req *pipeline.Request) error {
	req.JSON(http.StatusOK, gin.H{
		"status": "online",
		"time":   h.now().Format(StatusTimeLayout),
	})
	return nil
}
