package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"contract-service/internal/dispatch"
)

// DispatchHandler exposes a manual trigger for the reminder sweep. The
// scheduled cron job is the normal path; this endpoint exists for
// operations and testing.
type DispatchHandler struct {
	sweeper *dispatch.Sweeper
}

// NewDispatchHandler creates a new dispatch handler
func NewDispatchHandler(sweeper *dispatch.Sweeper) *DispatchHandler {
	return &DispatchHandler{sweeper: sweeper}
}

// Run performs one sweep synchronously and reports the counts. The sweep
// runs detached from the request: a client disconnect must not interrupt
// in-flight deliveries or their retries.
func (h *DispatchHandler) Run(c *gin.Context) {
	report, err := h.sweeper.Run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found":     report.Found,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	})
}
