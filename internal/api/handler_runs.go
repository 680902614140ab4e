package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// TriggerRun starts a booking run in the background. ?dry_run=true stops
// before the booking is submitted.
func (h *Handler) TriggerRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "runs cannot be started on this server"})
		return
	}
	dryRun, err := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dry_run must be a boolean"})
		return
	}

	runID, err := h.runs.Trigger(dryRun)
	if errors.Is(err, ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Errorf("Failed to start run: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  runID,
		"dry_run": dryRun,
		"status":  "/api/attempts/" + runID,
	})
}

// Healthz answers liveness checks.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
