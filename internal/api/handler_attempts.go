package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-room-booker/internal/store"
)

// ListAttempts returns recent runs, newest first. ?limit=N bounds the list.
func (h *Handler) ListAttempts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	attempts, err := h.store.ListAttempts(c.Request.Context(), limit)
	if err != nil {
		h.log.Errorf("Failed to list attempts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list attempts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// GetAttempt returns one run by its id.
func (h *Handler) GetAttempt(c *gin.Context) {
	a, err := h.store.GetAttempt(c.Request.Context(), c.Param("run_id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		h.log.Errorf("Failed to load attempt %s: %v", c.Param("run_id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}
	c.JSON(http.StatusOK, a)
}
