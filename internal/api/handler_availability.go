package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-room-booker/internal/store"
)

// GetAvailability returns the slots seen by the most recent availability check.
func (h *Handler) GetAvailability(c *gin.Context) {
	snap, err := h.store.LatestAvailability(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no availability check has run yet"})
		return
	}
	if err != nil {
		h.log.Errorf("Failed to load availability: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load availability"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
