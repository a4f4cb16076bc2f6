package handlers

import (
	"net/http"

	"innkeeper/middleware"
	"innkeeper/models"
	"innkeeper/services/holdmgr"

	"github.com/gin-gonic/gin"
)

// HoldHandler exposes hold creation and cancellation.
type HoldHandler struct {
	Manager *holdmgr.Manager
}

func NewHoldHandler(manager *holdmgr.Manager) *HoldHandler {
	return &HoldHandler{Manager: manager}
}

// CreateHold places a temporary hold on an available stay.
func (h *HoldHandler) CreateHold(c *gin.Context) {
	var input struct {
		StayID          string                  `json:"stayId" binding:"required"`
		DurationMinutes int                     `json:"durationMinutes"`
		OnExpiry        models.HoldExpiryAction `json:"onExpiry"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	hold, st, err := h.Manager.CreateHold(c.Request.Context(), holdmgr.CreateHoldInput{
		StayID:          input.StayID,
		DurationMinutes: input.DurationMinutes,
		OnExpiry:        input.OnExpiry,
		Actor:           middleware.ActorFromContext(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"hold": hold, "stay": st})
}

// GetHold returns the hold record.
func (h *HoldHandler) GetHold(c *gin.Context) {
	hold, err := h.Manager.GetHold(c.Request.Context(), c.Param("holdID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hold)
}

// CancelHold explicitly releases an active hold.
func (h *HoldHandler) CancelHold(c *gin.Context) {
	st, err := h.Manager.CancelHold(c.Request.Context(), c.Param("holdID"), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
