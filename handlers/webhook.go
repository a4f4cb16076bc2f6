package handlers

import (
	"net/http"
	"time"

	webhookRepo "innkeeper/database/repository/webhook"
	"innkeeper/models"
	"innkeeper/utils"

	"github.com/gin-gonic/gin"
)

// WebhookHandler manages per-venue endpoint registration and exposes the
// dead-letter queue for inspection.
type WebhookHandler struct {
	Repo webhookRepo.Repository
}

func NewWebhookHandler(repo webhookRepo.Repository) *WebhookHandler {
	return &WebhookHandler{Repo: repo}
}

// RegisterEndpoint upserts the venue's webhook delivery target.
func (h *WebhookHandler) RegisterEndpoint(c *gin.Context) {
	var input struct {
		URL    string `json:"url" binding:"required,url"`
		Secret string `json:"secret"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	now := time.Now().UTC()
	ep := &models.WebhookEndpoint{
		VenueID:   c.Param("venueID"),
		URL:       input.URL,
		Secret:    input.Secret,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Repo.UpsertEndpoint(c.Request.Context(), ep); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to register endpoint", err.Error())
		return
	}
	c.JSON(http.StatusOK, ep)
}

// ListDeadLetters returns exhausted deliveries for a stay.
func (h *WebhookHandler) ListDeadLetters(c *gin.Context) {
	letters, err := h.Repo.ListDeadLetters(c.Request.Context(), c.Param("stayID"))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list dead letters", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"deadLetters": letters})
}
