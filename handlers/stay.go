package handlers

import (
	"net/http"

	"innkeeper/middleware"
	"innkeeper/models"
	"innkeeper/services/lifecycle"

	"github.com/gin-gonic/gin"
)

// StayHandler exposes the lifecycle commands over HTTP.
type StayHandler struct {
	Service lifecycle.StayService
}

func NewStayHandler(service lifecycle.StayService) *StayHandler {
	return &StayHandler{Service: service}
}

// CreateStay starts a new stay in the request state.
func (h *StayHandler) CreateStay(c *gin.Context) {
	var input struct {
		Venue  models.VenueRef     `json:"venue" binding:"required"`
		Dates  models.StayDates    `json:"dates" binding:"required"`
		Guests models.GuestInfo    `json:"guests" binding:"required"`
		Units  []models.BookedUnit `json:"units"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	st, err := h.Service.CreateStayRequest(c.Request.Context(), lifecycle.CreateStayInput{
		Venue:  input.Venue,
		Dates:  input.Dates,
		Guests: input.Guests,
		Units:  input.Units,
		Actor:  middleware.ActorFromContext(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// GetStay returns the stay projection.
func (h *StayHandler) GetStay(c *gin.Context) {
	st, err := h.Service.GetStay(c.Request.Context(), c.Param("stayID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// MarkAvailability resolves an availability request.
func (h *StayHandler) MarkAvailability(c *gin.Context) {
	var input struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	st, err := h.Service.MarkAvailability(c.Request.Context(), c.Param("stayID"), *input.Available, middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ConvertHold converts the stay's hold into a booking with its folio.
func (h *StayHandler) ConvertHold(c *gin.Context) {
	var input struct {
		HoldID string              `json:"holdId" binding:"required"`
		Folio  models.Folio        `json:"folio" binding:"required"`
		Units  []models.BookedUnit `json:"units"`
		Total  models.Money        `json:"total" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	st, err := h.Service.ConvertHoldToBooking(c.Request.Context(), lifecycle.ConvertInput{
		StayID: c.Param("stayID"),
		HoldID: input.HoldID,
		Folio:  input.Folio,
		Units:  input.Units,
		Total:  input.Total,
		Actor:  middleware.ActorFromContext(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CaptureDeposit captures the deposit and confirms the booking.
func (h *StayHandler) CaptureDeposit(c *gin.Context) {
	st, err := h.Service.CaptureDeposit(c.Request.Context(), c.Param("stayID"), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CaptureBalance captures the outstanding balance.
func (h *StayHandler) CaptureBalance(c *gin.Context) {
	st, err := h.Service.CaptureBalance(c.Request.Context(), c.Param("stayID"), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CheckIn records the guest's arrival.
func (h *StayHandler) CheckIn(c *gin.Context) {
	var input struct {
		RoomAssigned string `json:"roomAssigned"`
	}
	// Body is optional for venues without room assignment.
	_ = c.ShouldBindJSON(&input)

	st, err := h.Service.CheckIn(c.Request.Context(), c.Param("stayID"), input.RoomAssigned, middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CheckOut records the guest's departure.
func (h *StayHandler) CheckOut(c *gin.Context) {
	st, err := h.Service.CheckOut(c.Request.Context(), c.Param("stayID"), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Complete closes out a stayed booking.
func (h *StayHandler) Complete(c *gin.Context) {
	st, err := h.Service.Complete(c.Request.Context(), c.Param("stayID"), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// RequestModification applies a booking modification.
func (h *StayHandler) RequestModification(c *gin.Context) {
	var input struct {
		Changes              []models.FieldChange `json:"changes" binding:"required"`
		NewTotal             *models.Money        `json:"newTotal"`
		RequiresRevalidation bool                 `json:"requiresRevalidation"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	st, err := h.Service.RequestModification(c.Request.Context(), lifecycle.ModificationInput{
		StayID:               c.Param("stayID"),
		Changes:              input.Changes,
		NewTotal:             input.NewTotal,
		RequiresRevalidation: input.RequiresRevalidation,
		Actor:                middleware.ActorFromContext(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// RequestCancellation cancels the booking and computes the refund.
func (h *StayHandler) RequestCancellation(c *gin.Context) {
	var input struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&input)

	st, err := h.Service.RequestCancellation(c.Request.Context(), lifecycle.CancellationInput{
		StayID: c.Param("stayID"),
		Reason: input.Reason,
		Actor:  middleware.ActorFromContext(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ReportNoShow marks the stay as a no-show with the supplied proof.
func (h *StayHandler) ReportNoShow(c *gin.Context) {
	var input struct {
		Proof models.NoShowProof `json:"proof" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	st, err := h.Service.ReportNoShow(c.Request.Context(), lifecycle.NoShowInput{
		StayID: c.Param("stayID"),
		Proof:  input.Proof,
		Actor:  middleware.ActorFromContext(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ConfirmRefund reconciles a delayed refund outcome onto a cancelled stay.
func (h *StayHandler) ConfirmRefund(c *gin.Context) {
	var input struct {
		Processed *bool `json:"processed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	st, err := h.Service.ConfirmRefund(c.Request.Context(), c.Param("stayID"), *input.Processed, middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
