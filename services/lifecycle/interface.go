package lifecycle

import (
	"context"

	holdRepo "innkeeper/database/repository/hold"
	stayRepo "innkeeper/database/repository/stay"
	"innkeeper/models"
	"innkeeper/services/payment"
	"innkeeper/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EventSink receives webhook events from accepted transitions. Implemented by
// the dispatcher; events for one stay must be delivered in publish order.
type EventSink interface {
	Publish(event models.WebhookEvent)
}

// StayService is the single entry point for every stay mutation; hold expiry
// sweeps route through it exactly like request-driven traffic.
type StayService interface {
	CreateStayRequest(ctx context.Context, in CreateStayInput) (*models.Stay, error)
	MarkAvailability(ctx context.Context, stayID string, available bool, actor models.Actor) (*models.Stay, error)
	AttachHold(ctx context.Context, stayID string, h *models.Hold, actor models.Actor) (*models.Stay, error)
	ReleaseHold(ctx context.Context, stayID, holdID string, action models.HoldExpiryAction, expired bool, actor models.Actor) (*models.Stay, error)
	ConvertHoldToBooking(ctx context.Context, in ConvertInput) (*models.Stay, error)
	CaptureDeposit(ctx context.Context, stayID string, actor models.Actor) (*models.Stay, error)
	CaptureBalance(ctx context.Context, stayID string, actor models.Actor) (*models.Stay, error)
	CheckIn(ctx context.Context, stayID, roomAssigned string, actor models.Actor) (*models.Stay, error)
	CheckOut(ctx context.Context, stayID string, actor models.Actor) (*models.Stay, error)
	Complete(ctx context.Context, stayID string, actor models.Actor) (*models.Stay, error)
	RequestModification(ctx context.Context, in ModificationInput) (*models.Stay, error)
	RequestCancellation(ctx context.Context, in CancellationInput) (*models.Stay, error)
	ReportNoShow(ctx context.Context, in NoShowInput) (*models.Stay, error)
	ConfirmRefund(ctx context.Context, stayID string, processed bool, actor models.Actor) (*models.Stay, error)
	GetStay(ctx context.Context, stayID string) (*models.Stay, error)
}

// CreateStayInput starts a new stay in the request state.
type CreateStayInput struct {
	Venue  models.VenueRef
	Dates  models.StayDates
	Guests models.GuestInfo
	Units  []models.BookedUnit
	Actor  models.Actor
}

// ConvertInput converts a hold into a booking, attaching the folio snapshot.
type ConvertInput struct {
	StayID string
	HoldID string
	Folio  models.Folio
	Units  []models.BookedUnit
	Total  models.Money
	Actor  models.Actor
}

// ModificationInput requests a change to an existing booking.
type ModificationInput struct {
	StayID  string
	Changes []models.FieldChange
	// NewTotal is set when the changed units/dates reprice the stay.
	NewTotal *models.Money
	// RequiresRevalidation falls the stay back to held so availability can be
	// re-checked for the new dates/units.
	RequiresRevalidation bool
	Actor                models.Actor
}

// CancellationInput cancels a booking.
type CancellationInput struct {
	StayID string
	Reason string
	Actor  models.Actor
}

// NoShowInput reports a guest no-show with the required proof.
type NoShowInput struct {
	StayID string
	Proof  models.NoShowProof
	Actor  models.Actor
}

// DefaultStayService implements StayService.
type DefaultStayService struct {
	Stays    stayRepo.Repository
	Holds    holdRepo.Repository
	Payments payment.CaptureClient
	Events   EventSink
	Cache    *redis.Client
	CacheTTL int // seconds
	Clock    utils.Clock
	Logger   *zap.Logger

	locks *stayLocks
}

// NewStayService wires a DefaultStayService.
func NewStayService(stays stayRepo.Repository, holds holdRepo.Repository, payments payment.CaptureClient, events EventSink, cache *redis.Client, cacheTTL int, clock utils.Clock, logger *zap.Logger) *DefaultStayService {
	return &DefaultStayService{
		Stays:    stays,
		Holds:    holds,
		Payments: payments,
		Events:   events,
		Cache:    cache,
		CacheTTL: cacheTTL,
		Clock:    clock,
		Logger:   logger,
		locks:    newStayLocks(),
	}
}
