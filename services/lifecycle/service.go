package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	stayRepo "innkeeper/database/repository/stay"
	"innkeeper/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const stayCacheKeyPrefix = "stay:"

func (s *DefaultStayService) loadStay(ctx context.Context, stayID string) (*models.Stay, error) {
	st, err := s.Stays.GetByID(ctx, stayID)
	if errors.Is(err, stayRepo.ErrNotFound) {
		return nil, NewNotFoundError("stay " + stayID)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// transition validates the move against the table, appends the history entry
// atomically with the status update and any owned-entity field changes, then
// invalidates the cached projection and publishes the status change.
func (s *DefaultStayService) transition(ctx context.Context, st *models.Stay, to models.StayStatus, actor models.Actor, details map[string]interface{}, set map[string]interface{}) error {
	from := st.Status
	if !CanTransition(from, to) {
		return NewInvalidTransitionError(string(from), string(to), "")
	}

	now := s.Clock.Now()
	fromCopy := from
	entry := models.StayHistoryEntry{
		Timestamp:  now,
		FromStatus: &fromCopy,
		ToStatus:   to,
		Actor:      actor,
		Details:    details,
	}

	if err := s.Stays.ApplyTransition(ctx, st.ID, from, entry, set); err != nil {
		if errors.Is(err, stayRepo.ErrStaleStatus) {
			return NewInvalidTransitionError(string(from), string(to), "stay was updated concurrently, re-read state")
		}
		if errors.Is(err, stayRepo.ErrNotFound) {
			return NewNotFoundError("stay " + st.ID)
		}
		return err
	}

	st.Status = to
	st.UpdatedAt = now
	st.History = append(st.History, entry)
	s.invalidateProjection(ctx, st.ID)

	s.Logger.Info("stay transition",
		zap.String("stayID", st.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", string(actor)))

	s.Events.Publish(models.WebhookEvent{
		EventID:    newEventID(),
		Type:       models.WebhookStayStatusChanged,
		StayID:     st.ID,
		VenueID:    st.Venue.ID,
		Timestamp:  now,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
	})
	return nil
}

// appendMarker records a branch event (modification, refund reconciliation)
// as a history entry that keeps the current trunk status.
func (s *DefaultStayService) appendMarker(ctx context.Context, st *models.Stay, actor models.Actor, details map[string]interface{}, set map[string]interface{}) error {
	now := s.Clock.Now()
	current := st.Status
	fromCopy := current
	entry := models.StayHistoryEntry{
		Timestamp:  now,
		FromStatus: &fromCopy,
		ToStatus:   current,
		Actor:      actor,
		Details:    details,
	}

	if err := s.Stays.AppendEvent(ctx, st.ID, current, entry, set); err != nil {
		if errors.Is(err, stayRepo.ErrStaleStatus) {
			return NewInvalidTransitionError(string(current), string(current), "stay was updated concurrently, re-read state")
		}
		if errors.Is(err, stayRepo.ErrNotFound) {
			return NewNotFoundError("stay " + st.ID)
		}
		return err
	}

	st.UpdatedAt = now
	st.History = append(st.History, entry)
	s.invalidateProjection(ctx, st.ID)
	return nil
}

func (s *DefaultStayService) invalidateProjection(ctx context.Context, stayID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, stayCacheKeyPrefix+stayID).Err(); err != nil {
		s.Logger.Warn("failed to invalidate stay projection", zap.String("stayID", stayID), zap.Error(err))
	}
}

// CreateStayRequest creates a stay in the request state with its first
// history entry and announces it to the venue.
func (s *DefaultStayService) CreateStayRequest(ctx context.Context, in CreateStayInput) (*models.Stay, error) {
	now := s.Clock.Now()
	st := &models.Stay{
		ID:        "stay_" + uuid.New().String(),
		Status:    models.StatusRequest,
		CreatedAt: now,
		UpdatedAt: now,
		Venue:     in.Venue,
		Dates:     in.Dates,
		Guests:    in.Guests,
		Units:     in.Units,
		History: []models.StayHistoryEntry{{
			Timestamp:  now,
			FromStatus: nil,
			ToStatus:   models.StatusRequest,
			Actor:      in.Actor,
		}},
	}

	if err := s.Stays.Create(ctx, st); err != nil {
		return nil, err
	}

	s.Logger.Info("stay created", zap.String("stayID", st.ID), zap.String("venueID", st.Venue.ID))

	s.Events.Publish(models.WebhookEvent{
		EventID:   newEventID(),
		Type:      models.WebhookStayCreated,
		StayID:    st.ID,
		VenueID:   st.Venue.ID,
		Timestamp: now,
		CheckIn:   st.Dates.CheckIn,
		CheckOut:  st.Dates.CheckOut,
	})
	return st, nil
}

// MarkAvailability resolves an availability request.
func (s *DefaultStayService) MarkAvailability(ctx context.Context, stayID string, available bool, actor models.Actor) (*models.Stay, error) {
	unlock := s.locks.lock(stayID)
	defer unlock()

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}

	to := models.StatusAvailable
	if !available {
		to = models.StatusUnavailable
	}
	if err := s.transition(ctx, st, to, actor, nil, nil); err != nil {
		return nil, err
	}
	return st, nil
}

// AttachHold moves an available stay to held for the given hold record.
// Called by the hold manager after the hold is persisted.
func (s *DefaultStayService) AttachHold(ctx context.Context, stayID string, h *models.Hold, actor models.Actor) (*models.Stay, error) {
	unlock := s.locks.lock(stayID)
	defer unlock()

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"hold_id":    h.ID,
		"expires_at": h.ExpiresAt.Format(time.RFC3339),
	}
	if err := s.transition(ctx, st, models.StatusHeld, actor, details, nil); err != nil {
		return nil, err
	}

	expiresAt := h.ExpiresAt
	s.Events.Publish(models.WebhookEvent{
		EventID:   newEventID(),
		Type:      models.WebhookHoldCreated,
		StayID:    st.ID,
		VenueID:   st.Venue.ID,
		Timestamp: st.UpdatedAt,
		HoldID:    h.ID,
		ExpiresAt: &expiresAt,
	})
	return st, nil
}

// ReleaseHold routes a hold expiry or explicit cancellation through the state
// machine: the stay falls back to available or is terminally cancelled
// depending on the hold's expiry action. The hold itself must already have
// been resolved (single winner) by the caller.
func (s *DefaultStayService) ReleaseHold(ctx context.Context, stayID, holdID string, action models.HoldExpiryAction, expired bool, actor models.Actor) (*models.Stay, error) {
	unlock := s.locks.lock(stayID)
	defer unlock()

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}

	to := models.StatusAvailable
	if action == models.ExpiryCancel {
		to = models.StatusCancelled
	}
	reason := "hold_cancelled"
	if expired {
		reason = "hold_expired"
	}
	details := map[string]interface{}{"hold_id": holdID, "reason": reason}
	if err := s.transition(ctx, st, to, actor, details, nil); err != nil {
		return nil, err
	}

	if expired {
		s.Events.Publish(models.WebhookEvent{
			EventID:   newEventID(),
			Type:      models.WebhookHoldExpired,
			StayID:    st.ID,
			VenueID:   st.Venue.ID,
			Timestamp: st.UpdatedAt,
			HoldID:    holdID,
		})
	}
	return st, nil
}

// GetStay returns the stay projection, read through the cache.
func (s *DefaultStayService) GetStay(ctx context.Context, stayID string) (*models.Stay, error) {
	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, stayCacheKeyPrefix+stayID).Result(); err == nil {
			var st models.Stay
			if err := json.Unmarshal([]byte(raw), &st); err == nil {
				return &st, nil
			}
		}
	}

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(st); err == nil {
			ttl := time.Duration(s.CacheTTL) * time.Second
			if err := s.Cache.Set(ctx, stayCacheKeyPrefix+stayID, raw, ttl).Err(); err != nil {
				s.Logger.Warn("failed to cache stay projection", zap.String("stayID", stayID), zap.Error(err))
			}
		}
	}
	return st, nil
}

func newEventID() string {
	return "evt_" + uuid.New().String()
}
