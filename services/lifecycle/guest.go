package lifecycle

import (
	"context"

	"innkeeper/models"
)

// CheckIn records the guest's arrival, moving the stay to arrived.
func (s *DefaultStayService) CheckIn(ctx context.Context, stayID, roomAssigned string, actor models.Actor) (*models.Stay, error) {
	unlock := s.locks.lock(stayID)
	defer unlock()

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	arrival := &models.ArrivalInfo{CheckedInAt: &now, RoomAssigned: roomAssigned}
	set := map[string]interface{}{"arrival": arrival}
	details := map[string]interface{}{}
	if roomAssigned != "" {
		details["room_assigned"] = roomAssigned
	}

	if err := s.transition(ctx, st, models.StatusArrived, actor, details, set); err != nil {
		return nil, err
	}
	st.Arrival = arrival
	return st, nil
}

// CheckOut records the guest's departure, moving the stay to stayed.
func (s *DefaultStayService) CheckOut(ctx context.Context, stayID string, actor models.Actor) (*models.Stay, error) {
	unlock := s.locks.lock(stayID)
	defer unlock()

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	departure := &models.DepartureInfo{CheckedOutAt: &now}
	set := map[string]interface{}{"departure": departure}

	if err := s.transition(ctx, st, models.StatusStayed, actor, nil, set); err != nil {
		return nil, err
	}
	st.Departure = departure
	return st, nil
}

// Complete closes out a stayed booking. This is the happy-path terminal state.
func (s *DefaultStayService) Complete(ctx context.Context, stayID string, actor models.Actor) (*models.Stay, error) {
	unlock := s.locks.lock(stayID)
	defer unlock()

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, st, models.StatusCompleted, actor, nil, nil); err != nil {
		return nil, err
	}
	return st, nil
}
