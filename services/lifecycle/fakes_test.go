package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	holdRepo "innkeeper/database/repository/hold"
	stayRepo "innkeeper/database/repository/stay"
	"innkeeper/models"
	"innkeeper/services/payment"
)

// testClock is a mutable clock for driving expiry and policy windows.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t.UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeStayRepo is an in-memory stay store honoring the CAS contract.
type fakeStayRepo struct {
	mu    sync.Mutex
	stays map[string]*models.Stay
}

func newFakeStayRepo() *fakeStayRepo {
	return &fakeStayRepo{stays: make(map[string]*models.Stay)}
}

func cloneStay(s *models.Stay) *models.Stay {
	raw, _ := json.Marshal(s)
	var out models.Stay
	_ = json.Unmarshal(raw, &out)
	return &out
}

func (r *fakeStayRepo) Create(ctx context.Context, s *models.Stay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stays[s.ID] = cloneStay(s)
	return nil
}

func (r *fakeStayRepo) GetByID(ctx context.Context, id string) (*models.Stay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stays[id]
	if !ok {
		return nil, stayRepo.ErrNotFound
	}
	return cloneStay(s), nil
}

func (r *fakeStayRepo) ApplyTransition(ctx context.Context, id string, from models.StayStatus, entry models.StayHistoryEntry, set map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stays[id]
	if !ok {
		return stayRepo.ErrNotFound
	}
	if s.Status != from {
		return stayRepo.ErrStaleStatus
	}
	s.Status = entry.ToStatus
	s.UpdatedAt = entry.Timestamp
	s.History = append(s.History, entry)
	applySet(s, set)
	return nil
}

func (r *fakeStayRepo) AppendEvent(ctx context.Context, id string, current models.StayStatus, entry models.StayHistoryEntry, set map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stays[id]
	if !ok {
		return stayRepo.ErrNotFound
	}
	if s.Status != current {
		return stayRepo.ErrStaleStatus
	}
	s.UpdatedAt = entry.Timestamp
	s.History = append(s.History, entry)
	applySet(s, set)
	return nil
}

func (r *fakeStayRepo) ListWithPaymentsDue(ctx context.Context, onOrBefore string) ([]models.Stay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Stay
	for _, s := range r.stays {
		if s.Status != models.StatusBooked && s.Status != models.StatusConfirmed {
			continue
		}
		if s.Folio == nil {
			continue
		}
		for _, item := range s.Folio.PaymentSchedule {
			if item.Status == models.PaymentItemPending && item.DueDate != "" && item.DueDate <= onOrBefore {
				out = append(out, *cloneStay(s))
				break
			}
		}
	}
	return out, nil
}

// applySet mirrors the mongo $set application for the owned-entity fields the
// service writes alongside transitions.
func applySet(s *models.Stay, set map[string]interface{}) {
	for key, value := range set {
		switch key {
		case "folio":
			switch v := value.(type) {
			case models.Folio:
				s.Folio = &v
			case *models.Folio:
				s.Folio = v
			}
		case "payment":
			s.Payment = value.(*models.StayPayment)
		case "units":
			s.Units = value.([]models.BookedUnit)
		case "arrival":
			s.Arrival = value.(*models.ArrivalInfo)
		case "departure":
			s.Departure = value.(*models.DepartureInfo)
		case "modification":
			s.Modification = value.(*models.ModificationRecord)
		case "cancellation":
			s.Cancellation = value.(*models.CancellationRecord)
		case "no_show":
			s.NoShow = value.(*models.NoShowRecord)
		}
	}
}

// fakeHoldRepo is an in-memory hold store with single-winner resolution.
type fakeHoldRepo struct {
	mu    sync.Mutex
	holds map[string]*models.Hold
}

func newFakeHoldRepo() *fakeHoldRepo {
	return &fakeHoldRepo{holds: make(map[string]*models.Hold)}
}

func (r *fakeHoldRepo) Create(ctx context.Context, h *models.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *h
	r.holds[h.ID] = &cp
	return nil
}

func (r *fakeHoldRepo) GetByID(ctx context.Context, id string) (*models.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holds[id]
	if !ok {
		return nil, holdRepo.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *fakeHoldRepo) Resolve(ctx context.Context, id string, to models.HoldStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.holds[id]
	if !ok {
		return holdRepo.ErrNotFound
	}
	if h.Status != models.HoldActive {
		return holdRepo.ErrAlreadyResolved
	}
	h.Status = to
	return nil
}

func (r *fakeHoldRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Hold
	for _, h := range r.holds {
		if h.ExpiredBy(now) {
			out = append(out, *h)
		}
	}
	return out, nil
}

// fakePayments records capture/refund calls and can be forced to fail.
type fakePayments struct {
	mu         sync.Mutex
	captures   []payment.CaptureRequest
	refunds    []payment.RefundRequest
	captureErr error
	refundErr  error
	seq        int
}

func (p *fakePayments) Capture(ctx context.Context, req payment.CaptureRequest) (*payment.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	p.captures = append(p.captures, req)
	p.seq++
	return &payment.Result{Reference: fmt.Sprintf("ch_%03d", p.seq)}, nil
}

func (p *fakePayments) Refund(ctx context.Context, req payment.RefundRequest) (*payment.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return nil, p.refundErr
	}
	p.refunds = append(p.refunds, req)
	p.seq++
	return &payment.Result{Reference: fmt.Sprintf("re_%03d", p.seq)}, nil
}

// fakeSink collects published webhook events in order.
type fakeSink struct {
	mu     sync.Mutex
	events []models.WebhookEvent
}

func (s *fakeSink) Publish(event models.WebhookEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) types() []models.WebhookType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.WebhookType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}
