package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	webhookRepo "innkeeper/database/repository/webhook"
	"innkeeper/models"

	"go.uber.org/zap"
)

// Dispatcher delivers webhook events at least once, in per-stay publish
// order. A failing delivery is retried with exponential backoff and blocks
// every later event for the same stay until it succeeds or is moved to the
// dead-letter collection; cross-stay ordering is unspecified and queues run
// independently.
type Dispatcher struct {
	Repo        webhookRepo.Repository
	Sender      Sender
	Logger      *zap.Logger
	MaxAttempts int
	BaseBackoff time.Duration

	mu     sync.Mutex
	queues map[string]*stayQueue
	seqs   map[string]int64
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type stayQueue struct {
	events  []*models.WebhookEvent
	running bool
}

func NewDispatcher(repo webhookRepo.Repository, sender Sender, logger *zap.Logger, maxAttempts int, baseBackoff time.Duration) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		Repo:        repo,
		Sender:      sender,
		Logger:      logger,
		MaxAttempts: maxAttempts,
		BaseBackoff: baseBackoff,
		queues:      make(map[string]*stayQueue),
		seqs:        make(map[string]int64),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish enqueues an event for delivery. Events for the same stay are
// assigned increasing sequence numbers and delivered in publish order.
func (d *Dispatcher) Publish(event models.WebhookEvent) {
	d.mu.Lock()
	d.seqs[event.StayID]++
	event.Seq = d.seqs[event.StayID]

	q, ok := d.queues[event.StayID]
	if !ok {
		q = &stayQueue{}
		d.queues[event.StayID] = q
	}
	q.events = append(q.events, &event)

	if !q.running {
		q.running = true
		d.wg.Add(1)
		go d.drain(event.StayID, q)
	}
	d.mu.Unlock()
}

// drain delivers the stay's queued events one at a time, in order.
func (d *Dispatcher) drain(stayID string, q *stayQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.events) == 0 {
			q.running = false
			delete(d.queues, stayID)
			d.mu.Unlock()
			return
		}
		event := q.events[0]
		q.events = q.events[1:]
		d.mu.Unlock()

		d.deliver(event)
	}
}

// deliver attempts one event until it is delivered or attempts are
// exhausted, at which point it is dead-lettered so it is never dropped
// silently.
func (d *Dispatcher) deliver(event *models.WebhookEvent) {
	var lastErr error
	for attempt := 1; attempt <= d.MaxAttempts; attempt++ {
		// The endpoint is looked up per attempt: a transient store error is
		// retried like a send failure, and only a venue with no registered
		// endpoint dead-letters without burning the attempt budget.
		ep, err := d.Repo.GetEndpoint(d.ctx, event.VenueID)
		if errors.Is(err, webhookRepo.ErrEndpointNotFound) {
			d.deadLetter(event, 0, "venue has no registered webhook endpoint")
			return
		}
		if err == nil {
			err = d.Sender.Send(d.ctx, ep, event)
		}
		if err == nil {
			d.Logger.Debug("webhook delivered",
				zap.String("eventID", event.EventID),
				zap.String("stayID", event.StayID),
				zap.Int64("seq", event.Seq),
				zap.Int("attempt", attempt))
			return
		}
		lastErr = err

		d.Logger.Warn("webhook delivery failed",
			zap.String("eventID", event.EventID),
			zap.String("stayID", event.StayID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))

		if attempt < d.MaxAttempts {
			select {
			case <-time.After(d.backoff(attempt)):
			case <-d.ctx.Done():
				// Shutdown mid-retry: dead-letter so the event survives.
				d.deadLetter(event, attempt, "dispatcher shut down during retries")
				return
			}
		}
	}

	d.deadLetter(event, d.MaxAttempts, lastErr.Error())
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	backoff := d.BaseBackoff << uint(attempt-1)
	if max := 2 * time.Minute; backoff > max {
		backoff = max
	}
	return backoff
}

// deadLetter records an exhausted event. Stay state is unaffected.
func (d *Dispatcher) deadLetter(event *models.WebhookEvent, attempts int, reason string) {
	d.Logger.Error("webhook delivery exhausted, dead-lettering",
		zap.String("eventID", event.EventID),
		zap.String("stayID", event.StayID),
		zap.String("reason", reason))

	dl := &models.DeadLetter{
		Event:     *event,
		Attempts:  attempts,
		LastError: reason,
		FailedAt:  time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Repo.SaveDeadLetter(ctx, dl); err != nil {
		d.Logger.Error("failed to persist dead letter",
			zap.String("eventID", event.EventID), zap.Error(err))
	}
}

// Close stops retrying and waits for in-flight queues to finish.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
