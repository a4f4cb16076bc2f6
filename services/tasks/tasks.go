package tasks

import (
	"context"
	"encoding/json"
	"time"

	"innkeeper/models"

	"github.com/hibiken/asynq"
)

const (
	TypeHoldExpire     = "hold:expire"
	TypePaymentDueScan = "payment:due_scan"
)

// HoldExpirePayload carries the hold an expiry task should resolve.
type HoldExpirePayload struct {
	HoldID string `json:"holdId"`
	StayID string `json:"stayId"`
}

// NewHoldExpireTask builds a task that fires at the hold's expiry instant.
// The task id is the hold id so re-scheduling the same hold de-duplicates.
func NewHoldExpireTask(h *models.Hold) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(HoldExpirePayload{HoldID: h.ID, StayID: h.StayID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeHoldExpire, b)
	opts := []asynq.Option{
		asynq.ProcessAt(h.ExpiresAt),
		asynq.TaskID(h.ID),
	}
	return task, opts, nil
}

// NewPaymentDueScanTask builds the periodic scan for schedule items coming due.
func NewPaymentDueScanTask() *asynq.Task {
	return asynq.NewTask(TypePaymentDueScan, nil)
}

// Scheduler enqueues timed tasks on the asynq queue.
type Scheduler struct {
	client *asynq.Client
}

func NewScheduler(client *asynq.Client) *Scheduler {
	return &Scheduler{client: client}
}

// ScheduleExpiry enqueues the hold's expiry task. The periodic sweep is the
// backstop if the queue is unavailable, so failures here are soft.
func (s *Scheduler) ScheduleExpiry(ctx context.Context, h *models.Hold) error {
	task, opts, err := NewHoldExpireTask(h)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task, opts...)
	return err
}

// ScheduleDueScan enqueues one due scan, delayed by the given amount.
func (s *Scheduler) ScheduleDueScan(ctx context.Context, delay time.Duration) error {
	_, err := s.client.EnqueueContext(ctx, NewPaymentDueScanTask(), asynq.ProcessIn(delay))
	return err
}
