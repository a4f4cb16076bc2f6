package stay

import (
	"context"
	"errors"

	"innkeeper/models"
)

// ErrNotFound is returned when no stay matches the given id.
var ErrNotFound = errors.New("stay not found")

// ErrStaleStatus is returned when a transition's expected current status no
// longer matches the stored document (another writer won).
var ErrStaleStatus = errors.New("stay status changed concurrently")

// Repository persists stays. History is append-only; ApplyTransition is the
// only write path that changes status.
type Repository interface {
	Create(ctx context.Context, s *models.Stay) error
	GetByID(ctx context.Context, id string) (*models.Stay, error)

	// ApplyTransition atomically appends the history entry, sets the new
	// status, and applies the extra field updates, but only if the stored
	// status still equals from. Returns ErrStaleStatus otherwise, so no
	// observer ever sees a status without its history entry.
	ApplyTransition(ctx context.Context, id string, from models.StayStatus, entry models.StayHistoryEntry, set map[string]interface{}) error

	// AppendEvent appends a history entry without changing status (branch
	// markers and terminal reconciliation events).
	AppendEvent(ctx context.Context, id string, current models.StayStatus, entry models.StayHistoryEntry, set map[string]interface{}) error

	// ListWithPaymentsDue returns non-terminal stays holding a pending
	// schedule item whose resolved due date is on or before the given date.
	ListWithPaymentsDue(ctx context.Context, onOrBefore string) ([]models.Stay, error)
}
