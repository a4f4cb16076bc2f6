package hold

import (
	"context"
	"errors"
	"time"

	"innkeeper/models"
)

// ErrNotFound is returned when no hold matches the given id.
var ErrNotFound = errors.New("hold not found")

// ErrAlreadyResolved is returned when a convert/cancel/expire loses the race
// on a hold that has already left the active state.
var ErrAlreadyResolved = errors.New("hold already resolved")

// Repository persists inventory holds.
type Repository interface {
	Create(ctx context.Context, h *models.Hold) error
	GetByID(ctx context.Context, id string) (*models.Hold, error)

	// Resolve fixes the hold's final status, but only if it is still active.
	// Exactly one of conversion, cancellation and expiry wins; losers get
	// ErrAlreadyResolved.
	Resolve(ctx context.Context, id string, to models.HoldStatus) error

	// ListExpired returns active holds whose expiry is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]models.Hold, error)
}
