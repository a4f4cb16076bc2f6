package webhook

import (
	"context"
	"errors"

	"innkeeper/models"
)

// ErrEndpointNotFound is returned when a venue has no registered endpoint.
var ErrEndpointNotFound = errors.New("webhook endpoint not found")

// Repository persists webhook endpoints and the dead-letter queue.
type Repository interface {
	UpsertEndpoint(ctx context.Context, ep *models.WebhookEndpoint) error
	GetEndpoint(ctx context.Context, venueID string) (*models.WebhookEndpoint, error)

	SaveDeadLetter(ctx context.Context, dl *models.DeadLetter) error
	ListDeadLetters(ctx context.Context, stayID string) ([]models.DeadLetter, error)
}
