package models

import "time"

// WebhookType enumerates outbound event payloads.
type WebhookType string

const (
	WebhookStayCreated       WebhookType = "stay.created"
	WebhookStayStatusChanged WebhookType = "stay.status_changed"
	WebhookStayModified      WebhookType = "stay.modified"
	WebhookStayCancelled     WebhookType = "stay.cancelled"
	WebhookStayNoShow        WebhookType = "stay.no_show"
	WebhookHoldCreated       WebhookType = "hold.created"
	WebhookHoldExpired       WebhookType = "hold.expired"
)

// WebhookEvent is one outbound payload. EventID lets receivers de-duplicate
// across at-least-once delivery; Seq orders events within a stay.
type WebhookEvent struct {
	EventID   string      `bson:"event_id" json:"event_id"`
	Type      WebhookType `bson:"type" json:"type"`
	StayID    string      `bson:"stay_id" json:"stay_id"`
	VenueID   string      `bson:"venue_id" json:"venue_id"`
	Seq       int64       `bson:"seq" json:"-"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`

	// Variant fields, populated per Type.
	FromStatus  StayStatus    `bson:"from_status,omitempty" json:"from_status,omitempty"`
	ToStatus    StayStatus    `bson:"to_status,omitempty" json:"to_status,omitempty"`
	Actor       Actor         `bson:"actor,omitempty" json:"actor,omitempty"`
	CheckIn     string        `bson:"check_in,omitempty" json:"check_in,omitempty"`
	CheckOut    string        `bson:"check_out,omitempty" json:"check_out,omitempty"`
	HoldID      string        `bson:"hold_id,omitempty" json:"hold_id,omitempty"`
	ExpiresAt   *time.Time    `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	Changes     []FieldChange `bson:"changes,omitempty" json:"changes,omitempty"`
	PriceDiff   *Money        `bson:"price_difference,omitempty" json:"price_difference,omitempty"`
	CancelledBy Actor         `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
	Refund      *Refund       `bson:"refund,omitempty" json:"refund,omitempty"`
	HoursAfter  int           `bson:"hours_after_check_in,omitempty" json:"hours_after_check_in,omitempty"`
	Charge      *NoShowCharge `bson:"charge,omitempty" json:"charge,omitempty"`
}

// WebhookEndpoint is the per-venue registered delivery target.
type WebhookEndpoint struct {
	VenueID   string    `bson:"venue_id" json:"venue_id"`
	URL       string    `bson:"url" json:"url"`
	Secret    string    `bson:"secret,omitempty" json:"secret,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DeadLetter is a webhook event whose delivery attempts were exhausted.
type DeadLetter struct {
	Event     WebhookEvent `bson:"event" json:"event"`
	Attempts  int          `bson:"attempts" json:"attempts"`
	LastError string       `bson:"last_error" json:"last_error"`
	FailedAt  time.Time    `bson:"failed_at" json:"failed_at"`
}
