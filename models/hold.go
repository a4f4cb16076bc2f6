package models

import "time"

// HoldStatus is the lifecycle of a temporary inventory hold. Once a hold
// leaves "active" its status is fixed permanently.
type HoldStatus string

const (
	HoldActive    HoldStatus = "active"
	HoldConverted HoldStatus = "converted"
	HoldExpired   HoldStatus = "expired"
	HoldCancelled HoldStatus = "cancelled"
)

// HoldExpiryAction decides where the owning stay goes when the hold expires.
type HoldExpiryAction string

const (
	ExpiryRelease HoldExpiryAction = "release" // stay returns to available
	ExpiryCancel  HoldExpiryAction = "cancel"  // stay is terminally cancelled
)

// Hold is a short-lived reservation on inventory, owned by exactly one stay.
// An active hold with expiry in the past is logically expired even before the
// sweep makes it externally observable.
type Hold struct {
	ID              string           `bson:"id" json:"id"`
	StayID          string           `bson:"stay_id" json:"stay_id"`
	Status          HoldStatus       `bson:"status" json:"status"`
	ExpiresAt       time.Time        `bson:"expires_at" json:"expires_at"`
	DurationMinutes int              `bson:"duration_minutes" json:"duration_minutes"`
	OnExpiry        HoldExpiryAction `bson:"on_expiry" json:"on_expiry"`
	CreatedAt       time.Time        `bson:"created_at" json:"created_at"`
}

// ExpiredBy reports whether the hold is logically expired at the given instant.
func (h Hold) ExpiredBy(now time.Time) bool {
	return h.Status == HoldActive && !h.ExpiresAt.After(now)
}
