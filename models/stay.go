package models

import "time"

// StayStatus is a lifecycle state of a stay.
type StayStatus string

const (
	StatusRequest     StayStatus = "request"     // availability query initiated
	StatusAvailable   StayStatus = "available"   // can be booked
	StatusUnavailable StayStatus = "unavailable" // cannot be booked
	StatusHeld        StayStatus = "held"        // temporarily reserved
	StatusBooked      StayStatus = "booked"      // booking created, awaiting payment
	StatusConfirmed   StayStatus = "confirmed"   // deposit received
	StatusBalanced    StayStatus = "balanced"    // full payment received
	StatusArrived     StayStatus = "arrived"     // checked in
	StatusStayed      StayStatus = "stayed"      // checked out
	StatusCompleted   StayStatus = "completed"   // stay closed
	StatusCancelled   StayStatus = "cancelled"   // booking cancelled (terminal branch)
	StatusNoShow      StayStatus = "no_show"     // guest did not arrive (terminal branch)
)

// IsTerminal reports whether s accepts no further status changes.
func (s StayStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Stay is a hospitality booking through its lifecycle.
type Stay struct {
	ID        string     `bson:"id" json:"id"`
	Status    StayStatus `bson:"status" json:"status"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`

	Venue  VenueRef  `bson:"venue" json:"venue"`
	Dates  StayDates `bson:"dates" json:"dates"`
	Guests GuestInfo `bson:"guests" json:"guests"`

	Units   []BookedUnit `bson:"units,omitempty" json:"units,omitempty"`
	Payment *StayPayment `bson:"payment,omitempty" json:"payment,omitempty"`

	// Folio snapshot captured at booking time; refund math always uses this,
	// never a live policy document.
	Folio *Folio `bson:"folio,omitempty" json:"folio,omitempty"`

	Arrival   *ArrivalInfo   `bson:"arrival,omitempty" json:"arrival,omitempty"`
	Departure *DepartureInfo `bson:"departure,omitempty" json:"departure,omitempty"`

	Modification *ModificationRecord `bson:"modification,omitempty" json:"modification,omitempty"`
	Cancellation *CancellationRecord `bson:"cancellation,omitempty" json:"cancellation,omitempty"`
	NoShow       *NoShowRecord       `bson:"no_show,omitempty" json:"no_show,omitempty"`

	// History is the immutable audit trail; Status is a cached projection of
	// the last entry's to_status.
	History []StayHistoryEntry `bson:"history" json:"history"`
}

// CurrentStatus reconstructs the status from the history log.
func (s *Stay) CurrentStatus() StayStatus {
	if len(s.History) == 0 {
		return s.Status
	}
	return s.History[len(s.History)-1].ToStatus
}

// PaidToDate sums every captured payment item on the folio snapshot.
func (s *Stay) PaidToDate() Money {
	currency := ""
	if s.Payment != nil {
		currency = s.Payment.Total.Currency
	}
	total := Money{Currency: currency}
	if s.Folio == nil {
		return total
	}
	for _, item := range s.Folio.PaymentSchedule {
		if item.Status == PaymentItemCaptured {
			total = total.Add(item.Amount)
		}
	}
	return total
}

// VenueRef points at the venue being booked.
type VenueRef struct {
	ID   string `bson:"id" json:"id"`
	Ref  string `bson:"ref" json:"ref"` // URI to the venue's agent document
	Type string `bson:"type,omitempty" json:"type,omitempty"`
}

// StayDates holds the booked date range. Nights is 0 for same-day bookings
// (restaurants), which carry a time and duration instead.
type StayDates struct {
	CheckIn         string `bson:"check_in" json:"check_in"`   // YYYY-MM-DD
	CheckOut        string `bson:"check_out" json:"check_out"` // YYYY-MM-DD
	Nights          int    `bson:"nights" json:"nights"`
	Time            string `bson:"time,omitempty" json:"time,omitempty"` // HH:MM for same-day bookings
	DurationMinutes int    `bson:"duration_minutes,omitempty" json:"duration_minutes,omitempty"`
}

// CheckInAt resolves the check-in instant in UTC. Date-only stays use the
// venue's nominal check-in time passed by the caller at evaluation.
func (d StayDates) CheckInAt() (time.Time, error) {
	if d.Time != "" {
		return time.Parse("2006-01-02 15:04", d.CheckIn+" "+d.Time)
	}
	return time.Parse("2006-01-02", d.CheckIn)
}

// GuestInfo describes the party size and names.
type GuestInfo struct {
	Adults   int         `bson:"adults" json:"adults"`
	Children int         `bson:"children,omitempty" json:"children,omitempty"`
	Names    []GuestName `bson:"names,omitempty" json:"names,omitempty"`
}

type GuestName struct {
	First   string `bson:"first" json:"first"`
	Last    string `bson:"last" json:"last"`
	Primary bool   `bson:"primary,omitempty" json:"primary,omitempty"`
}

// BookedUnit is a unit booked with its rate locked in at booking time.
type BookedUnit struct {
	ID       string    `bson:"id" json:"id"`
	Name     string    `bson:"name" json:"name"`
	Quantity int       `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Rate     *UnitRate `bson:"rate,omitempty" json:"rate,omitempty"`
	Covers   int       `bson:"covers,omitempty" json:"covers,omitempty"` // restaurant tables
}

type UnitRate struct {
	Amount Money  `bson:"amount" json:"amount"`
	Per    string `bson:"per" json:"per"` // "night", "hour", "person", "booking"
}

// PaymentStatus values for deposit/balance sub-records.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// StayPayment is the payment summary on the stay.
type StayPayment struct {
	Total   Money           `bson:"total" json:"total"`
	Deposit *DepositPayment `bson:"deposit,omitempty" json:"deposit,omitempty"`
	Balance *BalancePayment `bson:"balance,omitempty" json:"balance,omitempty"`
}

type DepositPayment struct {
	Amount     Money         `bson:"amount" json:"amount"`
	Status     PaymentStatus `bson:"status" json:"status"`
	CapturedAt *time.Time    `bson:"captured_at,omitempty" json:"captured_at,omitempty"`
	Reference  string        `bson:"reference,omitempty" json:"reference,omitempty"`
	Note       string        `bson:"note,omitempty" json:"note,omitempty"`
}

type BalancePayment struct {
	Amount    Money         `bson:"amount" json:"amount"`
	Status    PaymentStatus `bson:"status" json:"status"`
	DueDate   string        `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Reference string        `bson:"reference,omitempty" json:"reference,omitempty"`
}

type ArrivalInfo struct {
	CheckedInAt  *time.Time `bson:"checked_in_at,omitempty" json:"checked_in_at,omitempty"`
	RoomAssigned string     `bson:"room_assigned,omitempty" json:"room_assigned,omitempty"`
}

type DepartureInfo struct {
	CheckedOutAt *time.Time `bson:"checked_out_at,omitempty" json:"checked_out_at,omitempty"`
}

// StayHistoryEntry is one immutable audit trail record. FromStatus is nil
// only for the first entry of a stay.
type StayHistoryEntry struct {
	Timestamp  time.Time              `bson:"timestamp" json:"timestamp"`
	FromStatus *StayStatus            `bson:"from_status" json:"from_status"`
	ToStatus   StayStatus             `bson:"to_status" json:"to_status"`
	Actor      Actor                  `bson:"actor" json:"actor"`
	Details    map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
}

// FieldChange records a single modified field.
type FieldChange struct {
	Field string      `bson:"field" json:"field"`
	From  interface{} `bson:"from" json:"from"`
	To    interface{} `bson:"to" json:"to"`
}

// ModificationRecord captures a booking modification event.
type ModificationRecord struct {
	ModifiedAt      time.Time     `bson:"modified_at" json:"modified_at"`
	ModifiedBy      Actor         `bson:"modified_by" json:"modified_by"`
	Changes         []FieldChange `bson:"changes" json:"changes"`
	Fee             *Money        `bson:"fee,omitempty" json:"fee,omitempty"`
	PriceDifference *Money        `bson:"price_difference,omitempty" json:"price_difference,omitempty"`
	NewTotal        *Money        `bson:"new_total,omitempty" json:"new_total,omitempty"`
	MandateAmended  bool          `bson:"mandate_amended,omitempty" json:"mandate_amended,omitempty"`
}

// RefundStatus tracks the refund attached to a cancellation.
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundFailed    RefundStatus = "failed"
)

// CancellationRecord captures a cancellation event and its refund outcome.
type CancellationRecord struct {
	CancelledAt       time.Time         `bson:"cancelled_at" json:"cancelled_at"`
	CancelledBy       Actor             `bson:"cancelled_by" json:"cancelled_by"`
	Reason            string            `bson:"reason,omitempty" json:"reason,omitempty"`
	DaysBeforeCheckIn int               `bson:"days_before_check_in" json:"days_before_check_in"`
	TierApplied       *CancellationTier `bson:"tier_applied,omitempty" json:"tier_applied,omitempty"`
	Refund            *Refund           `bson:"refund,omitempty" json:"refund,omitempty"`
	Retained          *Money            `bson:"retained,omitempty" json:"retained,omitempty"`
}

type Refund struct {
	Amount    Money        `bson:"amount" json:"amount"`
	Percent   int          `bson:"percent" json:"percent"`
	Status    RefundStatus `bson:"status" json:"status"`
	Reference string       `bson:"reference,omitempty" json:"reference,omitempty"`
}

// NoShowRecord captures a detected no-show and its charge.
type NoShowRecord struct {
	DetectedAt        time.Time     `bson:"detected_at" json:"detected_at"`
	HoursAfterCheckIn int           `bson:"hours_after_check_in" json:"hours_after_check_in"`
	Proof             NoShowProof   `bson:"proof" json:"proof"`
	Charge            *NoShowCharge `bson:"charge,omitempty" json:"charge,omitempty"`
}

type NoShowProof struct {
	Method        NoShowProofMethod `bson:"method" json:"method"`
	PMS           string            `bson:"pms,omitempty" json:"pms,omitempty"`
	AttestationID string            `bson:"attestation_id,omitempty" json:"attestation_id,omitempty"`
}

type NoShowCharge struct {
	Amount    Money         `bson:"amount" json:"amount"`
	Percent   int           `bson:"percent" json:"percent"`
	Status    PaymentStatus `bson:"status" json:"status"`
	Reference string        `bson:"reference,omitempty" json:"reference,omitempty"`
}
