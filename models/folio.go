package models

import "time"

// Folio is the financial contract attached to a stay. It is immutable once
// the stay reaches booked; later policy lookups always use this snapshot.
type Folio struct {
	VenueRef        string              `bson:"venue_ref" json:"venue_ref"`
	StayDates       FolioDates          `bson:"stay_dates" json:"stay_dates"`
	PaymentSchedule []PaymentScheduleItem `bson:"payment_schedule" json:"payment_schedule"`
	Cancellation    CancellationPolicy  `bson:"cancellation_policy" json:"cancellation_policy"`
	NoShow          *NoShowPolicy       `bson:"no_show_policy,omitempty" json:"no_show_policy,omitempty"`
	Modification    *ModificationPolicy `bson:"modification_policy,omitempty" json:"modification_policy,omitempty"`
	Authorized      *AuthorizedCharges  `bson:"authorized_charges,omitempty" json:"authorized_charges,omitempty"`
}

type FolioDates struct {
	CheckIn  string `bson:"check_in" json:"check_in"`
	CheckOut string `bson:"check_out" json:"check_out"`
}

// PaymentType values for schedule items.
type PaymentType string

const (
	PaymentVerification PaymentType = "verification"
	PaymentDeposit      PaymentType = "deposit"
	PaymentBalance      PaymentType = "balance"
	PaymentFull         PaymentType = "full_payment"
	PaymentIncidentals  PaymentType = "incidentals"
)

// PaymentItemStatus values for schedule items.
type PaymentItemStatus string

const (
	PaymentItemPending           PaymentItemStatus = "pending"
	PaymentItemCaptured          PaymentItemStatus = "captured"
	PaymentItemFailed            PaymentItemStatus = "failed"
	PaymentItemRefunded          PaymentItemStatus = "refunded"
	PaymentItemPartiallyRefunded PaymentItemStatus = "partially_refunded"
)

// PaymentScheduleItem is a scheduled payment. Due carries the authored rule
// ("on_booking", "7_days_before", a date); DueDate is the absolute date
// resolved once at folio attachment and immutable thereafter.
type PaymentScheduleItem struct {
	Type       PaymentType       `bson:"type" json:"type"`
	Amount     Money             `bson:"amount" json:"amount"`
	Due        string            `bson:"due" json:"due"`
	DueDate    string            `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Status     PaymentItemStatus `bson:"status" json:"status"`
	CapturedAt *time.Time        `bson:"captured_at,omitempty" json:"captured_at,omitempty"`
	Reference  string            `bson:"reference,omitempty" json:"reference,omitempty"`
	Refundable bool              `bson:"refundable,omitempty" json:"refundable,omitempty"`
	Note       string            `bson:"note,omitempty" json:"note,omitempty"`
}

// CancellationPolicy holds tiered refund terms. PolicyHash is the SHA-256 of
// the policy content, proving the snapshot was not altered after booking.
type CancellationPolicy struct {
	PolicyHash string             `bson:"policy_hash,omitempty" json:"policy_hash,omitempty"`
	Tiers      []CancellationTier `bson:"tiers" json:"tiers"`
}

// CancellationTier is one refund tier. Exactly one of DaysBefore/HoursBefore
// is set; tier lists are authored in descending order of generosity.
type CancellationTier struct {
	DaysBefore    *int `bson:"days_before,omitempty" json:"days_before,omitempty"`
	HoursBefore   *int `bson:"hours_before,omitempty" json:"hours_before,omitempty"`
	RefundPercent int  `bson:"refund_percent" json:"refund_percent"`
}

// NoShowProofMethod values accepted as no-show evidence.
type NoShowProofMethod string

const (
	ProofPMSAttestation   NoShowProofMethod = "pms_attestation"
	ProofKeycardInactive  NoShowProofMethod = "keycard_inactive"
	ProofCheckinSystemLog NoShowProofMethod = "checkin_system_log"
	ProofFrontDesk        NoShowProofMethod = "front_desk_declaration"
)

// NoShowPolicy defines what happens when the guest never arrives.
type NoShowPolicy struct {
	ChargePercent    int               `bson:"charge_percent" json:"charge_percent"`
	DetectAfterHours int               `bson:"detect_after_hours" json:"detect_after_hours"`
	ProofMethod      NoShowProofMethod `bson:"proof_method" json:"proof_method"`
}

// ModificationPolicy defines rules for changing a booking.
type ModificationPolicy struct {
	Allowed                            bool     `bson:"allowed" json:"allowed"`
	Fee                                *Money   `bson:"fee,omitempty" json:"fee,omitempty"`
	Restrictions                       []string `bson:"restrictions,omitempty" json:"restrictions,omitempty"`
	RequiresMandateAmendmentIfIncrease bool     `bson:"requires_mandate_amendment_if_increase,omitempty" json:"requires_mandate_amendment_if_increase,omitempty"`
}

// AuthorizedCharges are the mandate maximums the booking agent pre-authorized.
type AuthorizedCharges struct {
	Charges []AuthorizedCharge `bson:"charges" json:"charges"`
}

type AuthorizedCharge struct {
	Type       string `bson:"type" json:"type"` // PaymentType or "no_show"
	MaxAmount  Money  `bson:"max_amount" json:"max_amount"`
	ValidFrom  string `bson:"valid_from,omitempty" json:"valid_from,omitempty"`
	ValidUntil string `bson:"valid_until,omitempty" json:"valid_until,omitempty"`
}

// MaxAuthorized returns the mandate maximum for a charge type, if any.
func (a *AuthorizedCharges) MaxAuthorized(chargeType string) (Money, bool) {
	if a == nil {
		return Money{}, false
	}
	for _, c := range a.Charges {
		if c.Type == chargeType {
			return c.MaxAmount, true
		}
	}
	return Money{}, false
}
