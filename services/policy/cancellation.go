package policy

import (
	"time"

	"innkeeper/models"
)

// CancellationOutcome is the financial consequence of cancelling at a given
// distance from check-in.
type CancellationOutcome struct {
	DaysBefore    int
	HoursBefore   int
	Tier          *models.CancellationTier
	RefundPercent int
	Refund        models.Money
	Retained      models.Money
}

// EvaluateCancellation selects the applicable refund tier and computes the
// refund/retained split over the paid-to-date amount.
//
// Tier lists are authored in descending order of generosity; the first
// declared tier whose threshold is at or below the actual distance wins, and
// identical thresholds resolve to the earlier tier. The engine never re-sorts
// the list. If no tier qualifies the refund is zero.
func EvaluateCancellation(cp models.CancellationPolicy, paidToDate models.Money, checkInAt, cancelledAt time.Time) CancellationOutcome {
	distance := checkInAt.Sub(cancelledAt)
	hoursBefore := int(distance.Hours())
	daysBefore := int(distance.Hours() / 24)

	out := CancellationOutcome{
		DaysBefore:  daysBefore,
		HoursBefore: hoursBefore,
		Retained:    paidToDate,
		Refund:      models.Money{Currency: paidToDate.Currency},
	}

	for i := range cp.Tiers {
		tier := &cp.Tiers[i]
		if !tierQualifies(tier, daysBefore, hoursBefore) {
			continue
		}
		out.Tier = tier
		out.RefundPercent = tier.RefundPercent
		out.Refund = paidToDate.Percent(tier.RefundPercent)
		out.Retained = paidToDate.Sub(out.Refund)
		break
	}
	return out
}

func tierQualifies(tier *models.CancellationTier, daysBefore, hoursBefore int) bool {
	if tier.HoursBefore != nil {
		return hoursBefore >= *tier.HoursBefore
	}
	if tier.DaysBefore != nil {
		return daysBefore >= *tier.DaysBefore
	}
	return false
}

// HasMixedTierUnits reports whether a tier list mixes day-based and
// hour-based thresholds. Mixed lists are evaluated with each tier's own unit
// but are flagged as a configuration warning at folio attachment.
func HasMixedTierUnits(cp models.CancellationPolicy) bool {
	var days, hours bool
	for _, tier := range cp.Tiers {
		if tier.DaysBefore != nil {
			days = true
		}
		if tier.HoursBefore != nil {
			hours = true
		}
	}
	return days && hours
}
