package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"innkeeper/models"
)

const dateLayout = "2006-01-02"

// DueKind discriminates the closed set of due-rule variants. The raw schedule
// string is parsed into exactly one of these and resolved once; the resolved
// date is never re-interpreted.
type DueKind int

const (
	DueOnBooking DueKind = iota
	DueOnArrival
	DueOnDeparture
	DueDaysBefore
	DueAbsolute
)

var relativeDuePattern = regexp.MustCompile(`^([0-9]+)_days_before$`)

// DueRule is the parsed form of a PaymentScheduleItem due string.
type DueRule struct {
	Kind DueKind
	Days int    // for DueDaysBefore
	Date string // for DueAbsolute
}

// ParseDueRule parses a due string into its tagged variant.
func ParseDueRule(raw string) (DueRule, error) {
	switch raw {
	case "on_booking":
		return DueRule{Kind: DueOnBooking}, nil
	case "on_arrival":
		return DueRule{Kind: DueOnArrival}, nil
	case "on_departure":
		return DueRule{Kind: DueOnDeparture}, nil
	}
	if m := relativeDuePattern.FindStringSubmatch(raw); m != nil {
		days, err := strconv.Atoi(m[1])
		if err != nil {
			return DueRule{}, NewMalformedPolicyError(fmt.Sprintf("relative due %q: %v", raw, err))
		}
		return DueRule{Kind: DueDaysBefore, Days: days}, nil
	}
	if _, err := time.Parse(dateLayout, raw); err == nil {
		return DueRule{Kind: DueAbsolute, Date: raw}, nil
	}
	return DueRule{}, NewMalformedPolicyError(fmt.Sprintf("unrecognized due rule %q", raw))
}

// Resolve turns the rule into an absolute date. bookedOn is the date the
// folio is attached, checkIn/checkOut come from the stay dates.
func (r DueRule) Resolve(bookedOn, checkIn, checkOut string) (string, error) {
	switch r.Kind {
	case DueOnBooking:
		return bookedOn, nil
	case DueOnArrival:
		return checkIn, nil
	case DueOnDeparture:
		return checkOut, nil
	case DueDaysBefore:
		t, err := time.Parse(dateLayout, checkIn)
		if err != nil {
			return "", NewMalformedPolicyError(fmt.Sprintf("check-in date %q: %v", checkIn, err))
		}
		return t.AddDate(0, 0, -r.Days).Format(dateLayout), nil
	case DueAbsolute:
		return r.Date, nil
	}
	return "", NewMalformedPolicyError(fmt.Sprintf("unknown due kind %d", r.Kind))
}

// ResolveSchedule resolves every schedule item's due rule to an absolute
// due_date in place. Called exactly once, at folio attachment; a failure
// blocks the booked transition.
func ResolveSchedule(folio *models.Folio, bookedOn string) error {
	for i := range folio.PaymentSchedule {
		item := &folio.PaymentSchedule[i]
		rule, err := ParseDueRule(item.Due)
		if err != nil {
			return err
		}
		due, err := rule.Resolve(bookedOn, folio.StayDates.CheckIn, folio.StayDates.CheckOut)
		if err != nil {
			return err
		}
		item.DueDate = due
	}
	return nil
}
