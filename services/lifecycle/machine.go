package lifecycle

import "innkeeper/models"

// transitions is the legal transition table. held→available and
// held→cancelled exist only for the hold expiry/cancellation fallback, and
// booked/confirmed/balanced→held only for modifications that force
// re-validation of availability; both are enforced by the commands that use
// them, not offered to arbitrary callers.
//
// modified is not a resting state: a modification appends a marker history
// entry on the current trunk status and does not appear here.
var transitions = map[models.StayStatus][]models.StayStatus{
	models.StatusRequest:   {models.StatusAvailable, models.StatusUnavailable},
	models.StatusAvailable: {models.StatusHeld},
	models.StatusHeld:      {models.StatusBooked, models.StatusAvailable, models.StatusCancelled},
	models.StatusBooked:    {models.StatusConfirmed, models.StatusCancelled, models.StatusHeld},
	models.StatusConfirmed: {models.StatusBalanced, models.StatusCancelled, models.StatusNoShow, models.StatusHeld},
	models.StatusBalanced:  {models.StatusArrived, models.StatusCancelled, models.StatusNoShow, models.StatusHeld},
	models.StatusArrived:   {models.StatusStayed},
	models.StatusStayed:    {models.StatusCompleted},

	// Terminal and dead-end states accept nothing.
	models.StatusUnavailable: {},
	models.StatusCompleted:   {},
	models.StatusCancelled:   {},
	models.StatusNoShow:      {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to models.StayStatus) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// LegalTargets returns the statuses reachable from the given one.
func LegalTargets(from models.StayStatus) []models.StayStatus {
	return transitions[from]
}

// cancellableStates are the trunk states a guest-driven cancellation may
// leave from. held cancellations go through the hold manager instead.
var cancellableStates = map[models.StayStatus]bool{
	models.StatusBooked:    true,
	models.StatusConfirmed: true,
	models.StatusBalanced:  true,
}

// modifiableStates are the trunk states that accept a modification marker.
var modifiableStates = cancellableStates
