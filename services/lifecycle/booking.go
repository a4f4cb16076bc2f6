package lifecycle

import (
	"context"
	"errors"
	"time"

	holdRepo "innkeeper/database/repository/hold"
	"innkeeper/models"
	"innkeeper/services/payment"
	"innkeeper/services/policy"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ConvertHoldToBooking converts an active hold into a booking. The folio
// snapshot is validated and its due rules resolved before the hold is
// resolved, so a malformed policy blocks the booked transition without
// consuming the hold.
func (s *DefaultStayService) ConvertHoldToBooking(ctx context.Context, in ConvertInput) (*models.Stay, error) {
	unlock := s.locks.lock(in.StayID)
	defer unlock()

	st, err := s.loadStay(ctx, in.StayID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(st.Status, models.StatusBooked) {
		return nil, NewInvalidTransitionError(string(st.Status), string(models.StatusBooked), "stay is not held")
	}

	h, err := s.Holds.GetByID(ctx, in.HoldID)
	if err != nil {
		if errors.Is(err, holdRepo.ErrNotFound) {
			return nil, NewNotFoundError("hold " + in.HoldID)
		}
		return nil, err
	}
	if h.StayID != st.ID {
		return nil, NewGuardError("hold " + in.HoldID + " does not belong to stay " + st.ID)
	}
	// A hold past its expiry is logically expired even before the sweep or
	// the timed task resolves it; conversion loses to that instant.
	if h.ExpiredBy(s.Clock.Now()) {
		return nil, NewHoldResolvedError(in.HoldID)
	}

	folio := in.Folio
	if err := policy.VerifyPolicyHash(folio.Cancellation); err != nil {
		return nil, err
	}
	if policy.HasMixedTierUnits(folio.Cancellation) {
		s.Logger.Warn("cancellation policy mixes day and hour tiers",
			zap.String("stayID", st.ID), zap.String("venueID", st.Venue.ID))
	}
	bookedOn := s.Clock.Now().Format(dateLayout)
	if err := policy.ResolveSchedule(&folio, bookedOn); err != nil {
		return nil, err
	}
	if folio.Cancellation.PolicyHash == "" {
		hash, err := policy.PolicyHash(folio.Cancellation)
		if err != nil {
			return nil, policy.NewMalformedPolicyError("cancellation policy is not hashable: " + err.Error())
		}
		folio.Cancellation.PolicyHash = hash
	}

	// Point of no return: exactly one of conversion, cancellation and expiry
	// wins the hold.
	if err := s.Holds.Resolve(ctx, in.HoldID, models.HoldConverted); err != nil {
		if errors.Is(err, holdRepo.ErrAlreadyResolved) {
			return nil, NewHoldResolvedError(in.HoldID)
		}
		if errors.Is(err, holdRepo.ErrNotFound) {
			return nil, NewNotFoundError("hold " + in.HoldID)
		}
		return nil, err
	}

	pay := buildPaymentSummary(in.Total, folio.PaymentSchedule)
	set := map[string]interface{}{
		"folio":   folio,
		"payment": pay,
	}
	if len(in.Units) > 0 {
		set["units"] = in.Units
		st.Units = in.Units
	}

	details := map[string]interface{}{"hold_id": in.HoldID}
	if err := s.transition(ctx, st, models.StatusBooked, in.Actor, details, set); err != nil {
		return nil, err
	}
	st.Folio = &folio
	st.Payment = pay
	return st, nil
}

// buildPaymentSummary derives the stay payment view from the resolved
// schedule: the first deposit-like item becomes the deposit record, the first
// balance item the balance record.
func buildPaymentSummary(total models.Money, schedule []models.PaymentScheduleItem) *models.StayPayment {
	pay := &models.StayPayment{Total: total}
	for _, item := range schedule {
		switch item.Type {
		case models.PaymentDeposit, models.PaymentFull:
			if pay.Deposit == nil {
				pay.Deposit = &models.DepositPayment{
					Amount: item.Amount,
					Status: models.PaymentPending,
					Note:   item.Note,
				}
			}
		case models.PaymentBalance:
			if pay.Balance == nil {
				pay.Balance = &models.BalancePayment{
					Amount:  item.Amount,
					Status:  models.PaymentPending,
					DueDate: item.DueDate,
				}
			}
		}
	}
	return pay
}

// CaptureDeposit captures the deposit (or full payment) item and moves the
// stay from booked to confirmed. A collaborator timeout or decline rejects
// the transition and leaves the stay unchanged; the caller may retry with the
// same idempotency semantics.
func (s *DefaultStayService) CaptureDeposit(ctx context.Context, stayID string, actor models.Actor) (*models.Stay, error) {
	unlock := s.locks.lock(stayID)
	defer unlock()

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(st.Status, models.StatusConfirmed) {
		return nil, NewInvalidTransitionError(string(st.Status), string(models.StatusConfirmed), "stay is not booked")
	}
	if st.Folio == nil || st.Payment == nil {
		return nil, NewGuardError("stay has no folio attached")
	}

	idx := findPendingItem(st.Folio.PaymentSchedule, models.PaymentDeposit, models.PaymentFull)
	if idx < 0 {
		return nil, NewGuardError("no pending deposit item on the payment schedule")
	}
	item := &st.Folio.PaymentSchedule[idx]

	result, err := s.Payments.Capture(ctx, payment.CaptureRequest{
		StayID:         st.ID,
		Amount:         item.Amount,
		IdempotencyKey: st.ID + ":deposit",
		Description:    "deposit for stay " + st.ID,
	})
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	item.Status = models.PaymentItemCaptured
	item.CapturedAt = &now
	item.Reference = result.Reference
	if st.Payment.Deposit != nil {
		st.Payment.Deposit.Status = models.PaymentCaptured
		st.Payment.Deposit.CapturedAt = &now
		st.Payment.Deposit.Reference = result.Reference
	}

	set := map[string]interface{}{"folio": st.Folio, "payment": st.Payment}
	details := map[string]interface{}{"payment_reference": result.Reference}
	if err := s.transition(ctx, st, models.StatusConfirmed, actor, details, set); err != nil {
		return nil, err
	}
	return st, nil
}

// CaptureBalance captures the outstanding balance and moves the stay from
// confirmed to balanced. When a single full-payment item already covered the
// total at deposit time, the transition proceeds without another capture.
func (s *DefaultStayService) CaptureBalance(ctx context.Context, stayID string, actor models.Actor) (*models.Stay, error) {
	unlock := s.locks.lock(stayID)
	defer unlock()

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(st.Status, models.StatusBalanced) {
		return nil, NewInvalidTransitionError(string(st.Status), string(models.StatusBalanced), "stay is not confirmed")
	}
	if st.Folio == nil || st.Payment == nil {
		return nil, NewGuardError("stay has no folio attached")
	}

	idx := findPendingItem(st.Folio.PaymentSchedule, models.PaymentBalance)
	if idx < 0 {
		if st.PaidToDate().Amount >= st.Payment.Total.Amount {
			details := map[string]interface{}{"note": "total already captured"}
			if err := s.transition(ctx, st, models.StatusBalanced, actor, details, nil); err != nil {
				return nil, err
			}
			return st, nil
		}
		return nil, NewGuardError("no pending balance item on the payment schedule")
	}
	item := &st.Folio.PaymentSchedule[idx]

	result, err := s.Payments.Capture(ctx, payment.CaptureRequest{
		StayID:         st.ID,
		Amount:         item.Amount,
		IdempotencyKey: st.ID + ":balance",
		Description:    "balance for stay " + st.ID,
	})
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	item.Status = models.PaymentItemCaptured
	item.CapturedAt = &now
	item.Reference = result.Reference
	if st.Payment.Balance != nil {
		st.Payment.Balance.Status = models.PaymentCaptured
		st.Payment.Balance.Reference = result.Reference
	}

	set := map[string]interface{}{"folio": st.Folio, "payment": st.Payment}
	details := map[string]interface{}{"payment_reference": result.Reference}
	if err := s.transition(ctx, st, models.StatusBalanced, actor, details, set); err != nil {
		return nil, err
	}
	return st, nil
}

func findPendingItem(schedule []models.PaymentScheduleItem, types ...models.PaymentType) int {
	for i, item := range schedule {
		if item.Status != models.PaymentItemPending {
			continue
		}
		for _, t := range types {
			if item.Type == t {
				return i
			}
		}
	}
	return -1
}

// checkInAt resolves the stay's check-in instant for policy math.
func checkInAt(st *models.Stay) (time.Time, error) {
	t, err := st.Dates.CheckInAt()
	if err != nil {
		return time.Time{}, policy.NewMalformedPolicyError("stay check-in date is unparseable: " + err.Error())
	}
	return t, nil
}
