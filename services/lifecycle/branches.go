package lifecycle

import (
	"context"

	"innkeeper/models"
	"innkeeper/services/payment"
	"innkeeper/services/policy"

	"go.uber.org/zap"
)

// RequestModification applies a modification to a booked, confirmed or
// balanced stay. The change is recorded as a marker history entry on the
// current trunk status; only when the new dates/units force availability
// re-validation does the stay fall back to held.
func (s *DefaultStayService) RequestModification(ctx context.Context, in ModificationInput) (*models.Stay, error) {
	unlock := s.locks.lock(in.StayID)
	defer unlock()

	st, err := s.loadStay(ctx, in.StayID)
	if err != nil {
		return nil, err
	}
	if !modifiableStates[st.Status] {
		return nil, NewInvalidTransitionError(string(st.Status), string(st.Status), "modifications are only accepted between booked and balanced")
	}
	if st.Folio == nil || st.Payment == nil {
		return nil, NewGuardError("stay has no folio attached")
	}

	oldTotal := st.Payment.Total
	newTotal := oldTotal
	if in.NewTotal != nil {
		newTotal = *in.NewTotal
	}

	outcome, err := policy.EvaluateModification(st.Folio, oldTotal, newTotal)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	priceDiff := outcome.PriceDifference
	record := &models.ModificationRecord{
		ModifiedAt:      now,
		ModifiedBy:      in.Actor,
		Changes:         in.Changes,
		Fee:             outcome.Fee,
		PriceDifference: &priceDiff,
		NewTotal:        &outcome.NewTotal,
		MandateAmended:  outcome.MandateAmendmentRequired,
	}

	st.Payment.Total = outcome.NewTotal
	set := map[string]interface{}{
		"modification": record,
		"payment":      st.Payment,
	}
	details := map[string]interface{}{
		"event":            "modified",
		"price_difference": outcome.PriceDifference.Amount,
		"mandate_amended":  outcome.MandateAmendmentRequired,
	}

	if in.RequiresRevalidation {
		details["reason"] = "availability_revalidation"
		if err := s.transition(ctx, st, models.StatusHeld, in.Actor, details, set); err != nil {
			return nil, err
		}
	} else {
		if err := s.appendMarker(ctx, st, in.Actor, details, set); err != nil {
			return nil, err
		}
	}
	st.Modification = record

	s.Events.Publish(models.WebhookEvent{
		EventID:   newEventID(),
		Type:      models.WebhookStayModified,
		StayID:    st.ID,
		VenueID:   st.Venue.ID,
		Timestamp: now,
		Changes:   in.Changes,
		PriceDiff: &priceDiff,
	})
	return st, nil
}

// RequestCancellation cancels a booked, confirmed or balanced stay, computing
// the refund from the folio snapshot captured at booking time. The stay is
// cancelled with the refund pending; the collaborator refund is attempted
// immediately and reconciled on success, or left pending for ConfirmRefund.
func (s *DefaultStayService) RequestCancellation(ctx context.Context, in CancellationInput) (*models.Stay, error) {
	unlock := s.locks.lock(in.StayID)
	defer unlock()

	st, err := s.loadStay(ctx, in.StayID)
	if err != nil {
		return nil, err
	}
	if !cancellableStates[st.Status] {
		return nil, NewInvalidTransitionError(string(st.Status), string(models.StatusCancelled), "cancellation is only accepted between booked and balanced")
	}
	if st.Folio == nil {
		return nil, NewGuardError("stay has no folio attached")
	}

	arriveAt, err := checkInAt(st)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	paid := st.PaidToDate()
	outcome := policy.EvaluateCancellation(st.Folio.Cancellation, paid, arriveAt, now)

	retained := outcome.Retained
	record := &models.CancellationRecord{
		CancelledAt:       now,
		CancelledBy:       in.Actor,
		Reason:            in.Reason,
		DaysBeforeCheckIn: outcome.DaysBefore,
		TierApplied:       outcome.Tier,
		Retained:          &retained,
	}
	if !outcome.Refund.IsZero() {
		record.Refund = &models.Refund{
			Amount:  outcome.Refund,
			Percent: outcome.RefundPercent,
			Status:  models.RefundPending,
		}
	}

	set := map[string]interface{}{"cancellation": record}
	details := map[string]interface{}{
		"reason":               in.Reason,
		"days_before_check_in": outcome.DaysBefore,
		"refund_percent":       outcome.RefundPercent,
	}
	if err := s.transition(ctx, st, models.StatusCancelled, in.Actor, details, set); err != nil {
		return nil, err
	}
	st.Cancellation = record

	if record.Refund != nil {
		s.settleRefund(ctx, st, record)
	}

	s.Events.Publish(models.WebhookEvent{
		EventID:     newEventID(),
		Type:        models.WebhookStayCancelled,
		StayID:      st.ID,
		VenueID:     st.Venue.ID,
		Timestamp:   now,
		CancelledBy: in.Actor,
		Refund:      record.Refund,
	})
	return st, nil
}

// settleRefund attempts the collaborator refund for a fresh cancellation.
// A failure leaves the refund pending; the caller retries via ConfirmRefund.
func (s *DefaultStayService) settleRefund(ctx context.Context, st *models.Stay, record *models.CancellationRecord) {
	reference := capturedReference(st)
	if reference == "" {
		s.Logger.Warn("refund due but no captured payment reference", zap.String("stayID", st.ID))
		return
	}

	result, err := s.Payments.Refund(ctx, payment.RefundRequest{
		StayID:         st.ID,
		Reference:      reference,
		Amount:         record.Refund.Amount,
		IdempotencyKey: st.ID + ":refund",
	})
	if err != nil {
		s.Logger.Warn("refund attempt failed, left pending",
			zap.String("stayID", st.ID), zap.Error(err))
		return
	}

	record.Refund.Status = models.RefundProcessed
	record.Refund.Reference = result.Reference
	set := map[string]interface{}{"cancellation": record}
	details := map[string]interface{}{
		"event":            "refund_processed",
		"refund_reference": result.Reference,
	}
	if err := s.appendMarker(ctx, st, models.ActorSystem, details, set); err != nil {
		s.Logger.Error("failed to record processed refund",
			zap.String("stayID", st.ID), zap.Error(err))
	}
}

// capturedReference returns the collaborator reference of the first captured
// schedule item, which anchors refunds.
func capturedReference(st *models.Stay) string {
	if st.Folio == nil {
		return ""
	}
	for _, item := range st.Folio.PaymentSchedule {
		if item.Status == models.PaymentItemCaptured && item.Reference != "" {
			return item.Reference
		}
	}
	return ""
}

// ReportNoShow marks a stay as a no-show. Eligibility requires the detection
// window to have elapsed with no arrival, and the caller to supply a proof
// record; the engine requires the proof but does not verify it.
func (s *DefaultStayService) ReportNoShow(ctx context.Context, in NoShowInput) (*models.Stay, error) {
	unlock := s.locks.lock(in.StayID)
	defer unlock()

	st, err := s.loadStay(ctx, in.StayID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(st.Status, models.StatusNoShow) {
		return nil, NewInvalidTransitionError(string(st.Status), string(models.StatusNoShow), "no-show is only reportable while awaiting arrival")
	}
	if st.Arrival != nil && st.Arrival.CheckedInAt != nil {
		return nil, NewGuardError("guest already checked in")
	}
	if st.Folio == nil || st.Payment == nil {
		return nil, NewGuardError("stay has no folio attached")
	}
	if in.Proof.Method == "" {
		return nil, NewGuardError("a no-show proof method is required")
	}

	arriveAt, err := checkInAt(st)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	outcome, err := policy.EvaluateNoShow(st.Folio.NoShow, st.Payment.Total, arriveAt, now)
	if err != nil {
		return nil, err
	}

	record := &models.NoShowRecord{
		DetectedAt:        now,
		HoursAfterCheckIn: outcome.HoursAfterCheckIn,
		Proof:             in.Proof,
	}

	if outcome.Charge.Amount > 0 {
		result, err := s.Payments.Capture(ctx, payment.CaptureRequest{
			StayID:         st.ID,
			Amount:         outcome.Charge,
			IdempotencyKey: st.ID + ":no_show",
			Description:    "no-show charge for stay " + st.ID,
		})
		if err != nil {
			// Collaborator unavailable: reject the transition, caller retries.
			return nil, err
		}
		record.Charge = &models.NoShowCharge{
			Amount:    outcome.Charge,
			Percent:   outcome.ChargePercent,
			Status:    models.PaymentCaptured,
			Reference: result.Reference,
		}
	}

	set := map[string]interface{}{"no_show": record}
	details := map[string]interface{}{
		"hours_after_check_in": outcome.HoursAfterCheckIn,
		"proof_method":         string(in.Proof.Method),
	}
	if err := s.transition(ctx, st, models.StatusNoShow, in.Actor, details, set); err != nil {
		return nil, err
	}
	st.NoShow = record

	s.Events.Publish(models.WebhookEvent{
		EventID:    newEventID(),
		Type:       models.WebhookStayNoShow,
		StayID:     st.ID,
		VenueID:    st.Venue.ID,
		Timestamp:  now,
		HoursAfter: outcome.HoursAfterCheckIn,
		Charge:     record.Charge,
	})
	return st, nil
}

// ConfirmRefund reconciles a delayed refund outcome onto a terminal stay.
// The status never changes; only the cancellation record and history move.
func (s *DefaultStayService) ConfirmRefund(ctx context.Context, stayID string, processed bool, actor models.Actor) (*models.Stay, error) {
	unlock := s.locks.lock(stayID)
	defer unlock()

	st, err := s.loadStay(ctx, stayID)
	if err != nil {
		return nil, err
	}
	if st.Status != models.StatusCancelled {
		return nil, NewGuardError("refund reconciliation applies only to cancelled stays")
	}
	if st.Cancellation == nil || st.Cancellation.Refund == nil {
		return nil, NewGuardError("stay has no pending refund")
	}
	if st.Cancellation.Refund.Status != models.RefundPending {
		return nil, NewGuardError("refund is already settled")
	}

	if processed {
		st.Cancellation.Refund.Status = models.RefundProcessed
	} else {
		st.Cancellation.Refund.Status = models.RefundFailed
	}

	set := map[string]interface{}{"cancellation": st.Cancellation}
	details := map[string]interface{}{
		"event":         "refund_reconciled",
		"refund_status": string(st.Cancellation.Refund.Status),
	}
	if err := s.appendMarker(ctx, st, actor, details, set); err != nil {
		return nil, err
	}
	return st, nil
}
