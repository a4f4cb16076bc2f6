package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"innkeeper/models"
	"innkeeper/services/payment"
	"innkeeper/services/policy"

	"go.uber.org/zap"
)

type testEnv struct {
	repo     *fakeStayRepo
	holds    *fakeHoldRepo
	payments *fakePayments
	sink     *fakeSink
	clock    *testClock
	svc      *DefaultStayService
}

func newTestEnv(now time.Time) *testEnv {
	env := &testEnv{
		repo:     newFakeStayRepo(),
		holds:    newFakeHoldRepo(),
		payments: &fakePayments{},
		sink:     &fakeSink{},
		clock:    newTestClock(now),
	}
	env.svc = NewStayService(env.repo, env.holds, env.payments, env.sink, nil, 0, env.clock, zap.NewNop())
	return env
}

func money(amount int64) models.Money {
	return models.Money{Amount: amount, Currency: "GBP"}
}

func pint(v int) *int { return &v }

func testFolio(schedule ...models.PaymentScheduleItem) models.Folio {
	return models.Folio{
		VenueRef:        "venue_1",
		StayDates:       models.FolioDates{CheckIn: "2024-03-20", CheckOut: "2024-03-23"},
		PaymentSchedule: schedule,
		Cancellation: models.CancellationPolicy{
			Tiers: []models.CancellationTier{
				{DaysBefore: pint(7), RefundPercent: 100},
				{DaysBefore: pint(3), RefundPercent: 50},
				{DaysBefore: pint(0), RefundPercent: 0},
			},
		},
		NoShow:       &models.NoShowPolicy{ChargePercent: 100, DetectAfterHours: 6, ProofMethod: models.ProofPMSAttestation},
		Modification: &models.ModificationPolicy{Allowed: true},
	}
}

func splitSchedule() []models.PaymentScheduleItem {
	return []models.PaymentScheduleItem{
		{Type: models.PaymentDeposit, Amount: money(300), Due: "on_booking", Status: models.PaymentItemPending},
		{Type: models.PaymentBalance, Amount: money(700), Due: "7_days_before", Status: models.PaymentItemPending},
	}
}

func fullSchedule(amount int64) []models.PaymentScheduleItem {
	return []models.PaymentScheduleItem{
		{Type: models.PaymentFull, Amount: money(amount), Due: "on_booking", Status: models.PaymentItemPending},
	}
}

// createHeldStay drives a fresh stay to held with an active hold attached.
func createHeldStay(t *testing.T, env *testEnv, checkInTime string) (*models.Stay, *models.Hold) {
	t.Helper()
	ctx := context.Background()

	st, err := env.svc.CreateStayRequest(ctx, CreateStayInput{
		Venue:  models.VenueRef{ID: "venue_1", Ref: "https://venue.example/agent.json"},
		Dates:  models.StayDates{CheckIn: "2024-03-20", CheckOut: "2024-03-23", Nights: 3, Time: checkInTime},
		Guests: models.GuestInfo{Adults: 2},
		Actor:  models.ActorUser,
	})
	if err != nil {
		t.Fatalf("CreateStayRequest: %v", err)
	}

	if _, err := env.svc.MarkAvailability(ctx, st.ID, true, models.ActorVenue); err != nil {
		t.Fatalf("MarkAvailability: %v", err)
	}

	h := &models.Hold{
		ID:              "hold_1",
		StayID:          st.ID,
		Status:          models.HoldActive,
		ExpiresAt:       env.clock.Now().Add(15 * time.Minute),
		DurationMinutes: 15,
		OnExpiry:        models.ExpiryRelease,
		CreatedAt:       env.clock.Now(),
	}
	if err := env.holds.Create(ctx, h); err != nil {
		t.Fatalf("create hold: %v", err)
	}
	st, err = env.svc.AttachHold(ctx, st.ID, h, models.ActorUser)
	if err != nil {
		t.Fatalf("AttachHold: %v", err)
	}
	return st, h
}

// bookAndConfirm drives the stay to confirmed via conversion and deposit
// capture, returning the latest projection.
func bookAndConfirm(t *testing.T, env *testEnv, total int64, schedule []models.PaymentScheduleItem, checkInTime string) *models.Stay {
	t.Helper()
	ctx := context.Background()

	st, h := createHeldStay(t, env, checkInTime)
	st, err := env.svc.ConvertHoldToBooking(ctx, ConvertInput{
		StayID: st.ID,
		HoldID: h.ID,
		Folio:  testFolio(schedule...),
		Total:  money(total),
		Actor:  models.ActorUser,
	})
	if err != nil {
		t.Fatalf("ConvertHoldToBooking: %v", err)
	}
	st, err = env.svc.CaptureDeposit(ctx, st.ID, models.ActorSystem)
	if err != nil {
		t.Fatalf("CaptureDeposit: %v", err)
	}
	return st
}

func TestFullLifecycleHappyPath(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st := bookAndConfirm(t, env, 1000, splitSchedule(), "")

	// Resolved due rules on the snapshot: deposit on booking day, balance a
	// week ahead of check-in.
	if got := st.Folio.PaymentSchedule[0].DueDate; got != "2024-03-10" {
		t.Errorf("deposit due_date = %q, want 2024-03-10", got)
	}
	if got := st.Folio.PaymentSchedule[1].DueDate; got != "2024-03-13" {
		t.Errorf("balance due_date = %q, want 2024-03-13", got)
	}

	st, err := env.svc.CaptureBalance(ctx, st.ID, models.ActorSystem)
	if err != nil {
		t.Fatalf("CaptureBalance: %v", err)
	}
	if st.Status != models.StatusBalanced {
		t.Fatalf("status = %s, want balanced", st.Status)
	}
	if paid := st.PaidToDate(); paid.Amount != 1000 {
		t.Errorf("PaidToDate = %d, want 1000", paid.Amount)
	}

	env.clock.Set(time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC))
	if st, err = env.svc.CheckIn(ctx, st.ID, "room 204", models.ActorVenue); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if st.Arrival == nil || st.Arrival.RoomAssigned != "room 204" {
		t.Errorf("arrival not recorded: %+v", st.Arrival)
	}

	env.clock.Set(time.Date(2024, 3, 23, 11, 0, 0, 0, time.UTC))
	if st, err = env.svc.CheckOut(ctx, st.ID, models.ActorVenue); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if st, err = env.svc.Complete(ctx, st.ID, models.ActorSystem); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if st.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", st.Status)
	}

	// The hold was consumed by the conversion.
	h, err := env.holds.GetByID(ctx, "hold_1")
	if err != nil {
		t.Fatalf("get hold: %v", err)
	}
	if h.Status != models.HoldConverted {
		t.Errorf("hold status = %s, want converted", h.Status)
	}

	assertHistoryConsistent(t, st)

	wantEvents := []models.WebhookType{
		models.WebhookStayCreated,
		models.WebhookStayStatusChanged, // -> available
		models.WebhookStayStatusChanged, // -> held
		models.WebhookHoldCreated,
		models.WebhookStayStatusChanged, // -> booked
		models.WebhookStayStatusChanged, // -> confirmed
		models.WebhookStayStatusChanged, // -> balanced
		models.WebhookStayStatusChanged, // -> arrived
		models.WebhookStayStatusChanged, // -> stayed
		models.WebhookStayStatusChanged, // -> completed
	}
	got := env.sink.types()
	if len(got) != len(wantEvents) {
		t.Fatalf("published %d events %v, want %d", len(got), got, len(wantEvents))
	}
	for i := range wantEvents {
		if got[i] != wantEvents[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], wantEvents[i])
		}
	}
}

// assertHistoryConsistent checks the audit-trail invariants: the cached
// status equals the last entry's to_status, only the first entry has a nil
// from_status, and every entry's from_status links to its predecessor.
func assertHistoryConsistent(t *testing.T, st *models.Stay) {
	t.Helper()
	if len(st.History) == 0 {
		t.Fatal("stay has no history")
	}
	if st.Status != st.CurrentStatus() {
		t.Errorf("status %s does not match history projection %s", st.Status, st.CurrentStatus())
	}
	if st.History[0].FromStatus != nil {
		t.Errorf("first entry has from_status %v, want nil", *st.History[0].FromStatus)
	}
	for i := 1; i < len(st.History); i++ {
		if st.History[i].FromStatus == nil {
			t.Errorf("entry %d has nil from_status", i)
			continue
		}
		if *st.History[i].FromStatus != st.History[i-1].ToStatus {
			t.Errorf("entry %d from_status = %s, breaks chain from %s",
				i, *st.History[i].FromStatus, st.History[i-1].ToStatus)
		}
	}
}

func TestMarkUnavailableIsDeadEnd(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st, err := env.svc.CreateStayRequest(ctx, CreateStayInput{
		Venue: models.VenueRef{ID: "venue_1"},
		Dates: models.StayDates{CheckIn: "2024-03-20", CheckOut: "2024-03-23"},
		Actor: models.ActorUser,
	})
	if err != nil {
		t.Fatalf("CreateStayRequest: %v", err)
	}
	if st, err = env.svc.MarkAvailability(ctx, st.ID, false, models.ActorVenue); err != nil {
		t.Fatalf("MarkAvailability: %v", err)
	}
	if st.Status != models.StatusUnavailable {
		t.Fatalf("status = %s, want unavailable", st.Status)
	}

	_, err = env.svc.MarkAvailability(ctx, st.ID, true, models.ActorVenue)
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) || lcErr.Code != CodeInvalidTransition {
		t.Errorf("error = %v, want code %s", err, CodeInvalidTransition)
	}
}

func TestConvertHoldRejectsMalformedFolio(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	st, h := createHeldStay(t, env, "")

	folio := testFolio(models.PaymentScheduleItem{
		Type: models.PaymentDeposit, Amount: money(300), Due: "whenever", Status: models.PaymentItemPending,
	})
	_, err := env.svc.ConvertHoldToBooking(ctx, ConvertInput{
		StayID: st.ID, HoldID: h.ID, Folio: folio, Total: money(1000), Actor: models.ActorUser,
	})
	var polErr *policy.PolicyError
	if !errors.As(err, &polErr) || polErr.Code != policy.CodeMalformedPolicy {
		t.Fatalf("error = %v, want code %s", err, policy.CodeMalformedPolicy)
	}

	// The malformed folio must not consume the hold or move the stay.
	held, _ := env.holds.GetByID(ctx, h.ID)
	if held.Status != models.HoldActive {
		t.Errorf("hold status = %s, want active", held.Status)
	}
	cur, _ := env.svc.GetStay(ctx, st.ID)
	if cur.Status != models.StatusHeld {
		t.Errorf("stay status = %s, want held", cur.Status)
	}
}

func TestConvertHoldRejectsTamperedPolicyHash(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	st, h := createHeldStay(t, env, "")

	folio := testFolio(splitSchedule()...)
	folio.Cancellation.PolicyHash = "deadbeef"
	_, err := env.svc.ConvertHoldToBooking(ctx, ConvertInput{
		StayID: st.ID, HoldID: h.ID, Folio: folio, Total: money(1000), Actor: models.ActorUser,
	})
	var polErr *policy.PolicyError
	if !errors.As(err, &polErr) || polErr.Code != policy.CodeMalformedPolicy {
		t.Errorf("error = %v, want code %s", err, policy.CodeMalformedPolicy)
	}
}

func TestConvertHoldLosesToResolvedHold(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	st, h := createHeldStay(t, env, "")

	// The expiry sweep got there first.
	if err := env.holds.Resolve(ctx, h.ID, models.HoldExpired); err != nil {
		t.Fatalf("resolve hold: %v", err)
	}

	_, err := env.svc.ConvertHoldToBooking(ctx, ConvertInput{
		StayID: st.ID, HoldID: h.ID, Folio: testFolio(splitSchedule()...), Total: money(1000), Actor: models.ActorUser,
	})
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) || lcErr.Code != CodeHoldAlreadyResolved {
		t.Errorf("error = %v, want code %s", err, CodeHoldAlreadyResolved)
	}
}

func TestConvertHoldLosesToLogicalExpiry(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	st, h := createHeldStay(t, env, "")

	// Past expiry but not yet swept: the hold is still active in the store.
	env.clock.Advance(16 * time.Minute)

	_, err := env.svc.ConvertHoldToBooking(ctx, ConvertInput{
		StayID: st.ID, HoldID: h.ID, Folio: testFolio(splitSchedule()...), Total: money(1000), Actor: models.ActorUser,
	})
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) || lcErr.Code != CodeHoldAlreadyResolved {
		t.Fatalf("error = %v, want code %s", err, CodeHoldAlreadyResolved)
	}

	cur, err := env.holds.GetByID(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if cur.Status != models.HoldActive {
		t.Errorf("hold status = %s, want active (resolution belongs to the sweep)", cur.Status)
	}
	got, err := env.svc.GetStay(ctx, st.ID)
	if err != nil {
		t.Fatalf("GetStay: %v", err)
	}
	if got.Status != models.StatusHeld {
		t.Errorf("stay status = %s, want held", got.Status)
	}
}

func TestConvertHoldRejectsForeignHold(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	st, h := createHeldStay(t, env, "")

	other := &models.Hold{
		ID:              "hold_2",
		StayID:          "stay_other",
		Status:          models.HoldActive,
		ExpiresAt:       env.clock.Now().Add(time.Hour),
		DurationMinutes: 60,
		OnExpiry:        models.ExpiryRelease,
		CreatedAt:       env.clock.Now(),
	}
	if err := env.holds.Create(ctx, other); err != nil {
		t.Fatalf("create hold: %v", err)
	}

	_, err := env.svc.ConvertHoldToBooking(ctx, ConvertInput{
		StayID: st.ID, HoldID: other.ID, Folio: testFolio(splitSchedule()...), Total: money(1000), Actor: models.ActorUser,
	})
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) || lcErr.Code != CodeGuardNotSatisfied {
		t.Fatalf("error = %v, want code %s", err, CodeGuardNotSatisfied)
	}

	for _, id := range []string{h.ID, other.ID} {
		cur, err := env.holds.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID(%s): %v", id, err)
		}
		if cur.Status != models.HoldActive {
			t.Errorf("hold %s status = %s, want active", id, cur.Status)
		}
	}
	got, err := env.svc.GetStay(ctx, st.ID)
	if err != nil {
		t.Fatalf("GetStay: %v", err)
	}
	if got.Status != models.StatusHeld {
		t.Errorf("stay status = %s, want held", got.Status)
	}
}

func TestConcurrentExpiryAndConversionHaveOneWinner(t *testing.T) {
	for i := 0; i < 20; i++ {
		env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
		ctx := context.Background()
		st, h := createHeldStay(t, env, "")

		var (
			wg        sync.WaitGroup
			convErr   error
			expiryWon bool
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, convErr = env.svc.ConvertHoldToBooking(ctx, ConvertInput{
				StayID: st.ID, HoldID: h.ID, Folio: testFolio(splitSchedule()...), Total: money(1000), Actor: models.ActorUser,
			})
		}()
		go func() {
			defer wg.Done()
			// Mirrors the expiry worker: win the hold first, then route the
			// stay through its on-expiry action.
			if env.holds.Resolve(ctx, h.ID, models.HoldExpired) != nil {
				return
			}
			expiryWon = true
			if _, err := env.svc.ReleaseHold(ctx, st.ID, h.ID, models.ExpiryRelease, true, models.ActorSystem); err != nil {
				t.Errorf("iteration %d: ReleaseHold after winning expiry: %v", i, err)
			}
		}()
		wg.Wait()

		got, err := env.svc.GetStay(ctx, st.ID)
		if err != nil {
			t.Fatalf("GetStay: %v", err)
		}
		cur, err := env.holds.GetByID(ctx, h.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}

		if expiryWon {
			if convErr == nil {
				t.Fatalf("iteration %d: both expiry and conversion won hold %s", i, h.ID)
			}
			var lcErr *LifecycleError
			if !errors.As(convErr, &lcErr) ||
				(lcErr.Code != CodeHoldAlreadyResolved && lcErr.Code != CodeInvalidTransition) {
				t.Errorf("iteration %d: conversion loser error = %v", i, convErr)
			}
			if got.Status != models.StatusAvailable || cur.Status != models.HoldExpired {
				t.Errorf("iteration %d: stay=%s hold=%s, want available/expired", i, got.Status, cur.Status)
			}
		} else {
			if convErr != nil {
				t.Fatalf("iteration %d: no winner: conversion failed with %v", i, convErr)
			}
			if got.Status != models.StatusBooked || cur.Status != models.HoldConverted {
				t.Errorf("iteration %d: stay=%s hold=%s, want booked/converted", i, got.Status, cur.Status)
			}
		}
	}
}

func TestConvertHoldStampsPolicyHash(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	st, h := createHeldStay(t, env, "")

	st, err := env.svc.ConvertHoldToBooking(ctx, ConvertInput{
		StayID: st.ID, HoldID: h.ID, Folio: testFolio(splitSchedule()...), Total: money(1000), Actor: models.ActorUser,
	})
	if err != nil {
		t.Fatalf("ConvertHoldToBooking: %v", err)
	}
	if st.Folio.Cancellation.PolicyHash == "" {
		t.Error("conversion did not stamp the cancellation policy hash")
	}
	if err := policy.VerifyPolicyHash(st.Folio.Cancellation); err != nil {
		t.Errorf("stamped hash does not verify: %v", err)
	}
}

func TestCaptureDepositCollaboratorFailureLeavesStayBooked(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	st, h := createHeldStay(t, env, "")
	st, err := env.svc.ConvertHoldToBooking(ctx, ConvertInput{
		StayID: st.ID, HoldID: h.ID, Folio: testFolio(splitSchedule()...), Total: money(1000), Actor: models.ActorUser,
	})
	if err != nil {
		t.Fatalf("ConvertHoldToBooking: %v", err)
	}
	historyLen := len(st.History)

	env.payments.captureErr = payment.NewTimeoutError("collaborator did not answer")
	_, err = env.svc.CaptureDeposit(ctx, st.ID, models.ActorSystem)
	var colErr *payment.CollaboratorError
	if !errors.As(err, &colErr) || colErr.Code != payment.CodeCollaboratorTimeout {
		t.Fatalf("error = %v, want code %s", err, payment.CodeCollaboratorTimeout)
	}

	cur, _ := env.svc.GetStay(ctx, st.ID)
	if cur.Status != models.StatusBooked {
		t.Errorf("status = %s, want booked after failed capture", cur.Status)
	}
	if len(cur.History) != historyLen {
		t.Errorf("history grew to %d on a rejected capture, want %d", len(cur.History), historyLen)
	}

	// A retry after recovery proceeds with the same idempotency key.
	env.payments.captureErr = nil
	cur, err = env.svc.CaptureDeposit(ctx, st.ID, models.ActorSystem)
	if err != nil {
		t.Fatalf("retry CaptureDeposit: %v", err)
	}
	if cur.Status != models.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", cur.Status)
	}
	if key := env.payments.captures[0].IdempotencyKey; key != st.ID+":deposit" {
		t.Errorf("idempotency key = %q, want %q", key, st.ID+":deposit")
	}
}

func TestCaptureBalanceSkipsWhenFullyPaid(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st := bookAndConfirm(t, env, 1000, fullSchedule(1000), "")
	captures := len(env.payments.captures)

	st, err := env.svc.CaptureBalance(ctx, st.ID, models.ActorSystem)
	if err != nil {
		t.Fatalf("CaptureBalance: %v", err)
	}
	if st.Status != models.StatusBalanced {
		t.Errorf("status = %s, want balanced", st.Status)
	}
	if len(env.payments.captures) != captures {
		t.Errorf("balance step captured again despite full payment upfront")
	}
}

func TestCancellationComputesRefundFromSnapshot(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st := bookAndConfirm(t, env, 1000, fullSchedule(1000), "")

	// Five days before check-in: the 3-day tier applies at 50%.
	env.clock.Set(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	st, err := env.svc.RequestCancellation(ctx, CancellationInput{
		StayID: st.ID, Reason: "change of plans", Actor: models.ActorUser,
	})
	if err != nil {
		t.Fatalf("RequestCancellation: %v", err)
	}

	if st.Status != models.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", st.Status)
	}
	rec := st.Cancellation
	if rec == nil || rec.Refund == nil {
		t.Fatalf("cancellation record incomplete: %+v", rec)
	}
	if rec.Refund.Amount.Amount != 500 {
		t.Errorf("refund = %d, want 500", rec.Refund.Amount.Amount)
	}
	if rec.Retained.Amount != 500 {
		t.Errorf("retained = %d, want 500", rec.Retained.Amount)
	}
	if rec.DaysBeforeCheckIn != 5 {
		t.Errorf("days before check-in = %d, want 5", rec.DaysBeforeCheckIn)
	}
	if rec.Refund.Status != models.RefundProcessed {
		t.Errorf("refund status = %s, want processed", rec.Refund.Status)
	}
	if len(env.payments.refunds) != 1 {
		t.Fatalf("refund calls = %d, want 1", len(env.payments.refunds))
	}
	if got := env.payments.refunds[0].Amount.Amount; got != 500 {
		t.Errorf("refund request amount = %d, want 500", got)
	}

	types := env.sink.types()
	if types[len(types)-1] != models.WebhookStayCancelled {
		t.Errorf("last event = %s, want %s", types[len(types)-1], models.WebhookStayCancelled)
	}
}

func TestCancellationRefundFailureLeavesPendingUntilConfirmed(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st := bookAndConfirm(t, env, 1000, fullSchedule(1000), "")
	env.payments.refundErr = payment.NewFailureError("collaborator declined")

	env.clock.Set(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	st, err := env.svc.RequestCancellation(ctx, CancellationInput{StayID: st.ID, Actor: models.ActorUser})
	if err != nil {
		t.Fatalf("RequestCancellation: %v", err)
	}
	if st.Status != models.StatusCancelled {
		t.Fatalf("status = %s, want cancelled even when the refund fails", st.Status)
	}
	if st.Cancellation.Refund.Status != models.RefundPending {
		t.Fatalf("refund status = %s, want pending", st.Cancellation.Refund.Status)
	}

	// Terminal reconciliation: the status never changes again, only the
	// record and history move.
	st, err = env.svc.ConfirmRefund(ctx, st.ID, true, models.ActorSystem)
	if err != nil {
		t.Fatalf("ConfirmRefund: %v", err)
	}
	if st.Status != models.StatusCancelled {
		t.Errorf("status = %s, want cancelled", st.Status)
	}
	if st.Cancellation.Refund.Status != models.RefundProcessed {
		t.Errorf("refund status = %s, want processed", st.Cancellation.Refund.Status)
	}
	assertHistoryConsistent(t, st)

	// A second reconciliation is refused.
	_, err = env.svc.ConfirmRefund(ctx, st.ID, true, models.ActorSystem)
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) || lcErr.Code != CodeGuardNotSatisfied {
		t.Errorf("error = %v, want code %s", err, CodeGuardNotSatisfied)
	}
}

func TestReportNoShow(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st := bookAndConfirm(t, env, 2000, fullSchedule(2000), "15:00")
	proof := models.NoShowProof{Method: models.ProofPMSAttestation, PMS: "opera", AttestationID: "att_1"}

	t.Run("rejected inside the detection window", func(t *testing.T) {
		env.clock.Set(time.Date(2024, 3, 20, 18, 0, 0, 0, time.UTC))
		_, err := env.svc.ReportNoShow(ctx, NoShowInput{StayID: st.ID, Proof: proof, Actor: models.ActorVenue})
		var polErr *policy.PolicyError
		if !errors.As(err, &polErr) || polErr.Code != policy.CodeGuardNotSatisfied {
			t.Fatalf("error = %v, want code %s", err, policy.CodeGuardNotSatisfied)
		}
	})

	t.Run("rejected without proof", func(t *testing.T) {
		env.clock.Set(time.Date(2024, 3, 20, 22, 0, 0, 0, time.UTC))
		_, err := env.svc.ReportNoShow(ctx, NoShowInput{StayID: st.ID, Actor: models.ActorVenue})
		var lcErr *LifecycleError
		if !errors.As(err, &lcErr) || lcErr.Code != CodeGuardNotSatisfied {
			t.Fatalf("error = %v, want code %s", err, CodeGuardNotSatisfied)
		}
	})

	t.Run("charged after the window with proof", func(t *testing.T) {
		env.clock.Set(time.Date(2024, 3, 20, 22, 0, 0, 0, time.UTC))
		got, err := env.svc.ReportNoShow(ctx, NoShowInput{StayID: st.ID, Proof: proof, Actor: models.ActorVenue})
		if err != nil {
			t.Fatalf("ReportNoShow: %v", err)
		}
		if got.Status != models.StatusNoShow {
			t.Fatalf("status = %s, want no_show", got.Status)
		}
		rec := got.NoShow
		if rec == nil || rec.Charge == nil {
			t.Fatalf("no-show record incomplete: %+v", rec)
		}
		if rec.Charge.Amount.Amount != 2000 {
			t.Errorf("charge = %d, want 2000", rec.Charge.Amount.Amount)
		}
		if rec.HoursAfterCheckIn != 7 {
			t.Errorf("hours after check-in = %d, want 7", rec.HoursAfterCheckIn)
		}
		if rec.Proof.Method != models.ProofPMSAttestation {
			t.Errorf("proof method = %s, want pms_attestation", rec.Proof.Method)
		}
		assertHistoryConsistent(t, got)
	})
}

func TestNoShowRejectedAfterArrival(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st := bookAndConfirm(t, env, 1000, fullSchedule(1000), "15:00")
	if _, err := env.svc.CaptureBalance(ctx, st.ID, models.ActorSystem); err != nil {
		t.Fatalf("CaptureBalance: %v", err)
	}
	env.clock.Set(time.Date(2024, 3, 20, 16, 0, 0, 0, time.UTC))
	if _, err := env.svc.CheckIn(ctx, st.ID, "", models.ActorVenue); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	env.clock.Set(time.Date(2024, 3, 20, 23, 0, 0, 0, time.UTC))
	_, err := env.svc.ReportNoShow(ctx, NoShowInput{
		StayID: st.ID,
		Proof:  models.NoShowProof{Method: models.ProofFrontDesk},
		Actor:  models.ActorVenue,
	})
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) || lcErr.Code != CodeInvalidTransition {
		t.Errorf("error = %v, want code %s", err, CodeInvalidTransition)
	}
}

func TestModificationAppendsMarkerWithoutStatusChange(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st := bookAndConfirm(t, env, 1000, fullSchedule(1000), "")
	historyLen := len(st.History)
	newTotal := money(1200)

	st, err := env.svc.RequestModification(ctx, ModificationInput{
		StayID:   st.ID,
		Changes:  []models.FieldChange{{Field: "dates.check_out", From: "2024-03-23", To: "2024-03-24"}},
		NewTotal: &newTotal,
		Actor:    models.ActorUser,
	})
	if err != nil {
		t.Fatalf("RequestModification: %v", err)
	}

	if st.Status != models.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed (modified is a marker, not a state)", st.Status)
	}
	if len(st.History) != historyLen+1 {
		t.Fatalf("history length = %d, want %d", len(st.History), historyLen+1)
	}
	last := st.History[len(st.History)-1]
	if *last.FromStatus != models.StatusConfirmed || last.ToStatus != models.StatusConfirmed {
		t.Errorf("marker entry moves %s -> %s, want confirmed -> confirmed", *last.FromStatus, last.ToStatus)
	}
	if st.Payment.Total.Amount != 1200 {
		t.Errorf("total = %d, want 1200", st.Payment.Total.Amount)
	}
	if st.Modification == nil || len(st.Modification.Changes) != 1 {
		t.Errorf("modification record incomplete: %+v", st.Modification)
	}

	types := env.sink.types()
	if types[len(types)-1] != models.WebhookStayModified {
		t.Errorf("last event = %s, want %s", types[len(types)-1], models.WebhookStayModified)
	}
}

func TestModificationWithRevalidationFallsBackToHeld(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st := bookAndConfirm(t, env, 1000, fullSchedule(1000), "")
	st, err := env.svc.RequestModification(ctx, ModificationInput{
		StayID:               st.ID,
		Changes:              []models.FieldChange{{Field: "units", From: "double", To: "suite"}},
		RequiresRevalidation: true,
		Actor:                models.ActorUser,
	})
	if err != nil {
		t.Fatalf("RequestModification: %v", err)
	}
	if st.Status != models.StatusHeld {
		t.Errorf("status = %s, want held for availability re-validation", st.Status)
	}
	assertHistoryConsistent(t, st)
}

func TestModificationRejectedOutsideTrunkWindow(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	st := bookAndConfirm(t, env, 1000, fullSchedule(1000), "")
	if _, err := env.svc.CaptureBalance(ctx, st.ID, models.ActorSystem); err != nil {
		t.Fatalf("CaptureBalance: %v", err)
	}
	env.clock.Set(time.Date(2024, 3, 20, 16, 0, 0, 0, time.UTC))
	if _, err := env.svc.CheckIn(ctx, st.ID, "", models.ActorVenue); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	_, err := env.svc.RequestModification(ctx, ModificationInput{
		StayID:  st.ID,
		Changes: []models.FieldChange{{Field: "guests.adults", From: 2, To: 3}},
		Actor:   models.ActorUser,
	})
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) || lcErr.Code != CodeInvalidTransition {
		t.Errorf("error = %v, want code %s", err, CodeInvalidTransition)
	}
}

func TestGetStayUnknownID(t *testing.T) {
	env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	_, err := env.svc.GetStay(context.Background(), "stay_missing")
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) || lcErr.Code != CodeNotFound {
		t.Errorf("error = %v, want code %s", err, CodeNotFound)
	}
}

func TestReleaseHoldExpiryActions(t *testing.T) {
	t.Run("release returns the stay to available", func(t *testing.T) {
		env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
		ctx := context.Background()
		st, h := createHeldStay(t, env, "")

		st, err := env.svc.ReleaseHold(ctx, st.ID, h.ID, models.ExpiryRelease, true, models.ActorSystem)
		if err != nil {
			t.Fatalf("ReleaseHold: %v", err)
		}
		if st.Status != models.StatusAvailable {
			t.Errorf("status = %s, want available", st.Status)
		}
		types := env.sink.types()
		if types[len(types)-1] != models.WebhookHoldExpired {
			t.Errorf("last event = %s, want %s", types[len(types)-1], models.WebhookHoldExpired)
		}
	})

	t.Run("cancel terminates the stay", func(t *testing.T) {
		env := newTestEnv(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
		ctx := context.Background()
		st, h := createHeldStay(t, env, "")

		st, err := env.svc.ReleaseHold(ctx, st.ID, h.ID, models.ExpiryCancel, true, models.ActorSystem)
		if err != nil {
			t.Fatalf("ReleaseHold: %v", err)
		}
		if st.Status != models.StatusCancelled {
			t.Errorf("status = %s, want cancelled", st.Status)
		}
	})
}
