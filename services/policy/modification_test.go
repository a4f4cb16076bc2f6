package policy

import (
	"errors"
	"testing"

	"innkeeper/models"
)

func TestEvaluateModification(t *testing.T) {
	fee := gbp(50)

	t.Run("fee plus price difference", func(t *testing.T) {
		folio := &models.Folio{
			Modification: &models.ModificationPolicy{Allowed: true, Fee: &fee},
		}
		out, err := EvaluateModification(folio, gbp(1000), gbp(1200))
		if err != nil {
			t.Fatalf("EvaluateModification: %v", err)
		}
		if out.PriceDifference.Amount != 200 {
			t.Errorf("PriceDifference = %d, want 200", out.PriceDifference.Amount)
		}
		if out.NewTotal.Amount != 1250 {
			t.Errorf("NewTotal = %d, want 1250", out.NewTotal.Amount)
		}
		if out.MandateAmendmentRequired {
			t.Error("no mandate configured, amendment should not be required")
		}
	})

	t.Run("not allowed", func(t *testing.T) {
		folio := &models.Folio{Modification: &models.ModificationPolicy{Allowed: false}}
		_, err := EvaluateModification(folio, gbp(1000), gbp(1200))
		var polErr *PolicyError
		if !errors.As(err, &polErr) || polErr.Code != CodeModificationNotAllowed {
			t.Errorf("error = %v, want code %s", err, CodeModificationNotAllowed)
		}
	})

	t.Run("missing policy treated as not allowed", func(t *testing.T) {
		if _, err := EvaluateModification(&models.Folio{}, gbp(1000), gbp(1200)); err == nil {
			t.Error("expected error when folio has no modification policy")
		}
	})

	t.Run("increase beyond the mandate requires amendment", func(t *testing.T) {
		folio := &models.Folio{
			Modification: &models.ModificationPolicy{Allowed: true, RequiresMandateAmendmentIfIncrease: true},
			Authorized: &models.AuthorizedCharges{Charges: []models.AuthorizedCharge{
				{Type: string(models.PaymentDeposit), MaxAmount: gbp(300)},
				{Type: string(models.PaymentBalance), MaxAmount: gbp(800)},
				{Type: "no_show", MaxAmount: gbp(2000)},
			}},
		}
		out, err := EvaluateModification(folio, gbp(1000), gbp(1200))
		if err != nil {
			t.Fatalf("EvaluateModification: %v", err)
		}
		// 1200 exceeds the 1100 authorized for stay charges; the no_show
		// mandate never counts toward it.
		if !out.MandateAmendmentRequired {
			t.Error("expected mandate amendment to be required")
		}
	})

	t.Run("increase within the mandate", func(t *testing.T) {
		folio := &models.Folio{
			Modification: &models.ModificationPolicy{Allowed: true, RequiresMandateAmendmentIfIncrease: true},
			Authorized: &models.AuthorizedCharges{Charges: []models.AuthorizedCharge{
				{Type: string(models.PaymentFull), MaxAmount: gbp(1500)},
			}},
		}
		out, err := EvaluateModification(folio, gbp(1000), gbp(1200))
		if err != nil {
			t.Fatalf("EvaluateModification: %v", err)
		}
		if out.MandateAmendmentRequired {
			t.Error("amendment required despite headroom in the mandate")
		}
	})

	t.Run("price decrease never needs amendment", func(t *testing.T) {
		folio := &models.Folio{
			Modification: &models.ModificationPolicy{Allowed: true, RequiresMandateAmendmentIfIncrease: true},
			Authorized: &models.AuthorizedCharges{Charges: []models.AuthorizedCharge{
				{Type: string(models.PaymentFull), MaxAmount: gbp(500)},
			}},
		}
		out, err := EvaluateModification(folio, gbp(1000), gbp(800))
		if err != nil {
			t.Fatalf("EvaluateModification: %v", err)
		}
		if out.MandateAmendmentRequired {
			t.Error("decrease flagged for mandate amendment")
		}
	})
}
