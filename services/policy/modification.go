package policy

import "innkeeper/models"

// ModificationOutcome prices a requested booking modification.
type ModificationOutcome struct {
	Fee                      *models.Money
	PriceDifference          models.Money
	NewTotal                 models.Money
	MandateAmendmentRequired bool
}

// EvaluateModification returns the flat fee plus the price difference of the
// changed units/dates, and flags when the authorized-charge mandate must be
// amended because the new total exceeds the pre-authorized maximum.
func EvaluateModification(folio *models.Folio, oldTotal, newTotal models.Money) (ModificationOutcome, error) {
	mp := folio.Modification
	if mp == nil || !mp.Allowed {
		return ModificationOutcome{}, NewModificationNotAllowedError("folio does not allow modifications")
	}

	out := ModificationOutcome{
		Fee:             mp.Fee,
		PriceDifference: newTotal.Sub(oldTotal),
		NewTotal:        newTotal,
	}
	if mp.Fee != nil {
		out.NewTotal = out.NewTotal.Add(*mp.Fee)
	}

	if mp.RequiresMandateAmendmentIfIncrease && out.NewTotal.Amount > oldTotal.Amount {
		if max, ok := authorizedTotal(folio.Authorized); ok && out.NewTotal.Amount > max.Amount {
			out.MandateAmendmentRequired = true
		}
	}
	return out, nil
}

// authorizedTotal sums the mandate maximums over every charge type except
// no_show, which is a separate authorization.
func authorizedTotal(a *models.AuthorizedCharges) (models.Money, bool) {
	if a == nil || len(a.Charges) == 0 {
		return models.Money{}, false
	}
	var total models.Money
	for _, c := range a.Charges {
		if c.Type == "no_show" {
			continue
		}
		total = total.Add(c.MaxAmount)
	}
	return total, true
}
