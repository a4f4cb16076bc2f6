package policy

import (
	"fmt"
	"time"

	"innkeeper/models"
)

// NoShowOutcome is the charge computed for a detected no-show.
type NoShowOutcome struct {
	HoursAfterCheckIn int
	ChargePercent     int
	Charge            models.Money
}

// EvaluateNoShow checks the detection window and computes the no-show charge
// over the total booking amount. The caller must separately attach a proof
// record; the engine requires one but does not verify it.
func EvaluateNoShow(np *models.NoShowPolicy, total models.Money, checkInAt, now time.Time) (NoShowOutcome, error) {
	if np == nil {
		return NoShowOutcome{}, NewMalformedPolicyError("folio has no no-show policy")
	}
	deadline := checkInAt.Add(time.Duration(np.DetectAfterHours) * time.Hour)
	if now.Before(deadline) {
		return NoShowOutcome{}, NewGuardError(fmt.Sprintf(
			"no-show window not elapsed: detectable from %s", deadline.Format(time.RFC3339)))
	}
	return NoShowOutcome{
		HoursAfterCheckIn: int(now.Sub(checkInAt).Hours()),
		ChargePercent:     np.ChargePercent,
		Charge:            total.Percent(np.ChargePercent),
	}, nil
}
