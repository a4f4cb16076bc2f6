package models

// Money is a monetary amount in minor units (pence, cents) with an ISO 4217 currency code.
type Money struct {
	Amount   int64  `bson:"amount" json:"amount"`
	Currency string `bson:"currency" json:"currency"`
}

// Add returns m plus other. Currencies are assumed to match within one folio.
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Sub returns m minus other.
func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Percent returns the given percentage of m, rounded down to a minor unit.
func (m Money) Percent(percent int) Money {
	return Money{Amount: m.Amount * int64(percent) / 100, Currency: m.Currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Actor identifies who performed an action, e.g. "agent:abc", "user",
// "system", "venue", "payment:stripe", "pms:opera".
type Actor string

const (
	ActorSystem Actor = "system"
	ActorUser   Actor = "user"
	ActorVenue  Actor = "venue"
)
