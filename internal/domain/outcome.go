package domain

import "fmt"

// SettlementValue is the fixed sum of a complementary yes/no price pair.
// A yes contract at price p and a no contract at price SettlementValue-p
// are two halves of the same market.
const SettlementValue int64 = 10

// PriceScale converts a contract price into minor currency units:
// one contract unit at price p costs p × PriceScale.
const PriceScale int64 = 100

// Outcome identifies one side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Opposite returns the other side of the market.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// ParseOutcome converts the wire representation of a stock type into an
// Outcome. It returns ErrInvalidOutcome for anything but "yes" or "no".
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeYes, OutcomeNo:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// ValidPrice reports whether p is a tradable contract price. Prices are
// integers strictly between 0 and SettlementValue so that both sides of
// the complementary pair remain tradable.
func ValidPrice(p int64) bool {
	return p >= 1 && p < SettlementValue
}

// ComplementPrice returns the price of the opposite outcome in the same
// pair: crossing a yes order at p settles against a no order at 10-p.
func ComplementPrice(p int64) int64 {
	return SettlementValue - p
}

// Notional returns the cash cost, in minor units, of qty contract units
// at price p.
func Notional(price, qty int64) int64 {
	return price * qty * PriceScale
}
