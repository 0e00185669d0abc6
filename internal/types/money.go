// README: Common money value object used across modules.
package types

import "math"

// DefaultCurrency is the currency every quote is priced in.
const DefaultCurrency = "RUB"

type Money struct {
	Amount   int64
	Currency string
}

// RUB wraps an integer rouble amount.
func RUB(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

// RoundHalfUp rounds to the nearest integer currency unit, with .5 going away from zero.
// math.Round already has these semantics; it is wrapped so every price goes through one rule.
func RoundHalfUp(v float64) int64 {
	return int64(math.Round(v))
}

// Round1 rounds a kilometre value to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
