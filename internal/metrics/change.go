package metrics

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PercentageChange is the change from previous to current in percent,
// rounded to two places, dividing by the raw previous value. A zero previous
// yields 100 when current is positive and 0 otherwise. Used for expense,
// transaction count and average changes.
func PercentageChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return growthFromZero(current)
	}
	return current.Sub(previous).Mul(hundred).Div(previous).Round(2)
}

// SavingsChange is PercentageChange with the absolute previous value as the
// denominator, so moving from negative to positive savings reads as growth.
func SavingsChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return growthFromZero(current)
	}
	return current.Sub(previous).Mul(hundred).Div(previous.Abs()).Round(2)
}

// CountChange applies PercentageChange to two counts.
func CountChange(current, previous int64) decimal.Decimal {
	return PercentageChange(decimal.NewFromInt(current), decimal.NewFromInt(previous))
}

func growthFromZero(current decimal.Decimal) decimal.Decimal {
	if current.IsPositive() {
		return hundred
	}
	return decimal.Zero
}
