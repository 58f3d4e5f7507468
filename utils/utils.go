package utils

import "github.com/shopspring/decimal"

const MoneyPlaces = 2

// Column shapes: amounts are numeric(20,8), rates numeric(10,4).
const (
	AmountScale     = 8
	AmountIntDigits = 12
	RateScale       = 4
	RateIntDigits   = 6
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FitsNumeric reports whether a numeric(intDigits+scale, scale) column
// stores d without rounding or overflow.
func FitsNumeric(d decimal.Decimal, intDigits, scale int32) bool {
	if !d.Equal(d.Truncate(scale)) {
		return false
	}
	return d.Abs().LessThan(decimal.New(1, intDigits))
}

// PercentOf returns pct percent of amount, rounded to cents.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(hundred))
}
