package domain

import "github.com/shopspring/decimal"

const (
	MoneyPlaces int32 = 2
	// MoneyDigits is the total precision of a stored balance, NUMERIC(18,2).
	MoneyDigits int32 = 18
)

// MaxMoney is the largest value a balance column holds: 9999999999999999.99.
var MaxMoney = decimal.New(1, MoneyDigits-MoneyPlaces).Sub(decimal.New(1, -MoneyPlaces))

// Quantize rounds half away from zero to two fractional digits, which is
// round-half-up for the non-negative amounts money takes here.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// WithinMoneyRange reports whether d, once quantized, fits a balance column.
func WithinMoneyRange(d decimal.Decimal) bool {
	return Quantize(d).Abs().LessThanOrEqual(MaxMoney)
}
