package fee

import (
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
)

var (
	DefaultThreshold = decimal.RequireFromString("1000.00")
	DefaultRate      = decimal.RequireFromString("0.10")
)

// Policy charges Rate on transfers strictly above Threshold and nothing at or
// below it.
type Policy struct {
	threshold decimal.Decimal
	rate      decimal.Decimal
}

func NewPolicy(threshold, rate decimal.Decimal) Policy {
	return Policy{threshold: threshold, rate: rate}
}

func DefaultPolicy() Policy {
	return NewPolicy(DefaultThreshold, DefaultRate)
}

func (p Policy) Fee(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThanOrEqual(p.threshold) {
		return decimal.Zero.Round(domain.MoneyPlaces)
	}
	return domain.Quantize(amount.Mul(p.rate))
}
