package domain

import (
	"bytes"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency string

const maxCurrencyLen = 8

func (c Currency) IsValid() bool {
	return len(c) > 0 && len(c) <= maxCurrencyLen
}

// Wallet holds a non-negative balance in a single currency. The pair
// (OwnerName, Currency) is unique; the system fee account is an ordinary
// wallet distinguished only by its configured owner name.
type Wallet struct {
	ID        uuid.UUID
	OwnerName string
	Currency  Currency
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SortIDs returns a deduplicated copy of ids in ascending byte order, which is
// also PostgreSQL's ordering of the uuid type. Multi-wallet locks are always
// taken in this order.
func SortIDs(ids []uuid.UUID) []uuid.UUID {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return slices.Compact(sorted)
}
