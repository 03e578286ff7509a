package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerStatus string

const (
	LedgerStatusSuccess LedgerStatus = "SUCCESS"
	LedgerStatusFailed  LedgerStatus = "FAILED"
)

// LedgerEntry is the immutable audit record of one movement. FromWalletID is
// nil only for funds that enter the system without a source wallet; transfers
// always set it.
type LedgerEntry struct {
	ID           uuid.UUID
	FromWalletID *uuid.UUID
	ToWalletID   uuid.UUID
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	Status       LedgerStatus
	CreatedAt    time.Time
}
