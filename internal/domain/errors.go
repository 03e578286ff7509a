package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrWalletExists      = errors.New("wallet already exists for this owner and currency")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrInvalidAmount     = errors.New("amount is negative or out of range")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidTransfer   = errors.New("invalid transfer")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceConstraint = errors.New("wallet balance would become negative")
)

type TransferErrorKind int

const (
	KindInvalidTransfer TransferErrorKind = iota + 1
	KindInsufficientFunds
)

func (k TransferErrorKind) String() string {
	switch k {
	case KindInvalidTransfer:
		return "invalid_transfer"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "unknown"
	}
}

// TransferError is a business outcome that aborted a transfer before any
// funds moved. Reason is safe to show to the caller as-is.
type TransferError struct {
	Kind   TransferErrorKind
	Reason string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *TransferError) Is(target error) bool {
	switch e.Kind {
	case KindInvalidTransfer:
		return target == ErrInvalidTransfer
	case KindInsufficientFunds:
		return target == ErrInsufficientFunds
	}
	return false
}

func InvalidTransfer(reason string) *TransferError {
	return &TransferError{Kind: KindInvalidTransfer, Reason: reason}
}

func InsufficientFunds() *TransferError {
	return &TransferError{Kind: KindInsufficientFunds, Reason: "insufficient funds"}
}
