package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
	"github.com/josh-kwaku/wallet-transfer/internal/logging"
	"github.com/josh-kwaku/wallet-transfer/internal/service/transfer"
)

type transferService interface {
	Transfer(ctx context.Context, req transfer.Request) (*transfer.Result, error)
}

type TransferHandler struct {
	transfers transferService
}

func NewTransferHandler(transfers transferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type createTransferRequest struct {
	FromWalletID string `json:"from_wallet_id"`
	ToWalletID   string `json:"to_wallet_id"`
	Amount       string `json:"amount"`
}

// Validate checks shape and storable magnitude only. Amount and wallet rules
// are enforced by the transfer service.
func (r createTransferRequest) Validate() (transfer.Request, []FieldError) {
	var (
		req  transfer.Request
		errs []FieldError
		err  error
	)

	if r.FromWalletID == "" {
		errs = append(errs, FieldError{Field: "from_wallet_id", Message: "required"})
	} else if req.FromWalletID, err = uuid.Parse(r.FromWalletID); err != nil {
		errs = append(errs, FieldError{Field: "from_wallet_id", Message: "must be a UUID"})
	}

	if r.ToWalletID == "" {
		errs = append(errs, FieldError{Field: "to_wallet_id", Message: "required"})
	} else if req.ToWalletID, err = uuid.Parse(r.ToWalletID); err != nil {
		errs = append(errs, FieldError{Field: "to_wallet_id", Message: "must be a UUID"})
	}

	if r.Amount == "" {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	} else if req.Amount, err = decimal.NewFromString(r.Amount); err != nil {
		errs = append(errs, FieldError{Field: "amount", Message: "must be a decimal number"})
	} else if !domain.WithinMoneyRange(req.Amount) {
		errs = append(errs, FieldError{Field: "amount", Message: "must have at most 16 integer digits"})
	}

	return req, errs
}

type walletBalanceDTO struct {
	ID      uuid.UUID `json:"id"`
	Balance string    `json:"balance"`
}

type transferBalancesDTO struct {
	FromWallet   walletBalanceDTO `json:"from_wallet"`
	ToWallet     walletBalanceDTO `json:"to_wallet"`
	SystemWallet walletBalanceDTO `json:"system_wallet"`
}

func toWalletBalanceDTO(w *domain.Wallet) walletBalanceDTO {
	return walletBalanceDTO{ID: w.ID, Balance: domain.FormatMoney(w.Balance)}
}

type transferDTO struct {
	TransactionID uuid.UUID           `json:"transaction_id"`
	Amount        string              `json:"amount"`
	Fee           string              `json:"fee"`
	TotalDebited  string              `json:"total_debited"`
	Balances      transferBalancesDTO `json:"balances"`
}

func toTransferDTO(res *transfer.Result) transferDTO {
	return transferDTO{
		TransactionID: res.Entry.ID,
		Amount:        domain.FormatMoney(res.Amount),
		Fee:           domain.FormatMoney(res.Fee),
		TotalDebited:  domain.FormatMoney(res.TotalDebited),
		Balances: transferBalancesDTO{
			FromWallet:   toWalletBalanceDTO(&res.From),
			ToWallet:     toWalletBalanceDTO(&res.To),
			SystemWallet: toWalletBalanceDTO(&res.System),
		},
	}
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	req, fields := body.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.transfers.Transfer(r.Context(), req)
	if err != nil {
		log := logging.FromContext(r.Context())
		var transferErr *domain.TransferError
		if errors.As(err, &transferErr) {
			log.Info("transfer rejected",
				"from_wallet", req.FromWalletID,
				"to_wallet", req.ToWalletID,
				"reason", transferErr.Reason,
			)
		} else {
			log.Error("transfer failed", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransferDTO(res))
}
