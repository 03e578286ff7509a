package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
	"github.com/josh-kwaku/wallet-transfer/internal/logging"
	"github.com/josh-kwaku/wallet-transfer/internal/service"
)

type walletService interface {
	CreateWallet(ctx context.Context, req service.CreateWalletRequest) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	ListWalletTransactions(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error)
}

type WalletHandler struct {
	wallets walletService
}

func NewWalletHandler(wallets walletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type createWalletRequest struct {
	OwnerName string `json:"owner_name"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
}

func (r createWalletRequest) Validate() (decimal.Decimal, []FieldError) {
	var errs []FieldError

	if r.OwnerName == "" {
		errs = append(errs, FieldError{Field: "owner_name", Message: "required"})
	}
	if r.Currency != "" && !domain.Currency(r.Currency).IsValid() {
		errs = append(errs, FieldError{Field: "currency", Message: "must be 1 to 8 characters"})
	}

	balance := decimal.Zero
	if r.Balance != "" {
		d, err := decimal.NewFromString(r.Balance)
		switch {
		case err != nil:
			errs = append(errs, FieldError{Field: "balance", Message: "must be a decimal number"})
		case d.IsNegative():
			errs = append(errs, FieldError{Field: "balance", Message: "must not be negative"})
		case !domain.WithinMoneyRange(d):
			errs = append(errs, FieldError{Field: "balance", Message: "must have at most 16 integer digits"})
		default:
			balance = d
		}
	}

	return balance, errs
}

type walletDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerName string    `json:"owner_name"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toWalletDTO(w *domain.Wallet) walletDTO {
	return walletDTO{
		ID:        w.ID,
		OwnerName: w.OwnerName,
		Currency:  string(w.Currency),
		Balance:   domain.FormatMoney(w.Balance),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

type ledgerEntryDTO struct {
	ID           uuid.UUID  `json:"id"`
	FromWalletID *uuid.UUID `json:"from_wallet_id"`
	ToWalletID   uuid.UUID  `json:"to_wallet_id"`
	Amount       string     `json:"amount"`
	Fee          string     `json:"fee"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toLedgerEntryDTO(e *domain.LedgerEntry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:           e.ID,
		FromWalletID: e.FromWalletID,
		ToWalletID:   e.ToWalletID,
		Amount:       domain.FormatMoney(e.Amount),
		Fee:          domain.FormatMoney(e.Fee),
		Status:       string(e.Status),
		CreatedAt:    e.CreatedAt,
	}
}

type transactionListDTO struct {
	Entries []ledgerEntryDTO `json:"entries"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	balance, fields := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	wallet, err := h.wallets.CreateWallet(r.Context(), service.CreateWalletRequest{
		OwnerName:      req.OwnerName,
		Currency:       domain.Currency(req.Currency),
		InitialBalance: balance,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create wallet", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toWalletDTO(wallet))
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, appErr := walletIDFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to get wallet", "wallet_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, appErr := walletIDFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	limit, offset, fields := parsePagination(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	entries, total, err := h.wallets.ListWalletTransactions(r.Context(), id, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list wallet transactions", "wallet_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]ledgerEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = toLedgerEntryDTO(&entries[i])
	}

	RespondSuccess(w, http.StatusOK, transactionListDTO{
		Entries: dtos,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func walletIDFromPath(r *http.Request) (uuid.UUID, *AppError) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}

func parsePagination(r *http.Request) (limit, offset int, errs []FieldError) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, FieldError{Field: "limit", Message: "must be a positive integer"})
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, FieldError{Field: "offset", Message: "must be a non-negative integer"})
		}
		offset = n
	}
	return limit, offset, errs
}
