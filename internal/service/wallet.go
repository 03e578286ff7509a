package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
	"github.com/josh-kwaku/wallet-transfer/internal/logging"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type walletRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	Create(ctx context.Context, wallet *domain.Wallet) error
}

type ledgerReader interface {
	GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error)
}

type WalletService struct {
	wallets         walletRepo
	ledger          ledgerReader
	defaultCurrency domain.Currency
}

func NewWalletService(wallets walletRepo, ledger ledgerReader, defaultCurrency domain.Currency) *WalletService {
	return &WalletService{
		wallets:         wallets,
		ledger:          ledger,
		defaultCurrency: defaultCurrency,
	}
}

type CreateWalletRequest struct {
	OwnerName      string
	Currency       domain.Currency
	InitialBalance decimal.Decimal
}

// CreateWallet provisions a wallet. An empty currency falls back to the
// configured default; one wallet per (owner, currency) pair.
func (s *WalletService) CreateWallet(ctx context.Context, req CreateWalletRequest) (*domain.Wallet, error) {
	log := logging.FromContext(ctx)

	owner := strings.TrimSpace(req.OwnerName)
	if owner == "" {
		return nil, fmt.Errorf("CreateWallet: owner name is required: %w", domain.ErrInvalidRequest)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("CreateWallet: %w", domain.ErrInvalidCurrency)
	}

	balance := domain.Quantize(req.InitialBalance)
	if balance.IsNegative() || !domain.WithinMoneyRange(balance) {
		return nil, fmt.Errorf("CreateWallet: %w", domain.ErrInvalidAmount)
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:        uuid.New(),
		OwnerName: owner,
		Currency:  currency,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, fmt.Errorf("CreateWallet: %w", err)
	}

	log.Info("wallet created",
		"wallet_id", wallet.ID,
		"owner_name", owner,
		"currency", currency,
		"balance", domain.FormatMoney(balance),
	)
	return wallet, nil
}

func (s *WalletService) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.wallets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetWallet: %w", err)
	}
	return wallet, nil
}

// ListWalletTransactions returns ledger entries touching the wallet, newest
// first, plus the total count for pagination.
func (s *WalletService) ListWalletTransactions(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	if _, err := s.wallets.GetByID(ctx, id); err != nil {
		return nil, 0, fmt.Errorf("ListWalletTransactions: %w", err)
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)

	entries, total, err := s.ledger.GetByWalletID(ctx, id, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListWalletTransactions: %w", err)
	}
	return entries, total, nil
}
