package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
	"github.com/josh-kwaku/wallet-transfer/internal/logging"
)

type walletRepo interface {
	GetCurrency(ctx context.Context, id uuid.UUID) (domain.Currency, error)
	LockMany(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) ([]domain.Wallet, error)
	ApplyDelta(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error)
}

type ledgerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error
}

type unitOfWork interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type feePolicy interface {
	Fee(amount decimal.Decimal) decimal.Decimal
}

type systemResolver interface {
	Resolve(ctx context.Context, currency domain.Currency) (*domain.Wallet, error)
}

// CommitHook is told about a transfer only after its transaction has
// committed. A hook error is logged and never changes the transfer outcome.
type CommitHook interface {
	TransferCommitted(ctx context.Context, toWalletID, transactionID uuid.UUID) error
}

type Service struct {
	wallets walletRepo
	ledger  ledgerRepo
	db      unitOfWork
	fees    feePolicy
	system  systemResolver
	hooks   []CommitHook
}

func NewService(
	wallets walletRepo,
	ledger ledgerRepo,
	db unitOfWork,
	fees feePolicy,
	system systemResolver,
	hooks ...CommitHook,
) *Service {
	return &Service{
		wallets: wallets,
		ledger:  ledger,
		db:      db,
		fees:    fees,
		system:  system,
		hooks:   hooks,
	}
}

type Request struct {
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Amount       decimal.Decimal
}

// Result is the committed state: the ledger entry and the balances of all
// three participants as they stood when the locks were released.
type Result struct {
	Entry        domain.LedgerEntry
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	TotalDebited decimal.Decimal
	From         domain.Wallet
	To           domain.Wallet
	System       domain.Wallet
}

// Transfer moves req.Amount from one wallet to another and collects the fee
// into the currency's system wallet, all in one transaction. Business
// rejections are returned as *domain.TransferError; anything else is a
// storage failure. Nothing is retried here.
func (s *Service) Transfer(ctx context.Context, req Request) (*Result, error) {
	log := logging.FromContext(ctx)

	if req.FromWalletID == req.ToWalletID {
		return nil, fmt.Errorf("Transfer: %w", domain.InvalidTransfer("source and destination must differ"))
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Transfer: %w", domain.InvalidTransfer("amount must be greater than zero"))
	}
	amount := domain.Quantize(req.Amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Transfer: %w", domain.InvalidTransfer("amount must be at least 0.01"))
	}
	if !domain.WithinMoneyRange(amount) {
		return nil, fmt.Errorf("Transfer: %w", domain.InvalidTransfer("amount exceeds the maximum balance"))
	}

	currency, err := s.wallets.GetCurrency(ctx, req.FromWalletID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Transfer: %w", domain.InvalidTransfer("source wallet not found"))
		}
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	systemWallet, err := s.system.Resolve(ctx, currency)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	var res *Result
	err = s.db.RunInTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = s.execute(ctx, tx, req.FromWalletID, req.ToWalletID, systemWallet.ID, amount)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	log.Info("transfer completed",
		"transaction_id", res.Entry.ID,
		"from_wallet", res.From.ID,
		"to_wallet", res.To.ID,
		"currency", currency,
		"amount", domain.FormatMoney(res.Amount),
		"fee", domain.FormatMoney(res.Fee),
	)

	s.runCommitHooks(ctx, res)
	return res, nil
}

func (s *Service) execute(ctx context.Context, tx *sql.Tx, fromID, toID, systemID uuid.UUID, amount decimal.Decimal) (*Result, error) {
	// One global order for every transfer, whatever role each wallet plays,
	// so overlapping transfers can never wait on each other in a cycle.
	ids := domain.SortIDs([]uuid.UUID{fromID, toID, systemID})
	locked, err := s.wallets.LockMany(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	if len(locked) != 3 {
		return nil, domain.InvalidTransfer("one or more wallets not found")
	}

	byID := make(map[uuid.UUID]domain.Wallet, len(locked))
	for _, w := range locked {
		byID[w.ID] = w
	}
	from, to, system := byID[fromID], byID[toID], byID[systemID]

	if from.Currency != to.Currency || system.Currency != from.Currency {
		return nil, domain.InvalidTransfer("currency mismatch")
	}

	fee := s.fees.Fee(amount)
	total := domain.Quantize(amount.Add(fee))

	if from.Balance.LessThan(total) {
		return nil, domain.InsufficientFunds()
	}
	if !domain.WithinMoneyRange(to.Balance.Add(amount)) {
		return nil, domain.InvalidTransfer("destination balance would exceed the maximum")
	}
	if !domain.WithinMoneyRange(system.Balance.Add(fee)) {
		return nil, domain.InvalidTransfer("system wallet balance would exceed the maximum")
	}

	updatedFrom, err := s.wallets.ApplyDelta(ctx, tx, fromID, total.Neg())
	if err != nil {
		return nil, fmt.Errorf("execute: debit source: %w", err)
	}
	updatedTo, err := s.wallets.ApplyDelta(ctx, tx, toID, amount)
	if err != nil {
		return nil, fmt.Errorf("execute: credit destination: %w", err)
	}
	updatedSystem := &system
	if fee.IsPositive() {
		updatedSystem, err = s.wallets.ApplyDelta(ctx, tx, systemID, fee)
		if err != nil {
			return nil, fmt.Errorf("execute: credit fee: %w", err)
		}
	}

	entry := domain.LedgerEntry{
		ID:           uuid.New(),
		FromWalletID: &fromID,
		ToWalletID:   toID,
		Amount:       amount,
		Fee:          fee,
		Status:       domain.LedgerStatusSuccess,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.ledger.Create(ctx, tx, &entry); err != nil {
		return nil, fmt.Errorf("execute: ledger entry: %w", err)
	}

	return &Result{
		Entry:        entry,
		Amount:       amount,
		Fee:          fee,
		TotalDebited: total,
		From:         *updatedFrom,
		To:           *updatedTo,
		System:       *updatedSystem,
	}, nil
}

func (s *Service) runCommitHooks(ctx context.Context, res *Result) {
	// the transfer is durable by now; a caller hanging up must not cancel
	// the hooks
	ctx = context.WithoutCancel(ctx)
	for _, h := range s.hooks {
		if err := h.TransferCommitted(ctx, res.To.ID, res.Entry.ID); err != nil {
			logging.FromContext(ctx).Error("post-commit hook failed",
				"transaction_id", res.Entry.ID,
				"to_wallet", res.To.ID,
				"error", err,
			)
		}
	}
}
