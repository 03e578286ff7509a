package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
)

const walletColumns = `id, owner_name, currency, balance, created_at, updated_at`

type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) GetCurrency(ctx context.Context, id uuid.UUID) (domain.Currency, error) {
	var currency domain.Currency
	err := r.db.QueryRowContext(ctx,
		`SELECT currency FROM wallets WHERE id = $1`, id,
	).Scan(&currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("GetCurrency: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("GetCurrency: %w", err)
	}
	return currency, nil
}

func (r *WalletRepository) GetByOwnerAndCurrency(ctx context.Context, ownerName string, currency domain.Currency) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_name = $1 AND currency = $2`,
		ownerName, currency,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByOwnerAndCurrency: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByOwnerAndCurrency: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallets (id, owner_name, currency, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		wallet.ID, wallet.OwnerName, wallet.Currency, wallet.Balance,
		wallet.CreatedAt, wallet.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrWalletExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetOrCreate returns the wallet for (ownerName, currency), creating it with
// initialBalance when absent. A caller that loses the creation race re-reads
// the winner's row instead of reporting the conflict.
func (r *WalletRepository) GetOrCreate(ctx context.Context, ownerName string, currency domain.Currency, initialBalance decimal.Decimal) (*domain.Wallet, error) {
	w, err := r.GetByOwnerAndCurrency(ctx, ownerName, currency)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("GetOrCreate: %w", err)
	}

	now := time.Now().UTC()
	w = &domain.Wallet{
		ID:        uuid.New(),
		OwnerName: ownerName,
		Currency:  currency,
		Balance:   domain.Quantize(initialBalance),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = r.Create(ctx, w)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrWalletExists) {
		return nil, fmt.Errorf("GetOrCreate: %w", err)
	}

	w, err = r.GetByOwnerAndCurrency(ctx, ownerName, currency)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreate: refetch: %w", err)
	}
	return w, nil
}

// LockMany takes exclusive row locks on ids inside tx and returns the rows in
// ascending id order. Duplicate ids collapse to one row, and ids with no row
// are simply absent, so callers compare the result length against what they
// expect. The call blocks until every lock is granted.
func (r *WalletRepository) LockMany(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) ([]domain.Wallet, error) {
	sorted := domain.SortIDs(ids)
	keys := make([]string, len(sorted))
	for i, id := range sorted {
		keys[i] = id.String()
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets
		WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`,
		pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("LockMany: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("LockMany: scan: %w", err)
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LockMany: rows: %w", err)
	}
	return wallets, nil
}

// ApplyDelta adds delta to the balance of a row already locked by tx and
// returns the updated row. The increment happens in the database; the
// non-negative CHECK constraint rejects any result below zero.
func (r *WalletRepository) ApplyDelta(ctx context.Context, tx *sql.Tx, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
	row := tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = now()
		WHERE id = $2 RETURNING `+walletColumns,
		delta, id,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ApplyDelta: %w", domain.ErrNotFound)
		}
		if isCheckViolation(err) {
			return nil, fmt.Errorf("ApplyDelta: %w: %w", domain.ErrBalanceConstraint, err)
		}
		return nil, fmt.Errorf("ApplyDelta: %w", err)
	}
	return w, nil
}

func scanWallet(s scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.Scan(
		&w.ID, &w.OwnerName, &w.Currency, &w.Balance,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
