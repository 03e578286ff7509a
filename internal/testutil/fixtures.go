package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
)

const (
	DefaultCurrency   = "USD"
	SystemWalletOwner = "admin"
)

func SeedWallet(t *testing.T, db *sql.DB, ownerName, currency, balance string) *domain.Wallet {
	t.Helper()

	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerName: ownerName,
		Currency:  domain.Currency(currency),
		Balance:   decimal.RequireFromString(balance),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.Exec(
		`INSERT INTO wallets (id, owner_name, currency, balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.OwnerName, w.Currency, w.Balance, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed wallet %s/%s: %v", ownerName, currency, err)
	}
	return w
}

// SeedSystemWallet provisions the fee account up front, the way an operator
// would, so tests can read its balance before the first transfer.
func SeedSystemWallet(t *testing.T, db *sql.DB, currency string) *domain.Wallet {
	t.Helper()
	return SeedWallet(t, db, SystemWalletOwner, currency, "0.00")
}

func GetWalletBalance(t *testing.T, db *sql.DB, walletID uuid.UUID) string {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance)
	if err != nil {
		t.Fatalf("get wallet balance %s: %v", walletID, err)
	}
	return domain.FormatMoney(balance)
}

func GetSystemWalletBalance(t *testing.T, db *sql.DB, currency string) string {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(
		`SELECT balance FROM wallets WHERE owner_name = $1 AND currency = $2`,
		SystemWalletOwner, currency,
	).Scan(&balance)
	if err != nil {
		t.Fatalf("get system wallet balance %s: %v", currency, err)
	}
	return domain.FormatMoney(balance)
}

func CountLedgerEntries(t *testing.T, db *sql.DB, walletID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM ledger_entries WHERE from_wallet_id = $1 OR to_wallet_id = $1`, walletID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries for wallet %s: %v", walletID, err)
	}
	return count
}

func CountWallets(t *testing.T, db *sql.DB, ownerName, currency string) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM wallets WHERE owner_name = $1 AND currency = $2`, ownerName, currency,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count wallets %s/%s: %v", ownerName, currency, err)
	}
	return count
}
