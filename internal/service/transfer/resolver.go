package transfer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
)

type systemWalletRepo interface {
	GetOrCreate(ctx context.Context, ownerName string, currency domain.Currency, initialBalance decimal.Decimal) (*domain.Wallet, error)
}

// SystemAccountResolver locates the per-currency fee wallet, provisioning it
// with a zero balance on first use. It takes no locks.
type SystemAccountResolver struct {
	wallets  systemWalletRepo
	ownerFor func(domain.Currency) string
}

func NewSystemAccountResolver(wallets systemWalletRepo, ownerFor func(domain.Currency) string) *SystemAccountResolver {
	return &SystemAccountResolver{wallets: wallets, ownerFor: ownerFor}
}

// FixedOwner names the same system owner for every currency.
func FixedOwner(name string) func(domain.Currency) string {
	return func(domain.Currency) string { return name }
}

func (r *SystemAccountResolver) Resolve(ctx context.Context, currency domain.Currency) (*domain.Wallet, error) {
	w, err := r.wallets.GetOrCreate(ctx, r.ownerFor(currency), currency, decimal.Zero)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %s: %w", currency, err)
	}
	return w, nil
}
