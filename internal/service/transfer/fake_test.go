package transfer

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
)

// fakeStore is an in-memory wallet and ledger store with transaction
// semantics: RunInTx serialises units of work, stages every write and only
// publishes it when fn succeeds.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	committed map[uuid.UUID]domain.Wallet
	staged    map[uuid.UUID]domain.Wallet
	entries   []domain.LedgerEntry
	pending   []domain.LedgerEntry

	lockCalls   [][]uuid.UUID
	deltaCalls  int
	commits     int
	rollbacks   int
	currencyErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{committed: map[uuid.UUID]domain.Wallet{}}
}

func (f *fakeStore) seed(owner string, currency domain.Currency, balance string) domain.Wallet {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	w := domain.Wallet{
		ID:        uuid.New(),
		OwnerName: owner,
		Currency:  currency,
		Balance:   decimal.RequireFromString(balance),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.committed[w.ID] = w
	return w
}

func (f *fakeStore) balance(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.FormatMoney(f.committed[id].Balance)
}

func (f *fakeStore) byOwner(owner string, currency domain.Currency) (domain.Wallet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.committed {
		if w.OwnerName == owner && w.Currency == currency {
			return w, true
		}
	}
	return domain.Wallet{}, false
}

func (f *fakeStore) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	f.staged = maps.Clone(f.committed)
	f.pending = nil
	f.mu.Unlock()

	err := fn(nil)
	if err == nil {
		err = ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.rollbacks++
		f.staged, f.pending = nil, nil
		return err
	}
	f.commits++
	f.committed = f.staged
	f.entries = append(f.entries, f.pending...)
	f.staged, f.pending = nil, nil
	return nil
}

func (f *fakeStore) GetCurrency(_ context.Context, id uuid.UUID) (domain.Currency, error) {
	if f.currencyErr != nil {
		return "", f.currencyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.committed[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return w.Currency, nil
}

func (f *fakeStore) GetOrCreate(_ context.Context, owner string, currency domain.Currency, initial decimal.Decimal) (*domain.Wallet, error) {
	if w, ok := f.byOwner(owner, currency); ok {
		return &w, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	w := domain.Wallet{ID: uuid.New(), OwnerName: owner, Currency: currency, Balance: initial, CreatedAt: now, UpdatedAt: now}
	f.committed[w.ID] = w
	return &w, nil
}

func (f *fakeStore) LockMany(_ context.Context, _ *sql.Tx, ids []uuid.UUID) ([]domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockCalls = append(f.lockCalls, append([]uuid.UUID(nil), ids...))

	var out []domain.Wallet
	for _, id := range domain.SortIDs(ids) {
		if w, ok := f.staged[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyDelta(_ context.Context, _ *sql.Tx, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deltaCalls++
	w, ok := f.staged[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return nil, domain.ErrBalanceConstraint
	}
	w.Balance = next
	w.UpdatedAt = time.Now().UTC()
	f.staged[id] = w
	return &w, nil
}

func (f *fakeStore) Create(_ context.Context, _ *sql.Tx, entry *domain.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, *entry)
	return nil
}

type recordingHook struct {
	mu    sync.Mutex
	calls [][2]uuid.UUID
	err   error
}

func (h *recordingHook) TransferCommitted(_ context.Context, toWalletID, transactionID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, [2]uuid.UUID{toWalletID, transactionID})
	return h.err
}

var errStorageDown = errors.New("connection refused")
