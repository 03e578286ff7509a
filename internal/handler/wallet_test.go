package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-transfer/internal/domain"
	"github.com/josh-kwaku/wallet-transfer/internal/service"
)

type mockWalletService struct {
	created   service.CreateWalletRequest
	wallet    *domain.Wallet
	entries   []domain.LedgerEntry
	gotLimit  int
	gotOffset int
	err       error
}

func (m *mockWalletService) CreateWallet(_ context.Context, req service.CreateWalletRequest) (*domain.Wallet, error) {
	m.created = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Wallet{
		ID:        uuid.New(),
		OwnerName: req.OwnerName,
		Currency:  req.Currency,
		Balance:   req.InitialBalance,
	}, nil
}

func (m *mockWalletService) GetWallet(_ context.Context, _ uuid.UUID) (*domain.Wallet, error) {
	return m.wallet, m.err
}

func (m *mockWalletService) ListWalletTransactions(_ context.Context, _ uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	m.gotLimit, m.gotOffset = limit, offset
	return m.entries, len(m.entries), m.err
}

func TestWalletHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"created", `{"owner_name":"alice","currency":"USD","balance":"100.50"}`, nil, http.StatusCreated, ""},
		{"defaults omitted fields", `{"owner_name":"alice"}`, nil, http.StatusCreated, ""},
		{"missing owner", `{"currency":"USD"}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"negative balance", `{"owner_name":"alice","balance":"-1"}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad balance", `{"owner_name":"alice","balance":"lots"}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"balance too large", `{"owner_name":"alice","balance":"12345678901234567.00"}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"duplicate", `{"owner_name":"alice"}`, domain.ErrWalletExists, http.StatusConflict, "WALLET_ALREADY_EXISTS"},
		{"malformed", `not json`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWalletService{err: tt.svcErr}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			NewWalletHandler(svc).Create(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				resp := decodeResponse(t, rec)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestWalletHandler_CreatePassesBalance(t *testing.T) {
	svc := &mockWalletService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets",
		strings.NewReader(`{"owner_name":"alice","currency":"EUR","balance":"100.5"}`))
	rec := httptest.NewRecorder()

	NewWalletHandler(svc).Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice", svc.created.OwnerName)
	assert.Equal(t, domain.Currency("EUR"), svc.created.Currency)
	assert.True(t, svc.created.InitialBalance.Equal(decimal.RequireFromString("100.5")))

	var resp struct {
		Data walletDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "100.50", resp.Data.Balance)
}

func TestWalletHandler_Get(t *testing.T) {
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		svc := &mockWalletService{wallet: &domain.Wallet{ID: id, OwnerName: "alice", Currency: "USD", Balance: decimal.RequireFromString("7")}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+id.String(), nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()

		NewWalletHandler(svc).Get(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data walletDTO `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.Data.ID)
		assert.Equal(t, "7.00", resp.Data.Balance)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &mockWalletService{err: domain.ErrNotFound}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+id.String(), nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()

		NewWalletHandler(svc).Get(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/abc", nil)
		req.SetPathValue("id", "abc")
		rec := httptest.NewRecorder()

		NewWalletHandler(&mockWalletService{}).Get(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestWalletHandler_ListTransactions(t *testing.T) {
	id := uuid.New()
	from := uuid.New()

	t.Run("pagination passed through", func(t *testing.T) {
		svc := &mockWalletService{entries: []domain.LedgerEntry{{
			ID:           uuid.New(),
			FromWalletID: &from,
			ToWalletID:   id,
			Amount:       decimal.RequireFromString("12.5"),
			Fee:          decimal.Zero,
			Status:       domain.LedgerStatusSuccess,
		}}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+id.String()+"/transactions?limit=5&offset=10", nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()

		NewWalletHandler(svc).ListTransactions(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, svc.gotLimit)
		assert.Equal(t, 10, svc.gotOffset)

		var resp struct {
			Data transactionListDTO `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Entries, 1)
		assert.Equal(t, "12.50", resp.Data.Entries[0].Amount)
		assert.Equal(t, "0.00", resp.Data.Entries[0].Fee)
		assert.Equal(t, 1, resp.Data.Total)
	})

	t.Run("bad limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+id.String()+"/transactions?limit=-1", nil)
		req.SetPathValue("id", id.String())
		rec := httptest.NewRecorder()

		NewWalletHandler(&mockWalletService{}).ListTransactions(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
