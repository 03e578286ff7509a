package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/wallet-transfer/internal/repository"
)

func newIdempotencyStack(t *testing.T, next http.Handler) (http.Handler, *repository.IdempotencyRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := repository.NewIdempotencyRepository(client, time.Hour)
	return Idempotency(repo)(next), repo
}

func setupIdempotency(t *testing.T, status int) (http.Handler, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"call":%d,"echo":%q}`, n, body)
	})

	h, _ := newIdempotencyStack(t, next)
	return h, &calls
}

func send(h http.Handler, method, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/transfers", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_WithoutKeyAlwaysExecutes(t *testing.T) {
	h, calls := setupIdempotency(t, http.StatusCreated)

	send(h, http.MethodPost, "", `{"a":1}`)
	send(h, http.MethodPost, "", `{"a":1}`)

	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_ReplaysSameRequest(t *testing.T) {
	h, calls := setupIdempotency(t, http.StatusCreated)

	first := send(h, http.MethodPost, "key-1", `{"a":1}`)
	second := send(h, http.MethodPost, "key-1", `{"a":1}`)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replayed"))
	assert.Empty(t, first.Header().Get("X-Idempotent-Replayed"))
}

func TestIdempotency_ConflictOnDifferentBody(t *testing.T) {
	h, calls := setupIdempotency(t, http.StatusCreated)

	send(h, http.MethodPost, "key-1", `{"a":1}`)
	rec := send(h, http.MethodPost, "key-1", `{"a":2}`)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "IDEMPOTENCY_CONFLICT")
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	h, calls := setupIdempotency(t, http.StatusInternalServerError)

	send(h, http.MethodPost, "key-1", `{"a":1}`)
	send(h, http.MethodPost, "key-1", `{"a":1}`)

	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_BusinessRejectionsAreReplayed(t *testing.T) {
	h, calls := setupIdempotency(t, http.StatusConflict)

	send(h, http.MethodPost, "key-1", `{"a":1}`)
	rec := send(h, http.MethodPost, "key-1", `{"a":1}`)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIdempotency_IgnoresReads(t *testing.T) {
	h, calls := setupIdempotency(t, http.StatusOK)

	send(h, http.MethodGet, "key-1", "")
	send(h, http.MethodGet, "key-1", "")

	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	h, calls := setupIdempotency(t, http.StatusCreated)

	rec := send(h, http.MethodPost, strings.Repeat("k", 256), `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls.Load())
}

func TestIdempotency_ConcurrentSameKeyRunsOnce(t *testing.T) {
	var calls atomic.Int32
	h, _ := newIdempotencyStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	const n = 5
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = send(h, http.MethodPost, "key-1", `{"a":1}`).Code
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "handler ran more than once for one key")
	var ok, inProgress int
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			inProgress++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, inProgress)
}

func TestIdempotency_HeldKeyReturnsInProgress(t *testing.T) {
	h, repo := newIdempotencyStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while the key is held")
	}))

	reserved, err := repo.Reserve(context.Background(), "key-1", computeHash(http.MethodPost, "/api/v1/transfers", []byte(`{"a":1}`)))
	require.NoError(t, err)
	require.True(t, reserved)

	rec := send(h, http.MethodPost, "key-1", `{"a":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "IDEMPOTENCY_IN_PROGRESS")
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	var calls atomic.Int32
	h, _ := newIdempotencyStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		w.WriteHeader(http.StatusOK)
	}))
	h = Recovery(h)

	first := send(h, http.MethodPost, "key-1", `{"a":1}`)
	assert.Equal(t, http.StatusInternalServerError, first.Code)

	second := send(h, http.MethodPost, "key-1", `{"a":1}`)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, int32(2), calls.Load())
}
