package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	var accepted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)
		assert.Equal(t, "20.00", body["amount"])

		if accepted.Add(1) <= 5 {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	outcomes, err := run(context.Background(), srv.Client(), options{
		baseURL:  srv.URL,
		from:     "a",
		to:       "b",
		amount:   "20.00",
		requests: 10,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 10)

	counts := map[int]int{}
	for _, o := range outcomes {
		counts[o.status]++
	}
	assert.Equal(t, 5, counts[http.StatusOK])
	assert.Equal(t, 5, counts[http.StatusConflict])
}

func TestRun_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := run(context.Background(), http.DefaultClient, options{baseURL: url, from: "a", to: "b", amount: "1", requests: 2})
	assert.Error(t, err)
}

func TestSummarize_StableOrder(t *testing.T) {
	outcomes := []outcome{
		{index: 2, status: http.StatusConflict, body: "c"},
		{index: 0, status: http.StatusOK, body: "a"},
		{index: 1, status: http.StatusBadRequest, body: "b"},
		{index: 3, status: http.StatusOK, body: "d"},
	}

	var buf bytes.Buffer
	summarize(&buf, outcomes)

	want := "request  0: 200 a\n" +
		"request  1: 400 b\n" +
		"request  2: 409 c\n" +
		"request  3: 200 d\n" +
		"---\n" +
		"200 OK: 2\n" +
		"400 Bad Request: 1\n" +
		"409 Conflict: 1\n"
	assert.Equal(t, want, buf.String())
}
