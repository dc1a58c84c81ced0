package rail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHTTPRail(t *testing.T, handler http.Handler) *HTTP {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	h := NewHTTP(ts.URL, zap.NewNop())
	h.retryDelay = time.Millisecond
	return h
}

func TestHTTPCollect(t *testing.T) {
	var got transferRequest
	h := newHTTPRail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collect", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	err := h.Collect(context.Background(), "alice", uint256.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Account)
	assert.Equal(t, "42", got.Amount)
}

func TestHTTPRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	h := newHTTPRail(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := h.PayOut(context.Background(), "alice", uint256.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	h := newHTTPRail(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "insufficient funds", http.StatusBadRequest)
	}))

	err := h.Collect(context.Background(), "alice", uint256.NewInt(1))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestHTTPReserve(t *testing.T) {
	h := newHTTPRail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reserve", r.URL.Path)
		json.NewEncoder(w).Encode(reserveResponse{Reserve: "123456789"})
	}))

	reserve, err := h.Reserve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123456789", reserve.Dec())
}
