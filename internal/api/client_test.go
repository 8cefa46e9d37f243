package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-trading-bot/internal/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	var waits []time.Duration
	c := NewClient(srv.URL + "/")
	c.sleep = func(d time.Duration) { waits = append(waits, d) }
	return c, &waits
}

func TestStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(types.TradingCycleState{Symbol: "069500", Iteration: 4})
	})

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "069500", st.Symbol)
	assert.Equal(t, 4, st.Iteration)
}

func TestStatusRetriesServerErrors(t *testing.T) {
	var calls int32
	c, waits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(types.TradingCycleState{Symbol: "069500"})
	})

	_, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestStatusDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusNotFound)
	})

	_, err := c.History(context.Background(), 5)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), calls)
}

func TestRunAndReset(t *testing.T) {
	var busy atomic.Bool
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		switch r.URL.Path {
		case "/api/run":
			_ = json.NewEncoder(w).Encode(types.StepResult{CycleID: "c1", Success: true})
		case "/api/reset":
			if busy.Load() {
				http.Error(w, `{"error":"a trading cycle is in progress"}`, http.StatusConflict)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	})

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c1", res.CycleID)

	require.NoError(t, c.Reset(context.Background()))
	busy.Store(true)
	assert.ErrorIs(t, c.Reset(context.Background()), ErrCycleInFlight)
}
