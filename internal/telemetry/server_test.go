package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-trading-bot/internal/engine"
	"breakout-trading-bot/internal/types"
)

type fakeEngine struct {
	mu       sync.Mutex
	state    *types.TradingCycleState
	stepErr  error
	resetErr error
	steps    int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{state: types.NewTradingCycleState("069500", types.ModePaper, 1_000_000, types.StrategyParams{K: 0.5}, types.RiskLimits{})}
}

func (f *fakeEngine) Step(context.Context) (*types.StepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps++
	f.state.Iteration = f.steps
	res := &types.StepResult{CycleID: "c1", Success: f.stepErr == nil, Message: "no signal", State: f.state.Clone()}
	return res, f.stepErr
}

func (f *fakeEngine) Snapshot() *types.TradingCycleState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

func (f *fakeEngine) Reset() error { return f.resetErr }

type recorder struct {
	mu   sync.Mutex
	seen []*types.StepResult
	err  error
}

func (r *recorder) Publish(_ context.Context, res *types.StepResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, res)
	return r.err
}

type fakeHistory struct {
	cycles []*types.StepResult
	limit  int
}

func (h *fakeHistory) RecentCycles(_ context.Context, limit int) ([]*types.StepResult, error) {
	h.limit = limit
	return h.cycles, nil
}

func do(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestStatus(t *testing.T) {
	srv := NewServer(newFakeEngine(), nil, nil, nil)

	rr := do(t, srv, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var st types.TradingCycleState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.Equal(t, "069500", st.Symbol)
	assert.Equal(t, types.StatusIdle, st.Position.Status)
}

func TestRunPublishes(t *testing.T) {
	eng := newFakeEngine()
	pub := &recorder{}
	srv := NewServer(eng, pub, nil, nil)

	rr := do(t, srv, http.MethodPost, "/api/run")
	require.Equal(t, http.StatusOK, rr.Code)
	var res types.StepResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.State.Iteration)
	assert.Len(t, pub.seen, 1)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/api/run").Code)
}

func TestRunFailureStillPublishes(t *testing.T) {
	eng := newFakeEngine()
	eng.stepErr = errors.New("fetch current quote failed")
	pub := &recorder{}
	srv := NewServer(eng, pub, nil, nil)

	rr := do(t, srv, http.MethodPost, "/api/run")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "fetch current quote failed")
	assert.Len(t, pub.seen, 1)
}

func TestReset(t *testing.T) {
	eng := newFakeEngine()
	srv := NewServer(eng, nil, nil, nil)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/reset").Code)

	eng.resetErr = engine.ErrCycleInFlight
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/api/reset").Code)

	eng.resetErr = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, do(t, srv, http.MethodPost, "/api/reset").Code)
}

func TestHistory(t *testing.T) {
	srv := NewServer(newFakeEngine(), nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/history").Code)

	h := &fakeHistory{cycles: []*types.StepResult{{CycleID: "c2"}, {CycleID: "c1"}}}
	srv = NewServer(newFakeEngine(), nil, nil, h)

	rr := do(t, srv, http.MethodGet, "/api/history?limit=2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, h.limit)
	var got []types.StepResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].CycleID)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/history?limit=x").Code)

	h.cycles = nil
	rr = do(t, srv, http.MethodGet, "/api/history")
	assert.Equal(t, 50, h.limit)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(newFakeEngine(), nil, nil, nil)
	rr := do(t, srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
