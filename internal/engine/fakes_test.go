package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"breakout-trading-bot/internal/risk"
	"breakout-trading-bot/internal/strategy"
	"breakout-trading-bot/internal/types"
)

type fakeMarket struct {
	quote    types.Quote
	bars     []types.DailyBar
	quoteErr error
	barsErr  error
}

func (f *fakeMarket) GetCurrentQuote(context.Context, string) (types.Quote, error) {
	return f.quote, f.quoteErr
}

func (f *fakeMarket) GetDailyBars(_ context.Context, _ string, count int) ([]types.DailyBar, error) {
	if f.barsErr != nil {
		return nil, f.barsErr
	}
	if len(f.bars) > count {
		return f.bars[:count], nil
	}
	return f.bars, nil
}

type orderReply struct {
	resp types.OrderResp
	err  error
}

// fakeOrders replays scripted replies in order, then fills everything.
type fakeOrders struct {
	mu      sync.Mutex
	replies []orderReply
	reqs    []types.OrderReq
}

func (f *fakeOrders) PlaceOrder(_ context.Context, req types.OrderReq) (types.OrderResp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if len(f.replies) > 0 {
		r := f.replies[0]
		f.replies = f.replies[1:]
		return r.resp, r.err
	}
	return types.OrderResp{OK: true, OrderID: "ORD-" + string(req.Side), Timestamp: time.Now()}, nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type fakeAccount struct {
	balances []float64
	err      error
	calls    int
}

func (f *fakeAccount) GetBalance(context.Context, types.Mode) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.balances) == 0 {
		return 1_000_000, nil
	}
	b := f.balances[0]
	if len(f.balances) > 1 {
		f.balances = f.balances[1:]
	}
	return b, nil
}

type recordedSleeps struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *recordedSleeps) sleep(d time.Duration) {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
}

func (r *recordedSleeps) total() time.Duration {
	var sum time.Duration
	for _, d := range r.sleeps {
		sum += d
	}
	return sum
}

type harness struct {
	eng     *Engine
	market  *fakeMarket
	orders  *fakeOrders
	account *fakeAccount
	sleeps  *recordedSleeps
	now     time.Time
}

var kst = time.FixedZone("KST", 9*3600)

func testParams() Params {
	return Params{
		Symbol:  "069500",
		Mode:    types.ModePaper,
		Capital: 1_000_000,
		Strategy: types.StrategyParams{
			K:               0.5,
			StopLossPct:     -0.03,
			TakeProfitPct:   0.05,
			TrailingStopPct: 0.02,
		},
		Limits: types.RiskLimits{
			PositionSize:    0.10,
			MaxDailyLoss:    -0.05,
			MaxMonthlyLoss:  -0.15,
			MaxDrawdown:     -0.20,
			MaxPositionSize: 0.10,
		},
	}
}

// scenarioQuote is today's open 29,500 with the price just above the
// 30,250 target.
func scenarioQuote(price float64) types.Quote {
	return types.Quote{Name: "KODEX 200", Price: price, Open: 29_500, High: price, Low: 29_400, Volume: 1_200_000}
}

func scenarioBars() []types.DailyBar {
	return []types.DailyBar{
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, kst), Open: 29_500, High: 30_300, Low: 29_400, Close: 30_260, Volume: 1_200_000},
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, kst), Open: 29_800, High: 30_500, Low: 29_000, Close: 30_000, Volume: 900_000},
	}
}

func newHarness(t *testing.T, mutate func(*Params)) *harness {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	p := testParams()
	if mutate != nil {
		mutate(&p)
	}
	h := &harness{
		market:  &fakeMarket{quote: scenarioQuote(30_260), bars: scenarioBars()},
		orders:  &fakeOrders{},
		account: &fakeAccount{},
		sleeps:  &recordedSleeps{},
		now:     time.Date(2024, 3, 4, 10, 0, 0, 0, kst),
	}
	session := strategy.DefaultSession()
	session.Location = kst
	n := 0
	h.eng = NewWithComponents(p, h.market, h.account,
		NewOrderExecutor(h.orders, DefaultExecutorConfig(), h.sleeps.sleep),
		strategy.New(session),
		risk.New(),
		WithClock(func() time.Time { return h.now }),
		WithIDs(func() string { n++; return fmt.Sprintf("cycle-%d", n) }),
	)
	return h
}

// mutateState edits the engine's live state between cycles.
func (h *harness) mutateState(fn func(*types.TradingCycleState)) {
	h.eng.mu.Lock()
	defer h.eng.mu.Unlock()
	fn(h.eng.state)
}
