package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/ticksize"
	"breakout-trading-bot/internal/types"
)

func newTestExecutor(orders *fakeOrders) (*OrderExecutor, *recordedSleeps) {
	sleeps := &recordedSleeps{}
	return NewOrderExecutor(orders, DefaultExecutorConfig(), sleeps.sleep), sleeps
}

func rateLimited() orderReply {
	return orderReply{resp: types.OrderResp{ErrorCode: "EGW00201", ErrorMessage: "requests per second exceeded"}}
}

func TestSubmitRetriesRateLimitThenSucceeds(t *testing.T) {
	orders := &fakeOrders{replies: []orderReply{
		rateLimited(),
		rateLimited(),
		{resp: types.OrderResp{OK: true, OrderID: "0000117057"}},
	}}
	x, sleeps := newTestExecutor(orders)

	res, err := x.Submit(context.Background(), types.ModePaper, types.SideBuy, "069500", 3, 30_300)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "0000117057", res.OrderID)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.sleeps)
	assert.Equal(t, 3*time.Second, sleeps.total())
	assert.Equal(t, 3, orders.count())
}

func TestSubmitRateLimitExhausted(t *testing.T) {
	orders := &fakeOrders{replies: []orderReply{rateLimited(), rateLimited(), rateLimited()}}
	x, sleeps := newTestExecutor(orders)

	res, err := x.Submit(context.Background(), types.ModePaper, types.SideSell, "069500", 3, 28_900)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.RateLimited)
	assert.Contains(t, res.Message, "rate limit exceeded after 3 retries")
	assert.Len(t, sleeps.sleeps, 2, "no wait after the final attempt")
}

func TestSubmitRateLimitByMessage(t *testing.T) {
	orders := &fakeOrders{replies: []orderReply{
		{resp: types.OrderResp{ErrorCode: "X1", ErrorMessage: "Too Many Requests"}},
		{resp: types.OrderResp{OK: true, OrderID: "A1"}},
	}}
	x, sleeps := newTestExecutor(orders)

	res, err := x.Submit(context.Background(), types.ModeLive, types.SideBuy, "069500", 1, 10_000)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []time.Duration{time.Second}, sleeps.sleeps)
}

func TestSubmitBusinessRejectionIsNotRetried(t *testing.T) {
	orders := &fakeOrders{replies: []orderReply{
		{resp: types.OrderResp{ErrorCode: "APBK0013", ErrorMessage: "insufficient orderable amount"}},
	}}
	x, sleeps := newTestExecutor(orders)

	res, err := x.Submit(context.Background(), types.ModePaper, types.SideBuy, "069500", 3, 30_300)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.RateLimited)
	assert.Equal(t, "order rejected: [APBK0013] insufficient orderable amount", res.Message)
	assert.Equal(t, 1, orders.count())
	assert.Empty(t, sleeps.sleeps)
}

func TestSubmitTransportErrorIsRetried(t *testing.T) {
	orders := &fakeOrders{replies: []orderReply{
		{err: errors.New("dial tcp: i/o timeout")},
		{resp: types.OrderResp{OK: true, OrderID: "B2"}},
	}}
	x, sleeps := newTestExecutor(orders)

	res, err := x.Submit(context.Background(), types.ModePaper, types.SideBuy, "069500", 3, 30_300)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []time.Duration{time.Second}, sleeps.sleeps)
}

func TestSubmitUnavailableGateway(t *testing.T) {
	t.Run("error from gateway", func(t *testing.T) {
		orders := &fakeOrders{replies: []orderReply{{err: fmt.Errorf("token expired: %w", types.ErrGatewayUnavailable)}}}
		x, sleeps := newTestExecutor(orders)

		_, err := x.Submit(context.Background(), types.ModeLive, types.SideBuy, "069500", 3, 30_300)
		assert.ErrorIs(t, err, types.ErrGatewayUnavailable)
		assert.Equal(t, 1, orders.count())
		assert.Empty(t, sleeps.sleeps)
	})

	t.Run("no gateway", func(t *testing.T) {
		x := NewOrderExecutor(nil, DefaultExecutorConfig(), func(time.Duration) {})
		_, err := x.Submit(context.Background(), types.ModeLive, types.SideBuy, "069500", 3, 30_300)
		assert.ErrorIs(t, err, types.ErrGatewayUnavailable)
	})
}

func TestSubmitSendsLimitOrder(t *testing.T) {
	orders := &fakeOrders{}
	x, _ := newTestExecutor(orders)

	_, err := x.Submit(context.Background(), types.ModeLive, types.SideSell, "069500", 7, 28_900)
	require.NoError(t, err)
	require.Len(t, orders.reqs, 1)
	assert.Equal(t, types.OrderReq{
		Mode:   types.ModeLive,
		Side:   types.SideSell,
		Symbol: "069500",
		Qty:    7,
		Price:  28_900,
		Kind:   types.OrderKindLimit,
		Tag:    "BREAKOUT",
	}, orders.reqs[0])
}

func TestLimitPrice(t *testing.T) {
	x, _ := newTestExecutor(&fakeOrders{})

	tests := []struct {
		name    string
		side    types.Side
		current float64
		want    float64
	}{
		{"buy rounds down to 50 tick", types.SideBuy, 30_260, 30_300},
		{"sell rounds down to 50 tick", types.SideSell, 29_000, 28_900},
		{"buy small price", types.SideBuy, 1_000, 1_002},
		{"sell large price", types.SideSell, 600_000, 598_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, x.LimitPrice(tt.side, tt.current), 1e-9)
		})
	}
}

func TestLimitPriceOnPaiseTicks(t *testing.T) {
	cfg := DefaultExecutorConfig()
	cfg.Ticks = ticksize.NSE
	x := NewOrderExecutor(&fakeOrders{}, cfg, func(time.Duration) {})

	// 120.35 * 1.002 = 120.5907 -> 120.55
	assert.InDelta(t, 120.55, x.LimitPrice(types.SideBuy, 120.35), 1e-9)
	// 120.35 * 0.998 = 120.1093 -> 120.10
	assert.InDelta(t, 120.10, x.LimitPrice(types.SideSell, 120.35), 1e-9)
}

func TestLimitPriceNeverCrossesAgainstTheFill(t *testing.T) {
	tests := []struct {
		name     string
		ticks    ticksize.Table
		noOffset bool
		side     types.Side
		current  float64
		want     float64
	}{
		// Truncating 120.59 on a one-won tick would give 120, below market.
		{"buy off tick coarse table", ticksize.KRX, false, types.SideBuy, 120.35, 121},
		{"sell off tick coarse table", ticksize.KRX, false, types.SideSell, 120.35, 120},
		{"buy with no offset", ticksize.NSE, true, types.SideBuy, 120.37, 120.40},
		{"sell with no offset", ticksize.NSE, true, types.SideSell, 120.37, 120.35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultExecutorConfig()
			cfg.Ticks = tt.ticks
			if tt.noOffset {
				cfg.BuyOffset, cfg.SellOffset = 0, 0
			}
			x := NewOrderExecutor(&fakeOrders{}, cfg, func(time.Duration) {})

			got := x.LimitPrice(tt.side, tt.current)
			assert.InDelta(t, tt.want, got, 1e-9)
			if tt.side == types.SideBuy {
				assert.GreaterOrEqual(t, got, tt.current)
			} else {
				assert.LessOrEqual(t, got, tt.current)
			}
		})
	}
}

func TestBackoffDoubles(t *testing.T) {
	x, _ := newTestExecutor(&fakeOrders{})
	assert.Equal(t, time.Second, x.Backoff(1))
	assert.Equal(t, 2*time.Second, x.Backoff(2))
	assert.Equal(t, 4*time.Second, x.Backoff(3))
}

func TestExecutorTicksFollowExchange(t *testing.T) {
	cfg := store.Default()
	assert.Equal(t, "NSE", ExecutorConfigFromConfig(cfg).Ticks.Name)

	cfg.Exchange = "KRX"
	assert.Equal(t, "KRX", ExecutorConfigFromConfig(cfg).Ticks.Name)
}
