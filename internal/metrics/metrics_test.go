package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-trading-bot/internal/types"
)

func TestPublisherSetsGauges(t *testing.T) {
	st := types.NewTradingCycleState("TEST1", types.ModePaper, 1_000_000, types.StrategyParams{K: 0.5}, types.RiskLimits{})
	st.Account.TotalAsset = 990_000
	st.Account.Drawdown = -0.01
	st.TradingStopped = true

	require.NoError(t, NewPublisher().Publish(context.Background(), &types.StepResult{Success: true, State: st}))

	assert.InDelta(t, 990_000, testutil.ToFloat64(TotalAsset.WithLabelValues("TEST1")), 1e-9)
	assert.InDelta(t, -0.01, testutil.ToFloat64(Drawdown.WithLabelValues("TEST1")), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(TradingStopped.WithLabelValues("TEST1")))
	assert.Equal(t, 0.0, testutil.ToFloat64(WinRate.WithLabelValues("TEST1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(Cycles.WithLabelValues("TEST1", "halted")))
}

func TestPublisherIgnoresEmptyResult(t *testing.T) {
	assert.NoError(t, NewPublisher().Publish(context.Background(), nil))
	assert.NoError(t, NewPublisher().Publish(context.Background(), &types.StepResult{}))
}
