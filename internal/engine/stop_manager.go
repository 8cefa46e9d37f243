package engine

import (
	"breakout-trading-bot/internal/strategy"
	"breakout-trading-bot/internal/types"
)

// exitSignal checks the fixed exits (stop-loss, take-profit, session close)
// and then, when enabled, the trailing stop against the high watermark.
func (e *Engine) exitSignal(st *types.TradingCycleState) (bool, string) {
	op := st.Position.Open
	if op == nil {
		return false, ""
	}
	if ok, reason := e.strat.ShouldExit(op.EntryPrice, st.CurrentPrice, st.Params.StopLossPct, st.Params.TakeProfitPct, st.Timestamp); ok {
		return true, reason
	}
	if !st.Params.TrailingStop {
		return false, ""
	}
	high := op.HighWatermark
	if st.CurrentPrice > high {
		high = st.CurrentPrice
	}
	return strategy.TrailingStopHit(high, st.CurrentPrice, st.Params.TrailingStopPct)
}
