package engine

import (
	"context"

	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/risk"
	"breakout-trading-bot/internal/trace"
	"breakout-trading-bot/internal/tradelog"
	"breakout-trading-bot/internal/types"
)

// riskCheck gates the pending signals. Order:
//
//  1. trading already stopped: clear signals, end the cycle
//  2. daily then monthly loss: stop trading
//  3. drawdown from peak: stop trading
//  4. position size of a pending buy: cancel the buy only
func (e *Engine) riskCheck(ctx context.Context, st *types.TradingCycleState, cycleID string) riskUpdate {
	ctx, span := trace.StartSpan(ctx, "engine.riskCheck")
	defer span.End()

	u := e.evaluateRisk(ctx, st)
	e.recordSignal(st, cycleID, u)

	logger.Info(ctx, "Risk check completed",
		"stage", "risk_check",
		"symbol", st.Symbol,
		"iteration", st.Iteration,
		"halt", u.halt,
		"reason", u.reason,
		"buy_cancelled", u.clearBuy,
	)
	return u
}

func (e *Engine) evaluateRisk(ctx context.Context, st *types.TradingCycleState) riskUpdate {
	if st.TradingStopped {
		return riskUpdate{halt: true, reason: st.StopReason}
	}

	lim := st.Limits
	if ok, reason := e.risk.ValidateTradingConditions(st.PnL.Daily, st.PnL.Monthly, st.Account.InitialCapital, lim.MaxDailyLoss, lim.MaxMonthlyLoss); !ok {
		logger.Risk(ctx, st.Symbol, "loss_limit",
			"reason", reason,
			"daily_pnl", st.PnL.Daily,
			"monthly_pnl", st.PnL.Monthly,
			"initial_capital", st.Account.InitialCapital,
		)
		return riskUpdate{halt: true, reason: reason}
	}

	if e.risk.DrawdownExceeded(st.Account.TotalAsset, st.Account.PeakAsset, lim.MaxDrawdown) {
		logger.Risk(ctx, st.Symbol, "max_drawdown",
			"total_asset", st.Account.TotalAsset,
			"peak_asset", st.Account.PeakAsset,
			"drawdown", risk.Drawdown(st.Account.TotalAsset, st.Account.PeakAsset),
			"limit", lim.MaxDrawdown,
		)
		return riskUpdate{halt: true, reason: risk.ReasonMaxDrawdown}
	}

	if st.ShouldBuy {
		value := st.CurrentPrice * float64(st.OrderQty)
		if ok, reason := e.risk.PositionSizeValid(value, st.Account.TotalAsset, lim.MaxPositionSize); !ok {
			logger.Risk(ctx, st.Symbol, "position_size",
				"reason", reason,
				"position_value", value,
				"total_asset", st.Account.TotalAsset,
			)
			return riskUpdate{clearBuy: true, blocked: reason}
		}
	}
	return riskUpdate{}
}

func (e *Engine) recordSignal(st *types.TradingCycleState, cycleID string, u riskUpdate) {
	if !st.ShouldBuy && !st.ShouldSell {
		return
	}
	entry := tradelog.SignalEntry{
		At:       st.Timestamp,
		CycleID:  cycleID,
		Symbol:   st.Symbol,
		Price:    st.CurrentPrice,
		Target:   st.Params.TargetPrice,
		Qty:      st.OrderQty,
		Approved: !u.halt && !u.clearBuy,
	}
	if st.ShouldBuy {
		entry.Side, entry.Reason = string(types.SideBuy), st.BuyReason
	} else {
		entry.Side, entry.Reason = string(types.SideSell), st.SellReason
	}
	switch {
	case u.halt:
		entry.Blocked = u.reason
	case u.clearBuy:
		entry.Blocked = u.blocked
	}
	_ = tradelog.AppendSignal(entry)
}
