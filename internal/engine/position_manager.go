package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/trace"
	"breakout-trading-bot/internal/tradelog"
	"breakout-trading-bot/internal/types"
)

const (
	orderFilled      = "FILLED"
	orderRejected    = "REJECTED"
	orderRateLimited = "RATE_LIMITED"
	orderSkipped     = "SKIPPED"
)

// executeOrder submits the surviving signal and books the fill. Failures
// clear the signal and leave the position untouched; only an unavailable
// gateway is returned as an error.
func (e *Engine) executeOrder(ctx context.Context, st *types.TradingCycleState, cycleID string) (executionUpdate, error) {
	ctx, span := trace.StartSpan(ctx, "engine.executeOrder")
	defer span.End()

	switch {
	case st.ShouldBuy && st.Position.Status == types.StatusIdle:
		return e.executeBuy(ctx, st, cycleID)
	case st.ShouldSell && st.Position.IsOpen():
		return e.executeSell(ctx, st, cycleID)
	}
	logger.Warn(ctx, "Signal does not match position state, dropping it",
		"stage", "execute_order", "symbol", st.Symbol,
		"position", st.Position.Status, "should_buy", st.ShouldBuy, "should_sell", st.ShouldSell)
	return executionUpdate{clearBuy: true, clearSell: true}, nil
}

func (e *Engine) executeBuy(ctx context.Context, st *types.TradingCycleState, cycleID string) (executionUpdate, error) {
	qty := st.OrderQty
	if qty <= 0 {
		msg := fmt.Sprintf("buy skipped: order quantity %d", qty)
		logger.Warn(ctx, msg, "stage", "execute_order", "symbol", st.Symbol, "cash", st.Account.Cash)
		return executionUpdate{clearBuy: true, order: types.OrderTrace{Status: orderSkipped, Side: types.SideBuy, Message: msg}}, nil
	}

	limit := e.exec.LimitPrice(types.SideBuy, st.CurrentPrice)
	res, err := e.exec.Submit(ctx, st.Mode, types.SideBuy, st.Symbol, qty, limit)
	if err != nil {
		return executionUpdate{}, err
	}
	if !res.Success {
		return e.failed(ctx, st, types.SideBuy, res), nil
	}

	pos, err := st.Position.Enter(st.CurrentPrice, qty, st.Timestamp)
	if err != nil {
		// Unreachable with the guards above; treat as an absorbed execution error.
		logger.ErrorWithErr(ctx, "Could not open position after fill", err, "symbol", st.Symbol)
		return executionUpdate{clearBuy: true, clearSell: true}, nil
	}

	cost := st.CurrentPrice * float64(qty)
	logger.Trade(ctx, st.Symbol, string(types.SideBuy), qty, st.CurrentPrice, res.OrderID,
		"limit_price", limit, "attempts", res.Attempts, "reason", st.BuyReason)
	_ = tradelog.Append(tradelog.Entry{
		At:      st.Timestamp,
		CycleID: cycleID,
		Mode:    string(st.Mode),
		Symbol:  st.Symbol,
		Side:    string(types.SideBuy),
		Qty:     qty,
		Price:   st.CurrentPrice,
		OrderID: res.OrderID,
		Reason:  st.BuyReason,
	})

	return executionUpdate{
		filled:   true,
		position: pos,
		cash:     st.Account.Cash - cost,
		clearBuy: true,
		order:    filledTrace(st, types.SideBuy, qty, res),
	}, nil
}

func (e *Engine) executeSell(ctx context.Context, st *types.TradingCycleState, cycleID string) (executionUpdate, error) {
	qty := st.Position.Qty()
	limit := e.exec.LimitPrice(types.SideSell, st.CurrentPrice)
	res, err := e.exec.Submit(ctx, st.Mode, types.SideSell, st.Symbol, qty, limit)
	if err != nil {
		return executionUpdate{}, err
	}
	if !res.Success {
		return e.failed(ctx, st, types.SideSell, res), nil
	}

	pos, leg, err := st.Position.Exit()
	if err != nil {
		logger.ErrorWithErr(ctx, "Could not close position after fill", err, "symbol", st.Symbol)
		return executionUpdate{clearBuy: true, clearSell: true}, nil
	}

	pnl := (st.CurrentPrice - leg.EntryPrice) * float64(leg.Qty)
	pnlPct := (st.CurrentPrice - leg.EntryPrice) / leg.EntryPrice
	logger.Trade(ctx, st.Symbol, string(types.SideSell), qty, st.CurrentPrice, res.OrderID,
		"limit_price", limit, "attempts", res.Attempts, "reason", st.SellReason,
		"realized_pnl", pnl, "realized_pnl_pct", pnlPct)
	_ = tradelog.Append(tradelog.Entry{
		At:      st.Timestamp,
		CycleID: cycleID,
		Mode:    string(st.Mode),
		Symbol:  st.Symbol,
		Side:    string(types.SideSell),
		Qty:     qty,
		Price:   st.CurrentPrice,
		OrderID: res.OrderID,
		Reason:  st.SellReason,
		PnL:     pnl,
		PnLPct:  pnlPct,
	})

	return executionUpdate{
		filled:    true,
		position:  pos,
		cash:      st.Account.Cash + st.CurrentPrice*float64(leg.Qty),
		closed:    &closedTrade{pnl: pnl, pnlPct: pnlPct},
		clearSell: true,
		order:     filledTrace(st, types.SideSell, qty, res),
	}, nil
}

func (e *Engine) failed(ctx context.Context, st *types.TradingCycleState, side types.Side, res OrderResult) executionUpdate {
	status := orderRejected
	if res.RateLimited {
		status = orderRateLimited
	}
	logger.ErrorWithErr(ctx, "Order not filled", errors.New(res.Message),
		"stage", "execute_order",
		"symbol", st.Symbol,
		"side", side,
		"attempts", res.Attempts,
	)
	return executionUpdate{
		clearBuy:  side == types.SideBuy,
		clearSell: side == types.SideSell,
		order:     types.OrderTrace{Status: status, Side: side, Message: res.Message},
	}
}

// filledTrace records the fill at the cycle's current price, which is what
// the ledger books.
func filledTrace(st *types.TradingCycleState, side types.Side, qty int, res OrderResult) types.OrderTrace {
	return types.OrderTrace{
		ID:      res.OrderID,
		Status:  orderFilled,
		Side:    side,
		Qty:     qty,
		Price:   st.CurrentPrice,
		At:      st.Timestamp.Format(time.RFC3339),
		Message: res.Message,
	}
}
