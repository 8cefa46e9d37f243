package brokerobs

import (
	"context"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/trace"
	"breakout-trading-bot/internal/types"
)

// observableBroker wraps a Broker with logging and tracing
type observableBroker struct {
	broker interfaces.Broker
}

var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{broker: broker}
}

func (ob *observableBroker) GetCurrentQuote(ctx context.Context, symbol string) (types.Quote, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetCurrentQuote")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching quote", "symbol", symbol)

	q, err := ob.broker.GetCurrentQuote(ctx, symbol)
	if err != nil {
		trace.RecordError(ctx, err)
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch quote", err, "symbol", symbol)
		return types.Quote{}, err
	}

	logger.DebugSkip(ctx, 1, "Quote fetched", "symbol", symbol, "price", q.Price, "open", q.Open)
	return q, nil
}

func (ob *observableBroker) GetDailyBars(ctx context.Context, symbol string, count int) ([]types.DailyBar, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetDailyBars")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching daily bars", "symbol", symbol, "count", count)

	bars, err := ob.broker.GetDailyBars(ctx, symbol, count)
	if err != nil {
		trace.RecordError(ctx, err)
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch daily bars", err, "symbol", symbol, "count", count)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Daily bars fetched", "symbol", symbol, "count", len(bars))
	return bars, nil
}

// PlaceOrder places an order with observability
func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Qty,
		"price", req.Price,
		"mode", req.Mode,
	)

	resp, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		trace.RecordError(ctx, err)
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Qty,
		)
		return types.OrderResp{}, err
	}

	if !resp.OK {
		logger.WarnSkip(ctx, 1, "Order not accepted",
			"symbol", req.Symbol,
			"error_code", resp.ErrorCode,
			"error_message", resp.ErrorMessage,
		)
		return resp, nil
	}
	logger.InfoSkip(ctx, 1, "Order accepted", "symbol", req.Symbol, "order_id", resp.OrderID)
	return resp, nil
}

func (ob *observableBroker) GetBalance(ctx context.Context, mode types.Mode) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetBalance")
	defer span.End()

	total, err := ob.broker.GetBalance(ctx, mode)
	if err != nil {
		trace.RecordError(ctx, err)
		logger.ErrorWithErrSkip(ctx, 1, "Failed to query balance", err, "mode", mode)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Balance queried", "mode", mode, "total_asset", total)
	return total, nil
}
