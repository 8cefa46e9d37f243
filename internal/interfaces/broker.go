package interfaces

import (
	"context"

	"breakout-trading-bot/internal/types"
)

// MarketDataGateway supplies the current quote and recent daily sessions.
// Implementations return an error wrapping types.ErrGatewayUnavailable when
// the session or credentials are not established.
type MarketDataGateway interface {
	GetCurrentQuote(ctx context.Context, symbol string) (types.Quote, error)
	// GetDailyBars returns up to count completed sessions, most recent first.
	GetDailyBars(ctx context.Context, symbol string, count int) ([]types.DailyBar, error)
}

type OrderGateway interface {
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}

// AccountGateway reports the authoritative total evaluated amount.
type AccountGateway interface {
	GetBalance(ctx context.Context, mode types.Mode) (float64, error)
}

// Broker is the full set of gateways a trading engine needs.
type Broker interface {
	MarketDataGateway
	OrderGateway
	AccountGateway
}
