package interfaces

import (
	"context"

	"breakout-trading-bot/internal/types"
)

type Engine interface {
	// Step runs one decision cycle. A non-nil error means the cycle aborted;
	// the result is still returned so callers can record it.
	Step(ctx context.Context) (*types.StepResult, error)
	Snapshot() *types.TradingCycleState
	Reset() error
}

// Publisher fans a finished cycle record out to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, res *types.StepResult) error
}
