package engineobs

import (
	"context"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/trace"
	"breakout-trading-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Step(ctx context.Context) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()
	snap := oe.engine.Snapshot()
	logger.InfoSkip(ctx, 1, "Starting trading cycle",
		"symbol", snap.Symbol,
		"iteration", snap.Iteration+1,
		"position", snap.Position.Status,
	)

	result, err := oe.engine.Step(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err,
			"symbol", snap.Symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return result, err
	}

	st := result.State
	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"symbol", st.Symbol,
		"cycle_id", result.CycleID,
		"iteration", st.Iteration,
		"message", result.Message,
		"position", st.Position.Status,
		"total_asset", st.Account.TotalAsset,
		"trading_stopped", st.TradingStopped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (oe *observableEngine) Snapshot() *types.TradingCycleState {
	return oe.engine.Snapshot()
}

func (oe *observableEngine) Reset() error {
	ctx, span := trace.StartSpan(context.Background(), "engine.Reset")
	defer span.End()

	if err := oe.engine.Reset(); err != nil {
		logger.WarnSkip(ctx, 1, "Engine reset refused", "error", err)
		return err
	}
	logger.InfoSkip(ctx, 1, "Engine state reset")
	return nil
}
