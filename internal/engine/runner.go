package engine

import (
	"context"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/types"
)

// RunContinuous steps eng every interval until trading stops, a cycle
// aborts, or ctx is cancelled. onCycle sees every result, including the
// aborted one. A halted run returns nil.
func RunContinuous(ctx context.Context, eng interfaces.Engine, interval time.Duration, onCycle func(*types.StepResult)) error {
	for {
		res, err := eng.Step(ctx)
		if onCycle != nil && res != nil {
			onCycle(res)
		}
		if err != nil {
			return err
		}
		if res.State != nil && res.State.TradingStopped {
			logger.Warn(ctx, "Trading stopped, leaving continuous loop", "reason", res.StopReason)
			return nil
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
