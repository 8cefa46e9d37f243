package telemetry

import (
	"context"
	"errors"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/types"
)

// Multi publishes to every sink. A failing sink is logged and does not
// stop the others.
type Multi []interfaces.Publisher

func (m Multi) Publish(ctx context.Context, res *types.StepResult) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, res); err != nil {
			logger.ErrorWithErr(ctx, "Publishing cycle failed", err, "cycle_id", res.CycleID)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
