package engine

import (
	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/risk"
	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/strategy"
	"breakout-trading-bot/internal/ticksize"
	"breakout-trading-bot/internal/types"
)

// ParamsFromConfig maps validated configuration onto run parameters.
func ParamsFromConfig(cfg *store.Config) Params {
	return Params{
		Symbol:  cfg.Symbol,
		Mode:    cfg.ParsedMode(),
		Capital: cfg.Trading.Capital,
		Strategy: types.StrategyParams{
			K:               cfg.VolatilityBreakout.KValue,
			StopLossPct:     cfg.Risk.StopLoss,
			TakeProfitPct:   cfg.Risk.TakeProfit,
			TrailingStop:    cfg.Risk.TrailingStop.Enabled,
			TrailingStopPct: cfg.Risk.TrailingStop.Ratio,
		},
		Limits: types.RiskLimits{
			PositionSize:    cfg.Trading.PositionSize,
			MaxDailyLoss:    cfg.Risk.MaxDailyLoss,
			MaxMonthlyLoss:  cfg.Risk.MaxMonthlyLoss,
			MaxDrawdown:     cfg.Risk.MaxDrawdown,
			MaxPositionSize: cfg.Risk.MaxPositionSize,
		},
		MinVolume:            cfg.VolatilityBreakout.MinVolume,
		VolatilityAdjustment: cfg.Risk.VolatilityAdjustment,
	}
}

func ExecutorConfigFromConfig(cfg *store.Config) ExecutorConfig {
	return ExecutorConfig{
		MaxAttempts:       cfg.Execution.MaxAttempts,
		BaseBackoff:       cfg.Execution.BaseBackoff,
		BuyOffset:         cfg.Execution.BuyOffset,
		SellOffset:        cfg.Execution.SellOffset,
		RateLimitCodes:    cfg.Execution.RateLimitCodes,
		RateLimitMessages: cfg.Execution.RateLimitMessages,
		Ticks:             ticksize.ForExchange(cfg.Exchange),
	}
}

// New builds an engine for cfg.Symbol trading through brk.
func New(cfg *store.Config, brk interfaces.Broker, sleep Sleeper, opts ...Option) *Engine {
	return NewWithComponents(
		ParamsFromConfig(cfg),
		brk,
		brk,
		NewOrderExecutor(brk, ExecutorConfigFromConfig(cfg), sleep),
		strategy.New(strategy.SessionFromConfig(cfg)),
		risk.New(),
		opts...,
	)
}
