// Package risk holds the stateless loss, drawdown and sizing checks. Every
// function takes its inputs explicitly.
package risk

import "fmt"

const (
	ReasonDailyLoss    = "daily loss limit exceeded"
	ReasonMonthlyLoss  = "monthly loss limit exceeded"
	ReasonMaxDrawdown  = "max drawdown exceeded"
	ReasonZeroAsset    = "total asset is zero"
	ReasonPositionSize = "position size exceeded"
)

// Engine evaluates risk rules. It has no fields; it exists so the
// orchestrator can take it as an injected dependency.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// DailyLossExceeded reports dailyPnl/initialCapital <= maxDailyLoss.
// maxDailyLoss is a negative fraction.
func (Engine) DailyLossExceeded(dailyPnl, initialCapital, maxDailyLoss float64) bool {
	return lossExceeded(dailyPnl, initialCapital, maxDailyLoss)
}

func (Engine) MonthlyLossExceeded(monthlyPnl, initialCapital, maxMonthlyLoss float64) bool {
	return lossExceeded(monthlyPnl, initialCapital, maxMonthlyLoss)
}

func lossExceeded(pnl, capital, limit float64) bool {
	if capital == 0 {
		return false
	}
	return pnl/capital <= limit
}

// Drawdown is the fractional decline of current from peak, 0 when peak is 0.
func Drawdown(current, peak float64) float64 {
	if peak == 0 {
		return 0
	}
	return (current - peak) / peak
}

// DrawdownExceeded never reports a breach when peak is 0.
func (Engine) DrawdownExceeded(current, peak, maxDrawdown float64) bool {
	if peak == 0 {
		return false
	}
	return Drawdown(current, peak) <= maxDrawdown
}

// PositionSizeValid rejects a position worth more than maxPositionSize of
// total asset.
func (Engine) PositionSizeValid(positionValue, totalAsset, maxPositionSize float64) (bool, string) {
	if totalAsset == 0 {
		return false, ReasonZeroAsset
	}
	ratio := positionValue / totalAsset
	if ratio > maxPositionSize {
		return false, fmt.Sprintf("%s (%.1f%% > %.1f%%)", ReasonPositionSize, ratio*100, maxPositionSize*100)
	}
	return true, ""
}

// ValidateTradingConditions checks the daily then the monthly limit and
// names the first one breached.
func (e Engine) ValidateTradingConditions(dailyPnl, monthlyPnl, initialCapital, maxDailyLoss, maxMonthlyLoss float64) (bool, string) {
	if e.DailyLossExceeded(dailyPnl, initialCapital, maxDailyLoss) {
		return false, ReasonDailyLoss
	}
	if e.MonthlyLossExceeded(monthlyPnl, initialCapital, maxMonthlyLoss) {
		return false, ReasonMonthlyLoss
	}
	return true, ""
}

// AdjustmentFactor scales position size down as prior-session volatility rises.
func AdjustmentFactor(volatility float64) float64 {
	switch {
	case volatility <= 0.03:
		return 1.0
	case volatility <= 0.05:
		return 0.6
	case volatility <= 0.10:
		return 0.3
	default:
		return 0.1
	}
}

// RiskAdjustedAmount returns the currency amount to commit to a new
// position. With adjustment disabled it is capital * baseRatio.
func (Engine) RiskAdjustedAmount(capital, volatility, baseRatio float64, adjust bool) float64 {
	if !adjust {
		return capital * baseRatio
	}
	return capital * baseRatio * AdjustmentFactor(volatility)
}

// Volatility is the prior session's range relative to its close.
func Volatility(high, low, close float64) float64 {
	if close <= 0 {
		return 0
	}
	return (high - low) / close
}
