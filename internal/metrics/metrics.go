package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"breakout-trading-bot/internal/types"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_orders_submitted_total",
			Help: "Order submissions by side and final outcome (filled, rejected, rate_limited, failed).",
		},
		[]string{"side", "outcome"},
	)

	OrderAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "breakout_order_attempts",
			Help:    "Gateway calls needed per order submission.",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	OrderRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_order_retries_total",
			Help: "Backoff retries by classification (rate_limit, transport).",
		},
		[]string{"class"},
	)

	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_cycles_total",
			Help: "Decision cycles by result (ok, halted, aborted).",
		},
		[]string{"symbol", "result"},
	)

	TotalAsset = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breakout_total_asset",
			Help: "Authoritative total asset reported after the last cycle.",
		},
		[]string{"symbol"},
	)

	DailyPnLPct = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breakout_daily_pnl_pct",
			Help: "Daily P&L as a fraction of initial capital.",
		},
		[]string{"symbol"},
	)

	Drawdown = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breakout_drawdown",
			Help: "Current drawdown from peak asset (<= 0).",
		},
		[]string{"symbol"},
	)

	PositionOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breakout_position_open",
			Help: "1 while a position is held, 0 when idle.",
		},
		[]string{"symbol"},
	)

	TradingStopped = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breakout_trading_stopped",
			Help: "1 once a risk limit has halted trading for the run.",
		},
		[]string{"symbol"},
	)

	WinRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breakout_win_rate",
			Help: "Winning closed trades over all closed trades (0 with no trades).",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersSubmitted, OrderAttempts, OrderRetries,
		Cycles, TotalAsset, DailyPnLPct, Drawdown, PositionOpen, TradingStopped, WinRate,
	)
}

// Publisher records each finished cycle into the gauges above.
type Publisher struct{}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (Publisher) Publish(_ context.Context, res *types.StepResult) error {
	if res == nil || res.State == nil {
		return nil
	}
	s := res.State
	result := "ok"
	switch {
	case !res.Success:
		result = "aborted"
	case s.TradingStopped:
		result = "halted"
	}
	Cycles.WithLabelValues(s.Symbol, result).Inc()
	TotalAsset.WithLabelValues(s.Symbol).Set(s.Account.TotalAsset)
	DailyPnLPct.WithLabelValues(s.Symbol).Set(s.PnL.DailyPct)
	Drawdown.WithLabelValues(s.Symbol).Set(s.Account.Drawdown)
	PositionOpen.WithLabelValues(s.Symbol).Set(boolGauge(s.Position.IsOpen()))
	TradingStopped.WithLabelValues(s.Symbol).Set(boolGauge(s.TradingStopped))
	WinRate.WithLabelValues(s.Symbol).Set(s.WinRate())
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
