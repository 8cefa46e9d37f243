package types

import (
	"errors"
	"fmt"
	"time"
)

// OHLCV holds one session's prices and traded volume.
type OHLCV struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type StrategyParams struct {
	K               float64 `json:"k_value"`
	TargetPrice     float64 `json:"target_price"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	TrailingStop    bool    `json:"trailing_stop"`
	TrailingStopPct float64 `json:"trailing_stop_pct"`
}

type PnL struct {
	Unrealized    float64 `json:"unrealized_pnl"`
	UnrealizedPct float64 `json:"unrealized_pnl_pct"`
	Realized      float64 `json:"realized_pnl"`
	RealizedPct   float64 `json:"realized_pnl_pct"`
	Daily         float64 `json:"daily_pnl"`
	DailyPct      float64 `json:"daily_pnl_pct"`
	Monthly       float64 `json:"monthly_pnl"`
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
}

type Account struct {
	Cash           float64 `json:"cash_balance"`
	TotalAsset     float64 `json:"total_asset"`
	InitialCapital float64 `json:"initial_capital"`
	PeakAsset      float64 `json:"peak_asset"`
	Drawdown       float64 `json:"drawdown"`
}

// RiskLimits are fixed for the lifetime of a run.
type RiskLimits struct {
	PositionSize    float64 `json:"position_size"`
	MaxDailyLoss    float64 `json:"max_daily_loss"`
	MaxMonthlyLoss  float64 `json:"max_monthly_loss"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	MaxPositionSize float64 `json:"max_position_size"`
}

type OrderTrace struct {
	ID      string  `json:"last_order_no,omitempty"`
	Status  string  `json:"last_order_status,omitempty"`
	Side    Side    `json:"last_order_side,omitempty"`
	Qty     int     `json:"last_order_qty,omitempty"`
	Price   float64 `json:"last_order_price,omitempty"`
	At      string  `json:"last_order_time,omitempty"`
	Message string  `json:"last_order_message,omitempty"`
}

// TradingCycleState is the single record threaded through every stage of a
// decision cycle. One instance exists per symbol per run.
type TradingCycleState struct {
	Symbol     string    `json:"symbol"`
	SymbolName string    `json:"symbol_name,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Iteration  int       `json:"iteration"`
	Mode       Mode      `json:"env_mode"`
	TradingDay string    `json:"trading_day,omitempty"`

	CurrentPrice float64 `json:"current_price"`
	Today        OHLCV   `json:"today"`
	Yesterday    OHLCV   `json:"yesterday"`

	Params   StrategyParams `json:"params"`
	Position Position       `json:"position"`
	OrderQty int            `json:"order_qty"`

	PnL     PnL        `json:"pnl"`
	Account Account    `json:"account"`
	Limits  RiskLimits `json:"limits"`

	TradingStopped bool   `json:"trading_stopped"`
	StopReason     string `json:"stop_reason,omitempty"`

	ShouldBuy  bool   `json:"should_buy"`
	ShouldSell bool   `json:"should_sell"`
	BuyReason  string `json:"buy_reason,omitempty"`
	SellReason string `json:"sell_reason,omitempty"`

	LastOrder OrderTrace `json:"last_order"`
}

// NewTradingCycleState builds the run-start state: idle, flat, all cash.
func NewTradingCycleState(symbol string, mode Mode, capital float64, params StrategyParams, limits RiskLimits) *TradingCycleState {
	params.TargetPrice = 0
	return &TradingCycleState{
		Symbol:   symbol,
		Mode:     mode,
		Params:   params,
		Limits:   limits,
		Position: Idle(),
		Account: Account{
			Cash:           capital,
			TotalAsset:     capital,
			InitialCapital: capital,
			PeakAsset:      capital,
		},
	}
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *TradingCycleState) Clone() *TradingCycleState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Position.Open != nil {
		op := *s.Position.Open
		c.Position.Open = &op
	}
	return &c
}

// WinRate is the fraction of closed trades that were profitable; 0 with no trades.
func (s *TradingCycleState) WinRate() float64 {
	if s.PnL.TotalTrades == 0 {
		return 0
	}
	return float64(s.PnL.WinningTrades) / float64(s.PnL.TotalTrades)
}

// PositionValue marks the open position to the current price.
func (s *TradingCycleState) PositionValue() float64 {
	if s.Position.Open == nil {
		return 0
	}
	return float64(s.Position.Open.Qty) * s.CurrentPrice
}

// Validate checks the structural invariants of the record.
func (s *TradingCycleState) Validate() error {
	var errs []error
	if err := s.Position.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.PnL.TotalTrades != s.PnL.WinningTrades+s.PnL.LosingTrades {
		errs = append(errs, fmt.Errorf("trade counters out of balance: total=%d winning=%d losing=%d",
			s.PnL.TotalTrades, s.PnL.WinningTrades, s.PnL.LosingTrades))
	}
	if s.Account.Cash < 0 {
		errs = append(errs, fmt.Errorf("negative cash balance %.2f", s.Account.Cash))
	}
	if s.Account.TotalAsset < 0 {
		errs = append(errs, fmt.Errorf("negative total asset %.2f", s.Account.TotalAsset))
	}
	if s.Account.PeakAsset < s.Account.TotalAsset {
		errs = append(errs, fmt.Errorf("peak asset %.2f below total asset %.2f", s.Account.PeakAsset, s.Account.TotalAsset))
	}
	if s.Yesterday.High < s.Yesterday.Low {
		errs = append(errs, fmt.Errorf("prior session high %.2f below low %.2f", s.Yesterday.High, s.Yesterday.Low))
	}
	if s.ShouldBuy && s.ShouldSell {
		errs = append(errs, errors.New("buy and sell signals set together"))
	}
	return errors.Join(errs...)
}
