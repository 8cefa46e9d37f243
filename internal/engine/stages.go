package engine

import (
	"time"

	"breakout-trading-bot/internal/types"
)

// Each stage computes one of these from the current state and the engine
// applies it before the next stage runs. A stage can only touch the fields
// its update type names.

type marketUpdate struct {
	timestamp  time.Time
	iteration  int
	tradingDay string
	newDay     bool
	newMonth   bool
	name       string
	price      float64
	today      types.OHLCV
	yesterday  types.OHLCV
}

func (u marketUpdate) apply(s *types.TradingCycleState) {
	s.Timestamp = u.timestamp
	s.Iteration = u.iteration
	if u.newDay {
		s.PnL.Daily = 0
		s.PnL.DailyPct = 0
	}
	if u.newMonth {
		s.PnL.Monthly = 0
	}
	s.TradingDay = u.tradingDay
	if u.name != "" {
		s.SymbolName = u.name
	}
	s.CurrentPrice = u.price
	s.Today = u.today
	s.Yesterday = u.yesterday
}

type targetUpdate struct {
	target float64
}

func (u targetUpdate) apply(s *types.TradingCycleState) {
	s.Params.TargetPrice = u.target
}

type signalUpdate struct {
	shouldBuy  bool
	shouldSell bool
	buyReason  string
	sellReason string
	orderQty   int
}

// apply always overwrites both signals so a cycle never inherits the
// previous cycle's decision.
func (u signalUpdate) apply(s *types.TradingCycleState) {
	s.ShouldBuy = u.shouldBuy
	s.ShouldSell = u.shouldSell
	s.BuyReason = u.buyReason
	s.SellReason = u.sellReason
	s.OrderQty = u.orderQty
}

type riskUpdate struct {
	halt     bool
	reason   string
	clearBuy bool
	blocked  string
}

func (u riskUpdate) apply(s *types.TradingCycleState) {
	if u.halt {
		if !s.TradingStopped {
			s.TradingStopped = true
			s.StopReason = u.reason
		}
		clearSignals(s)
		return
	}
	if u.clearBuy {
		s.ShouldBuy = false
		s.BuyReason = ""
	}
}

type closedTrade struct {
	pnl    float64
	pnlPct float64
}

type executionUpdate struct {
	filled    bool
	position  types.Position
	cash      float64
	closed    *closedTrade
	clearBuy  bool
	clearSell bool
	order     types.OrderTrace
}

func (u executionUpdate) apply(s *types.TradingCycleState) {
	if u.filled {
		s.Position = u.position
		s.Account.Cash = u.cash
	}
	if c := u.closed; c != nil {
		s.PnL.Realized += c.pnl
		s.PnL.RealizedPct = c.pnlPct
		s.PnL.Daily += c.pnl
		s.PnL.Monthly += c.pnl
		s.PnL.TotalTrades++
		if c.pnl > 0 {
			s.PnL.WinningTrades++
		} else {
			s.PnL.LosingTrades++
		}
		s.PnL.Unrealized = 0
		s.PnL.UnrealizedPct = 0
	}
	if u.clearBuy {
		s.ShouldBuy = false
	}
	if u.clearSell {
		s.ShouldSell = false
	}
	if u.order != (types.OrderTrace{}) {
		s.LastOrder = u.order
	}
}

type monitorUpdate struct {
	active        bool
	position      types.Position
	unrealized    float64
	unrealizedPct float64
}

func (u monitorUpdate) apply(s *types.TradingCycleState) {
	if !u.active {
		s.PnL.Unrealized = 0
		s.PnL.UnrealizedPct = 0
		return
	}
	s.Position = u.position
	s.PnL.Unrealized = u.unrealized
	s.PnL.UnrealizedPct = u.unrealizedPct
}

type accountUpdate struct {
	totalAsset float64
	dailyPct   float64
	peakAsset  float64
	drawdown   float64
}

func (u accountUpdate) apply(s *types.TradingCycleState) {
	s.Account.TotalAsset = u.totalAsset
	s.PnL.DailyPct = u.dailyPct
	s.Account.PeakAsset = u.peakAsset
	s.Account.Drawdown = u.drawdown
}

func clearSignals(s *types.TradingCycleState) {
	s.ShouldBuy = false
	s.ShouldSell = false
	s.BuyReason = ""
	s.SellReason = ""
}
