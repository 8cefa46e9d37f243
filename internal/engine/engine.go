package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"breakout-trading-bot/internal/id"
	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/risk"
	"breakout-trading-bot/internal/strategy"
	"breakout-trading-bot/internal/trace"
	"breakout-trading-bot/internal/types"
)

// ErrCycleInFlight is returned by Reset while Step is running.
var ErrCycleInFlight = errors.New("a trading cycle is in progress")

// Params are the per-run settings that seed the cycle state.
type Params struct {
	Symbol               string
	Mode                 types.Mode
	Capital              float64
	Strategy             types.StrategyParams
	Limits               types.RiskLimits
	MinVolume            int64
	VolatilityAdjustment bool
	SkipTimeCheck        bool
}

// Engine is the trading state machine for one symbol. Cycles are strictly
// sequential; Snapshot may be called from other goroutines.
type Engine struct {
	params Params

	md    interfaces.MarketDataGateway
	acct  interfaces.AccountGateway
	exec  *OrderExecutor
	strat *strategy.Breakout
	risk  *risk.Engine

	now   func() time.Time
	newID func() string

	cycleMu sync.Mutex
	mu      sync.RWMutex
	state   *types.TradingCycleState
}

var _ interfaces.Engine = (*Engine)(nil)

type Option func(*Engine)

// WithClock replaces the wall clock used for cycle timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewWithComponents wires an engine from explicit collaborators.
func NewWithComponents(p Params, md interfaces.MarketDataGateway, acct interfaces.AccountGateway, exec *OrderExecutor, strat *strategy.Breakout, rk *risk.Engine, opts ...Option) *Engine {
	e := &Engine{
		params: p,
		md:     md,
		acct:   acct,
		exec:   exec,
		strat:  strat,
		risk:   rk,
		now:    time.Now,
		newID:  id.New,
	}
	for _, o := range opts {
		o(e)
	}
	e.state = e.initialState()
	return e
}

func (e *Engine) initialState() *types.TradingCycleState {
	return types.NewTradingCycleState(e.params.Symbol, e.params.Mode, e.params.Capital, e.params.Strategy, e.params.Limits)
}

// Snapshot returns a copy of the state as of the last applied stage.
func (e *Engine) Snapshot() *types.TradingCycleState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// Reset discards the run state and starts over from initial capital.
func (e *Engine) Reset() error {
	if !e.cycleMu.TryLock() {
		return ErrCycleInFlight
	}
	defer e.cycleMu.Unlock()
	e.commit(e.initialState())
	return nil
}

func (e *Engine) commit(s *types.TradingCycleState) {
	e.mu.Lock()
	e.state = s.Clone()
	e.mu.Unlock()
}

// Step runs one decision cycle:
//
//	FetchMarketData -> CalculateTarget -> GenerateSignal -> RiskCheck
//	  -> (halt) end
//	  -> [ExecuteOrder if a signal survived] -> MonitorPosition -> UpdateAccount
//
// Errors from data and balance queries abort the cycle, as does a
// structurally unavailable order gateway. The returned result is non-nil
// either way.
func (e *Engine) Step(ctx context.Context) (*types.StepResult, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	st := e.Snapshot()
	res := &types.StepResult{CycleID: e.newID()}

	abort := func(stage string, err error) (*types.StepResult, error) {
		e.commit(st)
		res.Success = false
		res.Message = fmt.Sprintf("%s failed: %v", stage, err)
		res.StopReason = st.StopReason
		res.State = st.Clone()
		return res, err
	}

	mu, err := e.fetchMarketData(ctx, st)
	if err != nil {
		return abort("fetch market data", err)
	}
	e.stage(st, mu)
	e.stage(st, e.calculateTarget(ctx, st))
	e.stage(st, e.generateSignal(ctx, st))

	ru := e.riskCheck(ctx, st, res.CycleID)
	e.stage(st, ru)
	if ru.halt {
		logger.Risk(ctx, st.Symbol, "trading_halted", "reason", st.StopReason, "iteration", st.Iteration)
		res.Success = true
		res.Message = "trading stopped: " + st.StopReason
		res.StopReason = st.StopReason
		res.State = st.Clone()
		return res, nil
	}

	message := "no signal"
	if st.ShouldBuy || st.ShouldSell {
		xu, err := e.executeOrder(ctx, st, res.CycleID)
		if err != nil {
			return abort("execute order", err)
		}
		e.stage(st, xu)
		message = xu.order.Message
	}

	e.stage(st, e.monitorPosition(ctx, st))

	au, err := e.updateAccount(ctx, st)
	if err != nil {
		return abort("update account", err)
	}
	e.stage(st, au)

	if err := st.Validate(); err != nil {
		logger.Warn(ctx, "Cycle state failed validation", "symbol", st.Symbol, "iteration", st.Iteration, "error", err)
	}

	res.Success = true
	res.Message = message
	res.StopReason = st.StopReason
	res.State = st.Clone()
	return res, nil
}

type update interface {
	apply(*types.TradingCycleState)
}

// stage merges one stage's update and publishes it to Snapshot readers.
func (e *Engine) stage(st *types.TradingCycleState, u update) {
	u.apply(st)
	e.commit(st)
}

func (e *Engine) fetchMarketData(ctx context.Context, st *types.TradingCycleState) (marketUpdate, error) {
	ctx, span := trace.StartSpan(ctx, "engine.fetchMarketData")
	defer span.End()

	if e.md == nil {
		return marketUpdate{}, e.fetchErr("fetch market data", st, fmt.Errorf("market data gateway not configured: %w", types.ErrGatewayUnavailable))
	}

	quote, err := e.md.GetCurrentQuote(ctx, st.Symbol)
	if err != nil {
		return marketUpdate{}, e.fetchErr("fetch current quote", st, err)
	}
	bars, err := e.md.GetDailyBars(ctx, st.Symbol, 2)
	if err != nil {
		return marketUpdate{}, e.fetchErr("fetch daily bars", st, err)
	}
	prev, degraded, err := selectYesterday(bars)
	if err != nil {
		return marketUpdate{}, e.fetchErr("fetch daily bars", st, err)
	}
	if degraded {
		logger.Warn(ctx, "Only one daily session available, reusing it as the prior session",
			"stage", "fetch_market_data", "symbol", st.Symbol)
	}

	now := e.now()
	day := tradingDay(now, e.strat.Session().Location)
	u := marketUpdate{
		timestamp:  now,
		iteration:  st.Iteration + 1,
		tradingDay: day,
		newDay:     st.TradingDay != "" && st.TradingDay != day,
		newMonth:   st.TradingDay != "" && tradingMonth(st.TradingDay) != tradingMonth(day),
		name:       quote.Name,
		price:      quote.Price,
		today: types.OHLCV{
			Open:   quote.Open,
			High:   quote.High,
			Low:    quote.Low,
			Close:  quote.Price,
			Volume: quote.Volume,
		},
		yesterday: barOHLCV(prev),
	}

	logger.Info(ctx, "Market data collected",
		"stage", "fetch_market_data",
		"symbol", st.Symbol,
		"iteration", u.iteration,
		"price", quote.Price,
		"open", quote.Open,
		"prev_high", prev.High,
		"prev_low", prev.Low,
	)
	return u, nil
}

func (e *Engine) fetchErr(op string, st *types.TradingCycleState, err error) error {
	return &types.FetchError{Op: op, Symbol: st.Symbol, Mode: st.Mode, Err: err}
}

func (e *Engine) calculateTarget(ctx context.Context, st *types.TradingCycleState) targetUpdate {
	target := e.strat.TargetPrice(st.Today.Open, st.Yesterday.High, st.Yesterday.Low, st.Params.K)
	logger.Info(ctx, "Breakout target calculated",
		"stage", "calculate_target",
		"symbol", st.Symbol,
		"iteration", st.Iteration,
		"target", target,
	)
	return targetUpdate{target: target}
}

func (e *Engine) generateSignal(ctx context.Context, st *types.TradingCycleState) signalUpdate {
	ctx, span := trace.StartSpan(ctx, "engine.generateSignal")
	defer span.End()

	var u signalUpdate
	switch st.Position.Status {
	case types.StatusIdle:
		ok, reason := e.strat.ShouldEnter(st.CurrentPrice, st.Params.TargetPrice, st.Timestamp, e.params.SkipTimeCheck)
		if !ok {
			break
		}
		if e.params.MinVolume > 0 {
			valid, why := e.strat.ValidateBreakout(st.CurrentPrice, st.Params.TargetPrice, st.Today.Volume, e.params.MinVolume)
			if !valid {
				logger.Info(ctx, "Breakout filtered", "stage", "generate_signal", "symbol", st.Symbol, "reason", why)
				break
			}
		}
		vol := risk.Volatility(st.Yesterday.High, st.Yesterday.Low, st.Yesterday.Close)
		amount := e.risk.RiskAdjustedAmount(st.Account.Cash, vol, st.Limits.PositionSize, e.params.VolatilityAdjustment)
		u.shouldBuy = true
		u.buyReason = reason
		u.orderQty = strategy.PositionSize(amount, st.CurrentPrice, 1)
		logger.Signal(ctx, st.Symbol, string(types.SideBuy), reason, st.CurrentPrice, "qty", u.orderQty, "target", st.Params.TargetPrice)

	case types.StatusInPosition:
		if ok, reason := e.exitSignal(st); ok {
			u.shouldSell = true
			u.sellReason = reason
			u.orderQty = st.Position.Qty()
			logger.Signal(ctx, st.Symbol, string(types.SideSell), reason, st.CurrentPrice, "qty", u.orderQty)
		}
	}

	logger.Info(ctx, "Signal evaluated",
		"stage", "generate_signal",
		"symbol", st.Symbol,
		"iteration", st.Iteration,
		"position", st.Position.Status,
		"should_buy", u.shouldBuy,
		"should_sell", u.shouldSell,
	)
	return u
}

func (e *Engine) monitorPosition(ctx context.Context, st *types.TradingCycleState) monitorUpdate {
	if !st.Position.IsOpen() {
		return monitorUpdate{}
	}
	op := st.Position.Open
	pos := st.Position.Mark(st.CurrentPrice)
	u := monitorUpdate{
		active:        true,
		position:      pos,
		unrealized:    (st.CurrentPrice - op.EntryPrice) * float64(op.Qty),
		unrealizedPct: (st.CurrentPrice - op.EntryPrice) / op.EntryPrice,
	}
	logger.Info(ctx, "Position monitored",
		"stage", "monitor_position",
		"symbol", st.Symbol,
		"iteration", st.Iteration,
		"unrealized_pnl", u.unrealized,
		"unrealized_pnl_pct", u.unrealizedPct,
		"high_watermark", pos.Open.HighWatermark,
		"low_watermark", pos.Open.LowWatermark,
	)
	return u
}

func (e *Engine) updateAccount(ctx context.Context, st *types.TradingCycleState) (accountUpdate, error) {
	ctx, span := trace.StartSpan(ctx, "engine.updateAccount")
	defer span.End()

	if e.acct == nil {
		return accountUpdate{}, e.fetchErr("query balance", st, fmt.Errorf("account gateway not configured: %w", types.ErrGatewayUnavailable))
	}
	total, err := e.acct.GetBalance(ctx, st.Mode)
	if err != nil {
		return accountUpdate{}, e.fetchErr("query balance", st, err)
	}

	u := accountUpdate{totalAsset: total, peakAsset: st.Account.PeakAsset}
	if initial := st.Account.InitialCapital; initial != 0 {
		u.dailyPct = (total - initial) / initial
	}
	if total > u.peakAsset {
		u.peakAsset = total
	}
	u.drawdown = risk.Drawdown(total, u.peakAsset)

	logger.Info(ctx, "Account updated",
		"stage", "update_account",
		"symbol", st.Symbol,
		"iteration", st.Iteration,
		"total_asset", total,
		"peak_asset", u.peakAsset,
		"drawdown", u.drawdown,
		"daily_pnl_pct", u.dailyPct,
	)
	return u, nil
}
