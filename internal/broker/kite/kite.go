// Package kite implements the market data, order and account gateways on
// top of Zerodha Kite Connect, with a paper book for simulated fills and a
// synthetic feed for offline runs.
package kite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/ticksize"
	"breakout-trading-bot/internal/types"
)

const (
	SourceStatic = "STATIC"
	SourceLive   = "LIVE"
)

type Params struct {
	Mode        types.Mode
	APIKey      string
	AccessToken string
	Exchange    string
	DataSource  string
	DryRun      bool
	Capital     float64
}

// client is the subset of *kiteconnect.Client the gateway calls.
type client interface {
	GetQuote(instruments ...string) (kiteconnect.Quote, error)
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
	GetUserMargins() (kiteconnect.AllMargins, error)
	GetHoldings() (kiteconnect.Holdings, error)
	GetPositions() (kiteconnect.Positions, error)
}

type Kite struct {
	p      Params
	kc     client
	mapper *instrumentMapper
	bars   *barCache
	feed   *staticFeed
	book   *paperBook
	now    func() time.Time
}

var _ interfaces.Broker = (*Kite)(nil)

// New builds the gateway. The Kite client is only constructed when both
// credentials are present; live calls without it fail as unavailable.
func New(p Params) *Kite {
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	if p.DataSource == "" {
		p.DataSource = SourceStatic
	}
	k := &Kite{
		p:      p,
		mapper: newInstrumentMapper(),
		bars:   newBarCache(),
		feed:   newStaticFeed(time.Now().UnixNano(), ticksize.ForExchange(p.Exchange)),
		book:   newPaperBook(p.Capital),
		now:    time.Now,
	}
	if p.APIKey != "" && p.AccessToken != "" {
		kc := kiteconnect.New(p.APIKey)
		kc.SetAccessToken(p.AccessToken)
		k.kc = kc
	}
	return k
}

func newWithClient(p Params, kc client) *Kite {
	k := New(p)
	k.kc = kc
	return k
}

func (k *Kite) simulated(mode types.Mode) bool {
	return mode == types.ModePaper || k.p.DryRun
}

func (k *Kite) live() (client, error) {
	if k.kc == nil {
		return nil, fmt.Errorf("kite: missing API key/access token: %w", types.ErrGatewayUnavailable)
	}
	return k.kc, nil
}

func (k *Kite) instrument(symbol string) string {
	return k.p.Exchange + ":" + symbol
}

func (k *Kite) GetCurrentQuote(ctx context.Context, symbol string) (types.Quote, error) {
	var (
		q   types.Quote
		err error
	)
	if k.p.DataSource == SourceLive {
		q, err = k.liveQuote(ctx, symbol)
	} else {
		q = k.feed.quote(symbol, k.now())
	}
	if err != nil {
		return types.Quote{}, err
	}
	k.book.mark(symbol, q.Price)
	return q, nil
}

func (k *Kite) liveQuote(ctx context.Context, symbol string) (types.Quote, error) {
	kc, err := k.live()
	if err != nil {
		return types.Quote{}, err
	}
	key := k.instrument(symbol)
	quotes, err := kc.GetQuote(key)
	if err != nil {
		return types.Quote{}, mapError("get quote", err)
	}
	data, ok := quotes[key]
	if !ok {
		return types.Quote{}, fmt.Errorf("kite: no quote returned for %s", key)
	}

	q := types.Quote{
		Price:  data.LastPrice,
		Open:   data.OHLC.Open,
		High:   data.OHLC.High,
		Low:    data.OHLC.Low,
		Volume: int64(data.Volume),
		Change: data.NetChange,
	}
	if prev := data.OHLC.Close; prev != 0 {
		q.ChangePct = (data.LastPrice - prev) / prev
	}
	if inst, ok := k.mapper.lookup(symbol); ok {
		q.Name = inst.name
	}
	logger.Debug(ctx, "Quote fetched", "symbol", symbol, "price", q.Price, "open", q.Open)
	return q, nil
}

// GetDailyBars returns up to count daily sessions, most recent first.
func (k *Kite) GetDailyBars(ctx context.Context, symbol string, count int) ([]types.DailyBar, error) {
	if count <= 0 {
		return nil, nil
	}
	if k.p.DataSource != SourceLive {
		return k.feed.dailyBars(symbol, count, k.now()), nil
	}

	now := k.now()
	if bars, ok := k.bars.get(symbol, now, count); ok {
		return bars, nil
	}

	kc, err := k.live()
	if err != nil {
		return nil, err
	}
	inst, err := k.resolve(ctx, kc, symbol)
	if err != nil {
		return nil, err
	}

	// Calendar days, wide enough to cover weekends and holidays.
	from := now.AddDate(0, 0, -(count*2 + 7))
	hist, err := kc.GetHistoricalData(inst.token, "day", from, now, false, false)
	if err != nil {
		return nil, mapError("get historical data", err)
	}

	bars := make([]types.DailyBar, 0, len(hist))
	for i := len(hist) - 1; i >= 0; i-- {
		h := hist[i]
		bars = append(bars, types.DailyBar{
			Date:   h.Date.Time,
			Open:   h.Open,
			High:   h.High,
			Low:    h.Low,
			Close:  h.Close,
			Volume: int64(h.Volume),
		})
	}
	k.bars.put(symbol, now, bars)
	if len(bars) > count {
		bars = bars[:count]
	}
	logger.Debug(ctx, "Daily bars fetched", "symbol", symbol, "count", len(bars))
	return bars, nil
}

func (k *Kite) resolve(ctx context.Context, kc client, symbol string) (instrument, error) {
	if inst, ok := k.mapper.lookup(symbol); ok {
		return inst, nil
	}
	list, err := kc.GetInstrumentsByExchange(k.p.Exchange)
	if err != nil {
		return instrument{}, mapError("get instruments", err)
	}
	k.mapper.load(list)
	logger.Info(ctx, "Instrument list loaded", "exchange", k.p.Exchange, "count", len(list))

	inst, ok := k.mapper.lookup(symbol)
	if !ok {
		return instrument{}, fmt.Errorf("kite: unknown instrument %s", k.instrument(symbol))
	}
	return inst, nil
}

func (k *Kite) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if k.simulated(req.Mode) {
		resp := k.book.fill(req, k.now())
		logger.Info(ctx, "Simulated order",
			"symbol", req.Symbol, "side", req.Side, "qty", req.Qty,
			"ok", resp.OK, "order_id", resp.OrderID, "error_code", resp.ErrorCode)
		return resp, nil
	}

	kc, err := k.live()
	if err != nil {
		return types.OrderResp{}, err
	}
	params := kiteconnect.OrderParams{
		Exchange:        k.p.Exchange,
		Tradingsymbol:   req.Symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         kiteconnect.ProductCNC,
		OrderType:       kiteconnect.OrderTypeLimit,
		TransactionType: kiteconnect.TransactionTypeBuy,
		Quantity:        req.Qty,
		Price:           req.Price,
		Tag:             req.Tag,
	}
	if req.Side == types.SideSell {
		params.TransactionType = kiteconnect.TransactionTypeSell
	}
	if req.Kind == types.OrderKindMarket {
		params.OrderType = kiteconnect.OrderTypeMarket
		params.Price = 0
	}

	out, err := kc.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return rejectOrTransport(err)
	}
	logger.Info(ctx, "Live order placed", "symbol", req.Symbol, "side", req.Side, "qty", req.Qty, "order_id", out.OrderID)
	return types.OrderResp{OK: true, OrderID: out.OrderID, Timestamp: k.now()}, nil
}

// GetBalance reports the total evaluated account value: cash plus
// holdings marked at their last price. Live runs read it from margins,
// holdings and positions.
func (k *Kite) GetBalance(ctx context.Context, mode types.Mode) (float64, error) {
	if k.simulated(mode) {
		return k.book.total(), nil
	}
	kc, err := k.live()
	if err != nil {
		return 0, err
	}
	m, err := kc.GetUserMargins()
	if err != nil {
		return 0, mapError("get margins", err)
	}
	h, err := kc.GetHoldings()
	if err != nil {
		return 0, mapError("get holdings", err)
	}
	p, err := kc.GetPositions()
	if err != nil {
		return 0, mapError("get positions", err)
	}
	total := evaluatedTotal(m, h, p)
	logger.Debug(ctx, "Live balance", "equity_net", m.Equity.Net, "total", total)
	return total, nil
}

// evaluatedTotal adds settled and T1 holdings plus today's delivery
// positions to net equity. Delivery buys sit in positions until they move
// to holdings overnight; a sale of a held stock shows as a negative CNC
// position and offsets the holding.
func evaluatedTotal(m kiteconnect.AllMargins, h kiteconnect.Holdings, p kiteconnect.Positions) float64 {
	total := m.Equity.Net
	for _, hd := range h {
		total += float64(hd.Quantity+hd.T1Quantity) * hd.LastPrice
	}
	for _, pos := range p.Net {
		if pos.Product != kiteconnect.ProductCNC {
			continue
		}
		total += float64(pos.Quantity) * pos.LastPrice
	}
	return total
}

// mapError turns token failures into ErrGatewayUnavailable and leaves
// everything else as a plain wrapped error.
func mapError(op string, err error) error {
	var kerr kiteconnect.Error
	if errors.As(err, &kerr) && kerr.ErrorType == kiteconnect.TokenError {
		return fmt.Errorf("kite %s: %s: %w", op, kerr.Message, types.ErrGatewayUnavailable)
	}
	return fmt.Errorf("kite %s: %w", op, err)
}

// rejectOrTransport splits order failures: API errors become a rejected
// response (rate limits tagged 429), anything else is returned for retry.
func rejectOrTransport(err error) (types.OrderResp, error) {
	var kerr kiteconnect.Error
	if !errors.As(err, &kerr) {
		return types.OrderResp{}, fmt.Errorf("kite place order: %w", err)
	}
	if kerr.ErrorType == kiteconnect.TokenError {
		return types.OrderResp{}, mapError("place order", err)
	}
	code := kerr.ErrorType
	if kerr.Code == 429 || strings.Contains(strings.ToLower(kerr.Message), "too many requests") {
		code = "429"
	}
	return types.OrderResp{ErrorCode: code, ErrorMessage: kerr.Message}, nil
}
