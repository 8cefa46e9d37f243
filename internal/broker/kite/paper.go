package kite

import (
	"sync"
	"time"

	"breakout-trading-bot/internal/id"
	"breakout-trading-bot/internal/types"
)

// paperBook simulates an account: fills are immediate at the last seen
// price, and the balance is cash plus holdings marked to that price.
type paperBook struct {
	mu       sync.Mutex
	cash     float64
	holdings map[string]int
	last     map[string]float64
}

func newPaperBook(capital float64) *paperBook {
	return &paperBook{
		cash:     capital,
		holdings: make(map[string]int),
		last:     make(map[string]float64),
	}
}

func (b *paperBook) mark(symbol string, price float64) {
	if price <= 0 {
		return
	}
	b.mu.Lock()
	b.last[symbol] = price
	b.mu.Unlock()
}

func (b *paperBook) fill(req types.OrderReq, at time.Time) types.OrderResp {
	b.mu.Lock()
	defer b.mu.Unlock()

	if req.Qty <= 0 {
		return types.OrderResp{ErrorCode: "INVALID_QTY", ErrorMessage: "order quantity must be positive", Timestamp: at}
	}
	price := b.last[req.Symbol]
	if price <= 0 {
		price = req.Price
	}
	value := price * float64(req.Qty)

	switch req.Side {
	case types.SideBuy:
		if value > b.cash {
			return types.OrderResp{ErrorCode: "INSUFFICIENT_FUNDS", ErrorMessage: "insufficient cash for simulated buy", Timestamp: at}
		}
		b.cash -= value
		b.holdings[req.Symbol] += req.Qty
	case types.SideSell:
		if b.holdings[req.Symbol] < req.Qty {
			return types.OrderResp{ErrorCode: "INSUFFICIENT_HOLDINGS", ErrorMessage: "not enough shares for simulated sell", Timestamp: at}
		}
		b.cash += value
		b.holdings[req.Symbol] -= req.Qty
	default:
		return types.OrderResp{ErrorCode: "INVALID_SIDE", ErrorMessage: "unknown order side " + string(req.Side), Timestamp: at}
	}
	if _, ok := b.last[req.Symbol]; !ok {
		b.last[req.Symbol] = price
	}
	return types.OrderResp{OK: true, OrderID: "PAPER-" + id.At(at), Timestamp: at}
}

func (b *paperBook) total() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	sum := b.cash
	for sym, qty := range b.holdings {
		sum += float64(qty) * b.last[sym]
	}
	return sum
}
