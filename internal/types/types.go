package types

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects between simulated (paper) and real-money (live) trading.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// ParseMode accepts the canonical names plus the aliases used by older configs
// (demo/real, DRY_RUN/LIVE).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paper", "demo", "dry_run", "vps":
		return ModePaper, nil
	case "live", "real", "prod":
		return ModeLive, nil
	}
	return "", fmt.Errorf("invalid mode '%s': must be 'paper' or 'live'", s)
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderKind string

const (
	OrderKindLimit  OrderKind = "LIMIT"
	OrderKindMarket OrderKind = "MARKET"
)

// Quote is the current intraday snapshot of an instrument.
type Quote struct {
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    int64   `json:"volume"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
}

// DailyBar is one completed (or in-progress) trading session.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

type OrderReq struct {
	Mode   Mode
	Side   Side
	Symbol string
	Qty    int
	Price  float64 // 0 for market orders
	Kind   OrderKind
	Tag    string
}

// OrderResp is the broker's answer to a placement. Transport failures are
// reported as errors instead; a response with OK=false is a broker rejection.
type OrderResp struct {
	OK           bool      `json:"ok"`
	OrderID      string    `json:"order_id"`
	Timestamp    time.Time `json:"timestamp"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// StepResult is the record produced after every decision cycle.
type StepResult struct {
	CycleID    string             `json:"cycle_id"`
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	StopReason string             `json:"stop_reason,omitempty"`
	State      *TradingCycleState `json:"state"`
}
