package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/metrics"
	"breakout-trading-bot/internal/ticksize"
	"breakout-trading-bot/internal/trace"
	"breakout-trading-bot/internal/types"
)

// ExecutorConfig is the retry and pricing policy for order submission.
type ExecutorConfig struct {
	MaxAttempts       int
	BaseBackoff       time.Duration
	BuyOffset         float64
	SellOffset        float64
	RateLimitCodes    []string
	RateLimitMessages []string
	Ticks             ticksize.Table
}

func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxAttempts:       3,
		BaseBackoff:       time.Second,
		BuyOffset:         0.002,
		SellOffset:        0.002,
		RateLimitCodes:    []string{"EGW00201", "429"},
		RateLimitMessages: []string{"rate limit", "too many requests"},
		Ticks:             ticksize.KRX,
	}
}

// OrderResult is the definitive outcome of one submission.
type OrderResult struct {
	Success     bool
	OrderID     string
	Message     string
	Attempts    int
	RateLimited bool
}

// Sleeper blocks for d. Swapped out in tests.
type Sleeper func(d time.Duration)

// OrderExecutor wraps an OrderGateway with rate-limit detection and a
// bounded exponential backoff. Backoff sleeps happen in-line.
type OrderExecutor struct {
	gw    interfaces.OrderGateway
	cfg   ExecutorConfig
	sleep Sleeper
}

func NewOrderExecutor(gw interfaces.OrderGateway, cfg ExecutorConfig, sleep Sleeper) *OrderExecutor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &OrderExecutor{gw: gw, cfg: cfg, sleep: sleep}
}

// LimitPrice offsets the current price in the direction that favours a fill
// (up for buys, down for sells) and truncates it to the exchange tick. A buy
// limit never lands below the current price and a sell limit never above it.
func (x *OrderExecutor) LimitPrice(side types.Side, current float64) float64 {
	ticks := x.cfg.Ticks
	if side == types.SideBuy {
		limit := ticks.Truncate(current * (1 + x.cfg.BuyOffset))
		if limit < current {
			limit = ticks.Ceil(current)
		}
		return limit
	}
	limit := ticks.Truncate(current * (1 - x.cfg.SellOffset))
	if limit > current {
		limit = ticks.Truncate(current)
	}
	return limit
}

// Backoff is the wait after a failed attempt (1-based): base * 2^(attempt-1).
func (x *OrderExecutor) Backoff(attempt int) time.Duration {
	return x.cfg.BaseBackoff << (attempt - 1)
}

func (x *OrderExecutor) isRateLimited(resp types.OrderResp) bool {
	for _, code := range x.cfg.RateLimitCodes {
		if resp.ErrorCode != "" && resp.ErrorCode == code {
			return true
		}
	}
	msg := strings.ToLower(resp.ErrorMessage)
	for _, m := range x.cfg.RateLimitMessages {
		if m != "" && strings.Contains(msg, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Submit places a limit order, retrying rate-limited responses and transport
// errors up to MaxAttempts. The only error it returns is one wrapping
// types.ErrGatewayUnavailable; every other failure is a Success=false result.
func (x *OrderExecutor) Submit(ctx context.Context, mode types.Mode, side types.Side, symbol string, qty int, limitPrice float64) (OrderResult, error) {
	ctx, span := trace.StartSpan(ctx, "executor.Submit")
	defer span.End()

	if x.gw == nil {
		return OrderResult{}, fmt.Errorf("order gateway not configured: %w", types.ErrGatewayUnavailable)
	}

	req := types.OrderReq{
		Mode:   mode,
		Side:   side,
		Symbol: symbol,
		Qty:    qty,
		Price:  limitPrice,
		Kind:   types.OrderKindLimit,
		Tag:    "BREAKOUT",
	}

	var (
		lastErr     error
		lastResp    types.OrderResp
		rateLimited bool
	)
	for attempt := 1; attempt <= x.cfg.MaxAttempts; attempt++ {
		resp, err := x.gw.PlaceOrder(ctx, req)
		var class string
		switch {
		case err != nil && errors.Is(err, types.ErrGatewayUnavailable):
			logger.ErrorWithErr(ctx, "Order gateway unavailable", err, "symbol", symbol, "side", side)
			metrics.OrdersSubmitted.WithLabelValues(string(side), "failed").Inc()
			return OrderResult{Attempts: attempt}, err
		case err != nil:
			lastErr, rateLimited, class = err, false, "transport"
		case resp.OK:
			metrics.OrdersSubmitted.WithLabelValues(string(side), "filled").Inc()
			metrics.OrderAttempts.Observe(float64(attempt))
			return OrderResult{
				Success:  true,
				OrderID:  resp.OrderID,
				Message:  fmt.Sprintf("%s %d %s @ %.2f accepted (order %s)", side, qty, symbol, limitPrice, resp.OrderID),
				Attempts: attempt,
			}, nil
		case x.isRateLimited(resp):
			lastResp, lastErr, rateLimited, class = resp, nil, true, "rate_limit"
		default:
			metrics.OrdersSubmitted.WithLabelValues(string(side), "rejected").Inc()
			metrics.OrderAttempts.Observe(float64(attempt))
			logger.Warn(ctx, "Order rejected",
				"symbol", symbol, "side", side, "qty", qty,
				"error_code", resp.ErrorCode, "error_message", resp.ErrorMessage,
			)
			return OrderResult{
				Message:  fmt.Sprintf("order rejected: [%s] %s", resp.ErrorCode, resp.ErrorMessage),
				Attempts: attempt,
			}, nil
		}

		if attempt == x.cfg.MaxAttempts {
			break
		}
		wait := x.Backoff(attempt)
		metrics.OrderRetries.WithLabelValues(class).Inc()
		logger.Warn(ctx, "Order attempt failed, backing off",
			"symbol", symbol, "side", side, "attempt", attempt,
			"class", class, "backoff_ms", wait.Milliseconds(),
		)
		x.sleep(wait)
	}

	metrics.OrderAttempts.Observe(float64(x.cfg.MaxAttempts))
	if rateLimited {
		metrics.OrdersSubmitted.WithLabelValues(string(side), "rate_limited").Inc()
		return OrderResult{
			Message:     fmt.Sprintf("rate limit exceeded after %d retries: [%s] %s", x.cfg.MaxAttempts, lastResp.ErrorCode, lastResp.ErrorMessage),
			Attempts:    x.cfg.MaxAttempts,
			RateLimited: true,
		}, nil
	}
	metrics.OrdersSubmitted.WithLabelValues(string(side), "failed").Inc()
	return OrderResult{
		Message:  fmt.Sprintf("order failed after %d attempts: %v", x.cfg.MaxAttempts, lastErr),
		Attempts: x.cfg.MaxAttempts,
	}, nil
}
