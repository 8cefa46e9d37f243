// Package api is an HTTP client for a running bot's status server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/types"
)

// ErrCycleInFlight is returned by Reset when the server refused because a
// cycle was running.
var ErrCycleInFlight = errors.New("server busy: a trading cycle is in progress")

// StatusError is a non-2xx reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, strings.TrimSpace(e.Body))
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	retry      RetryConfig
	sleep      func(time.Duration)
}

// ClientOption configures the API client
type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithRetry(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient targets baseURL, e.g. "http://localhost:8080".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		retry:      DefaultRetryConfig(),
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RetryConfig applies to idempotent GETs only.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Second,
		MaxWait:     5 * time.Second,
	}
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Debug(ctx, "HTTP response",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 400 {
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// getWithRetry retries transport failures and 5xx replies with a capped
// exponential backoff.
func (c *Client) getWithRetry(ctx context.Context, path string, out interface{}) error {
	attempts := max(c.retry.MaxAttempts, 1)
	wait := c.retry.InitialWait

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.do(ctx, http.MethodGet, path, out)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		logger.Warn(ctx, "Request failed, retrying", "attempt", attempt, "error", err, "wait", wait)
		c.sleep(wait)
		wait = min(wait*2, c.retry.MaxWait)
	}
	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

func (c *Client) Status(ctx context.Context) (*types.TradingCycleState, error) {
	var st types.TradingCycleState
	if err := c.getWithRetry(ctx, "/api/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Run triggers one cycle. An aborted cycle comes back as an error.
func (c *Client) Run(ctx context.Context) (*types.StepResult, error) {
	var res types.StepResult
	if err := c.do(ctx, http.MethodPost, "/api/run", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Reset(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/reset", nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		return ErrCycleInFlight
	}
	return err
}

func (c *Client) History(ctx context.Context, limit int) ([]*types.StepResult, error) {
	var out []*types.StepResult
	if err := c.getWithRetry(ctx, "/api/history?limit="+strconv.Itoa(limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}
