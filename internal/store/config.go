package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"breakout-trading-bot/internal/types"
)

type Config struct {
	Mode        string `yaml:"mode"`
	Symbol      string `yaml:"symbol"`
	DataSource  string `yaml:"data_source"`
	PollSeconds int    `yaml:"poll_seconds"`
	Exchange    string `yaml:"exchange"`
	DryRun      bool   `yaml:"dry_run"`

	Trading struct {
		Capital      float64 `yaml:"capital"`
		PositionSize float64 `yaml:"position_size"`
	} `yaml:"trading"`

	VolatilityBreakout struct {
		KValue    float64 `yaml:"k_value"`
		MinVolume int64   `yaml:"min_volume"`
	} `yaml:"volatility_breakout"`

	Risk struct {
		StopLoss        float64 `yaml:"stop_loss"`
		TakeProfit      float64 `yaml:"take_profit"`
		MaxDailyLoss    float64 `yaml:"max_daily_loss"`
		MaxMonthlyLoss  float64 `yaml:"max_monthly_loss"`
		MaxDrawdown     float64 `yaml:"max_drawdown"`
		MaxPositionSize float64 `yaml:"max_position_size"`
		TrailingStop    struct {
			Enabled bool    `yaml:"enabled"`
			Ratio   float64 `yaml:"ratio"`
		} `yaml:"trailing_stop"`
		VolatilityAdjustment bool `yaml:"volatility_adjustment"`
	} `yaml:"risk"`

	Session struct {
		Timezone   string `yaml:"timezone"`
		EntryStart string `yaml:"entry_start"`
		EntryEnd   string `yaml:"entry_end"`
		ForceExit  string `yaml:"force_exit"`
	} `yaml:"session"`

	Execution struct {
		MaxAttempts       int           `yaml:"max_attempts"`
		BaseBackoff       time.Duration `yaml:"base_backoff"`
		BuyOffset         float64       `yaml:"buy_offset"`
		SellOffset        float64       `yaml:"sell_offset"`
		RateLimitCodes    []string      `yaml:"rate_limit_codes"`
		RateLimitMessages []string      `yaml:"rate_limit_messages"`
	} `yaml:"execution"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`

	Telemetry struct {
		Addr        string `yaml:"addr"`
		RedisAddr   string `yaml:"redis_addr"`
		RedisStream string `yaml:"redis_stream"`
	} `yaml:"telemetry"`

	// Env.Mode takes precedence over the top-level mode when both are set.
	Env struct {
		Mode string `yaml:"mode"`
	} `yaml:"env"`
}

// Default returns a configuration with every option at its default.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// venue holds the defaults an exchange implies: a liquid index ETF and the
// local session.
type venue struct {
	symbol     string
	timezone   string
	entryStart string
	entryEnd   string
	forceExit  string
}

var venues = map[string]venue{
	"NSE": {"NIFTYBEES", "Asia/Kolkata", "09:20", "15:00", "15:20"},
	"BSE": {"NIFTYBEES", "Asia/Kolkata", "09:20", "15:00", "15:20"},
	"KRX": {"069500", "Asia/Seoul", "09:05", "15:00", "15:20"},
}

func (c *Config) applyDefaults() {
	if c.Env.Mode != "" {
		c.Mode = c.Env.Mode
	}
	if c.Mode == "" {
		c.Mode = string(types.ModePaper)
	}
	c.Exchange = strings.ToUpper(strings.TrimSpace(c.Exchange))
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	v, ok := venues[c.Exchange]
	if !ok {
		v = venues["NSE"]
	}
	if c.Symbol == "" {
		c.Symbol = v.symbol
	}
	if c.DataSource == "" {
		c.DataSource = "STATIC"
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 60
	}

	if c.Trading.Capital == 0 {
		c.Trading.Capital = 1_000_000
	}
	if c.Trading.PositionSize == 0 {
		c.Trading.PositionSize = 0.10
	}
	if c.VolatilityBreakout.KValue == 0 {
		c.VolatilityBreakout.KValue = 0.5
	}

	if c.Risk.StopLoss == 0 {
		c.Risk.StopLoss = -0.03
	}
	if c.Risk.TakeProfit == 0 {
		c.Risk.TakeProfit = 0.05
	}
	if c.Risk.MaxDailyLoss == 0 {
		c.Risk.MaxDailyLoss = -0.05
	}
	if c.Risk.MaxMonthlyLoss == 0 {
		c.Risk.MaxMonthlyLoss = -0.15
	}
	if c.Risk.MaxDrawdown == 0 {
		c.Risk.MaxDrawdown = -0.20
	}
	if c.Risk.MaxPositionSize == 0 {
		c.Risk.MaxPositionSize = c.Trading.PositionSize
	}
	if c.Risk.TrailingStop.Ratio == 0 {
		c.Risk.TrailingStop.Ratio = 0.02
	}

	if c.Session.Timezone == "" {
		c.Session.Timezone = v.timezone
	}
	if c.Session.EntryStart == "" {
		c.Session.EntryStart = v.entryStart
	}
	if c.Session.EntryEnd == "" {
		c.Session.EntryEnd = v.entryEnd
	}
	if c.Session.ForceExit == "" {
		c.Session.ForceExit = v.forceExit
	}

	if c.Execution.MaxAttempts == 0 {
		c.Execution.MaxAttempts = 3
	}
	if c.Execution.BaseBackoff == 0 {
		c.Execution.BaseBackoff = time.Second
	}
	if c.Execution.BuyOffset == 0 {
		c.Execution.BuyOffset = 0.002
	}
	if c.Execution.SellOffset == 0 {
		c.Execution.SellOffset = 0.002
	}
	if len(c.Execution.RateLimitCodes) == 0 {
		c.Execution.RateLimitCodes = []string{"EGW00201", "429"}
	}
	if len(c.Execution.RateLimitMessages) == 0 {
		c.Execution.RateLimitMessages = []string{"rate limit", "too many requests"}
	}

	if c.Journal.Path == "" {
		c.Journal.Path = "data/journal.db"
	}
	if c.Telemetry.Addr == "" {
		c.Telemetry.Addr = ":8080"
	}
	if c.Telemetry.RedisStream == "" {
		c.Telemetry.RedisStream = "breakout:cycles"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := types.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Symbol) == "" {
		errs = append(errs, errors.New("symbol cannot be empty"))
	}
	if c.DataSource != "STATIC" && c.DataSource != "LIVE" {
		errs = append(errs, fmt.Errorf("invalid data_source '%s': must be 'STATIC' or 'LIVE'", c.DataSource))
	}
	if _, ok := venues[c.Exchange]; !ok {
		errs = append(errs, fmt.Errorf("invalid exchange '%s': must be NSE, BSE or KRX", c.Exchange))
	}
	// Kite only routes Indian venues; KRX runs are simulated on synthetic data.
	if c.Exchange == "KRX" && (c.DataSource == "LIVE" || (c.ParsedMode() == types.ModeLive && !c.DryRun)) {
		errs = append(errs, errors.New("exchange KRX supports only paper or dry-run trading on STATIC data"))
	}
	if c.Trading.Capital <= 0 {
		errs = append(errs, fmt.Errorf("trading.capital must be positive, got %.2f", c.Trading.Capital))
	}
	if c.Trading.PositionSize <= 0 || c.Trading.PositionSize > 1 {
		errs = append(errs, fmt.Errorf("trading.position_size must be in (0, 1], got %.4f", c.Trading.PositionSize))
	}
	if c.Risk.MaxPositionSize <= 0 || c.Risk.MaxPositionSize > 1 {
		errs = append(errs, fmt.Errorf("risk.max_position_size must be in (0, 1], got %.4f", c.Risk.MaxPositionSize))
	}
	if c.VolatilityBreakout.KValue <= 0 {
		errs = append(errs, fmt.Errorf("volatility_breakout.k_value must be positive, got %.4f", c.VolatilityBreakout.KValue))
	}
	if c.VolatilityBreakout.MinVolume < 0 {
		errs = append(errs, fmt.Errorf("volatility_breakout.min_volume cannot be negative, got %d", c.VolatilityBreakout.MinVolume))
	}
	if c.Risk.StopLoss >= 0 {
		errs = append(errs, fmt.Errorf("risk.stop_loss must be negative, got %.4f", c.Risk.StopLoss))
	}
	if c.Risk.TakeProfit <= 0 {
		errs = append(errs, fmt.Errorf("risk.take_profit must be positive, got %.4f", c.Risk.TakeProfit))
	}
	for name, v := range map[string]float64{
		"risk.max_daily_loss":   c.Risk.MaxDailyLoss,
		"risk.max_monthly_loss": c.Risk.MaxMonthlyLoss,
		"risk.max_drawdown":     c.Risk.MaxDrawdown,
	} {
		if v >= 0 {
			errs = append(errs, fmt.Errorf("%s must be negative, got %.4f", name, v))
		}
	}
	if c.Risk.TrailingStop.Enabled && (c.Risk.TrailingStop.Ratio <= 0 || c.Risk.TrailingStop.Ratio >= 1) {
		errs = append(errs, fmt.Errorf("risk.trailing_stop.ratio must be in (0, 1), got %.4f", c.Risk.TrailingStop.Ratio))
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("session.timezone: %w", err))
	}
	for name, v := range map[string]string{
		"session.entry_start": c.Session.EntryStart,
		"session.entry_end":   c.Session.EntryEnd,
		"session.force_exit":  c.Session.ForceExit,
	} {
		if _, err := ParseClock(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Execution.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("execution.max_attempts must be at least 1, got %d", c.Execution.MaxAttempts))
	}
	if c.Execution.BaseBackoff < 0 {
		errs = append(errs, fmt.Errorf("execution.base_backoff cannot be negative, got %s", c.Execution.BaseBackoff))
	}
	return errors.Join(errs...)
}

// ParsedMode is the validated trading mode.
func (c *Config) ParsedMode() types.Mode {
	m, err := types.ParseMode(c.Mode)
	if err != nil {
		return types.ModePaper
	}
	return m
}

// Location is the exchange-local timezone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Session.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
