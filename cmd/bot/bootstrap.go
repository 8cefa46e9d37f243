package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"breakout-trading-bot/internal/broker/brokerobs"
	"breakout-trading-bot/internal/broker/kite"
	"breakout-trading-bot/internal/engine"
	"breakout-trading-bot/internal/engine/engineobs"
	"breakout-trading-bot/internal/eod"
	"breakout-trading-bot/internal/eod/eodobs"
	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/journal"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/metrics"
	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/telemetry"
	"breakout-trading-bot/internal/tradelog"
	"breakout-trading-bot/internal/types"
)

// app is everything a trading command needs once bootstrap has finished.
type app struct {
	cfg     *store.Config
	engine  interfaces.Engine
	journal *journal.SQLite
	hub     *telemetry.Hub
	redis   *telemetry.RedisPublisher
	pub     interfaces.Publisher
}

// initializeSystem loads the environment and sets up logging. Logs go to
// stderr so stdout carries only cycle records.
func initializeSystem(opts *rootOptions) error {
	_ = godotenv.Load()

	if err := logger.InitWithConfig(logConfig(opts)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// logConfig is the environment's logging setup with --log-level applied.
func logConfig(opts *rootOptions) logger.LogConfig {
	lc := logger.LoadConfigFromEnv()
	if opts.logLevel != "" {
		lc.Level = opts.logLevel
	}
	lc.Output = os.Stderr
	return lc
}

// loadConfig reads the YAML file and applies command-line overrides.
func loadConfig(ctx context.Context, opts *rootOptions) (*store.Config, error) {
	cfg, err := store.LoadConfig(opts.configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", opts.configPath)
		return nil, err
	}
	if opts.symbol != "" {
		cfg.Symbol = opts.symbol
	}
	if opts.mode != "" {
		m, err := types.ParseMode(opts.mode)
		if err != nil {
			return nil, err
		}
		cfg.Mode = string(m)
	}
	if opts.dryRun {
		cfg.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	tradelog.SetLocation(cfg.Location())
	return cfg, nil
}

// compressOldLogs gzips tradelog files past TRADER_LOG_RETENTION_DAYS.
func compressOldLogs(ctx context.Context) {
	v := os.Getenv("TRADER_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Ignoring invalid TRADER_LOG_RETENTION_DAYS", "value", v)
		return
	}
	if err := tradelog.CompressOlder(n); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeBroker builds the Kite gateway wrapped with observability.
func initializeBroker(ctx context.Context, cfg *store.Config) interfaces.Broker {
	brk := kite.New(kite.Params{
		Mode:        cfg.ParsedMode(),
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Exchange,
		DataSource:  cfg.DataSource,
		DryRun:      cfg.DryRun,
		Capital:     cfg.Trading.Capital,
	})

	if cfg.DryRun {
		logger.Warn(ctx, "Running in dry-run mode - orders will be simulated")
	}
	if cfg.DataSource == kite.SourceLive {
		logger.Info(ctx, "Using LIVE market data from Kite")
	} else {
		logger.Info(ctx, "Using STATIC synthetic market data")
	}

	return brokerobs.Wrap(brk)
}

func initializeEngine(cfg *store.Config, brk interfaces.Broker) interfaces.Engine {
	return engineobs.Wrap(engine.New(cfg, brk, nil))
}

// initializeEOD wraps the default EOD summarizer with observability.
func initializeEOD() {
	eod.SetDefaultSummarizer(eodobs.Wrap(eod.NewSummarizer(eod.DefaultCutoff)))
}

// initializePublishers opens the journal and assembles the fan-out that
// every finished cycle goes through. The journal is optional: a failure to
// open it is logged and the run continues without history.
func initializePublishers(ctx context.Context, cfg *store.Config, a *app) {
	pubs := telemetry.Multi{metrics.NewPublisher()}

	if j, err := journal.NewSQLite(cfg.Journal.Path); err != nil {
		logger.Warn(ctx, "Journal disabled", "path", cfg.Journal.Path, "error", err)
	} else {
		a.journal = j
		pubs = append(pubs, j)
	}

	a.hub = telemetry.NewHub()
	pubs = append(pubs, a.hub)

	if cfg.Telemetry.RedisAddr != "" {
		a.redis = telemetry.NewRedisPublisher(cfg.Telemetry.RedisAddr, os.Getenv("REDIS_PASSWORD"), cfg.Telemetry.RedisStream)
		pubs = append(pubs, a.redis)
		logger.Info(ctx, "Publishing cycles to Redis", "addr", cfg.Telemetry.RedisAddr, "stream", cfg.Telemetry.RedisStream)
	}
	a.pub = pubs
}

// bootstrap runs every initialize step in order.
func bootstrap(ctx context.Context, opts *rootOptions) (*app, error) {
	if err := initializeSystem(opts); err != nil {
		return nil, err
	}
	initializeEOD()

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	compressOldLogs(ctx)

	a := &app{cfg: cfg}
	a.engine = initializeEngine(cfg, initializeBroker(ctx, cfg))
	initializePublishers(ctx, cfg, a)

	logger.Info(ctx, "Bot initialized",
		"symbol", cfg.Symbol,
		"mode", cfg.ParsedMode(),
		"capital", cfg.Trading.Capital,
		"k_value", cfg.VolatilityBreakout.KValue,
	)
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warn(ctx, "Failed to close journal", "error", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = logger.Shutdown(ctx)
}
