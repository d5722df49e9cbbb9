package commands

import (
	"fmt"

	"github.com/quantlab/stocksignal/internal/contracts"
	"github.com/quantlab/stocksignal/internal/ingest"
	"github.com/quantlab/stocksignal/internal/provider/yahoo"
	"github.com/quantlab/stocksignal/internal/resolver"
	"github.com/quantlab/stocksignal/internal/scoring"
	"github.com/quantlab/stocksignal/internal/store"
	"github.com/quantlab/stocksignal/pkg/config"
	"github.com/quantlab/stocksignal/pkg/database"
	"github.com/quantlab/stocksignal/pkg/logger"
	"github.com/quantlab/stocksignal/pkg/redis"
)

// app holds the wired dependency graph shared by every command.
type app struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *database.DB
	redis  *redis.Client

	securities   contracts.SecurityRepository
	prices       contracts.PriceRepository
	fundamentals contracts.FundamentalRepository
	indicators   contracts.IndicatorRepository
	signals      contracts.SignalRepository

	provider    *yahoo.Client
	resolver    *resolver.Service
	coordinator *ingest.Coordinator
	scoring     *scoring.Service
}

// newApp loads config and wires the full service graph. Redis being
// down or disabled is not fatal; every cached read degrades to the
// store.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, cache disabled")
		disabled := cfg.Redis
		disabled.Enabled = false
		fallback := *cfg
		fallback.Redis = disabled
		redisClient, _ = redis.New(&fallback)
	}

	cache := redis.NewCache(redisClient, "stocksignal")

	var sharedLimiter *redis.RateLimiter
	if redisClient.Enabled() {
		sharedLimiter = redis.NewRateLimiter(redisClient, "stocksignal")
	}

	provider := yahoo.New(cfg, log, sharedLimiter)

	securities := store.NewSecurityRepository(db.Pool)
	prices := store.NewPriceRepository(db.Pool)
	fundamentals := store.NewFundamentalRepository(db.Pool)
	indicators := store.NewIndicatorRepository(db.Pool)
	signals := store.NewSignalRepository(db.Pool)

	res := resolver.NewService(prices, fundamentals, indicators, provider, cache, cfg, log)
	coordinator := ingest.New(res, cfg, log)

	engine := scoring.NewEngine(cfg.Scoring)
	scoringSvc := scoring.NewService(engine, res, securities, signals, cfg, log)

	return &app{
		cfg:          cfg,
		logger:       log,
		db:           db,
		redis:        redisClient,
		securities:   securities,
		prices:       prices,
		fundamentals: fundamentals,
		indicators:   indicators,
		signals:      signals,
		provider:     provider,
		resolver:     res,
		coordinator:  coordinator,
		scoring:      scoringSvc,
	}, nil
}

// close releases database and cache connections.
func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
