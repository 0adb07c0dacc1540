package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wonny/fairvalue/internal/benchmark"
	"github.com/wonny/fairvalue/internal/cache"
	"github.com/wonny/fairvalue/internal/marketdata"
	"github.com/wonny/fairvalue/internal/service"
	"github.com/wonny/fairvalue/internal/store"
	"github.com/wonny/fairvalue/internal/valuation"
	"github.com/wonny/fairvalue/pkg/config"
	"github.com/wonny/fairvalue/pkg/database"
	"github.com/wonny/fairvalue/pkg/logger"
	"github.com/wonny/fairvalue/pkg/redis"
)

// app holds the wired collaborators shared by the commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB // nil when DB_ENABLED=false
	redis    *redis.Client
	table    *benchmark.Table
	cache    *cache.Cache[*service.Valuation]
	quotes   *cache.Cache[*marketdata.Quote]
	valuator *service.Valuator
}

// loadConfig loads the environment and applies the global flags
func loadConfig() (*config.Config, error) {
	if env != "" {
		os.Setenv("ENV", env)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp wires config, logging, storage, market data and the valuator.
// logOut receives the structured logs; one-shot commands send them to stderr.
// ⭐ SSOT: 의존성 조립은 여기서만
func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.NewForOutput(cfg, logOut)
	a := &app{cfg: cfg, log: log}

	// 1. Database (optional)
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Info("Database disabled, results will not be persisted")
	case err != nil:
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		if err := store.EnsureSchema(ctx, db.Pool); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.db = db
		log.Info("Connected to database")
	}

	// 2. Redis (optional, no-op when disabled)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	shared := redis.NewCache(rc, "fairvalue")

	// 3. Benchmarks
	table, err := benchmark.LoadOrDefault(cfg.Valuation.BenchmarkFile, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load benchmarks: %w", err)
	}
	a.table = table

	// 4. Market data: upstream API first, stored snapshots as fallback
	client := marketdata.NewClient(cfg.MarketData, log)
	var provider marketdata.Chain
	provider = append(provider, marketdata.NewCachedProvider(client, shared, log))

	deps := service.Deps{
		Engine:          valuation.NewEngineWithConfig(valuation.Config{Horizon: cfg.Valuation.ProjectionYears}, log.Zerolog()),
		Table:           table,
		Quotes:          client,
		Logger:          log,
		DefaultCountry:  cfg.Valuation.DefaultCountry,
		DefaultIndustry: cfg.Valuation.DefaultIndustry,
	}

	// 5. Repositories
	if a.db != nil {
		financials := store.NewFinancialRepository(a.db.Pool)
		provider = append(provider, financials)
		deps.Snapshots = financials
		deps.Results = store.NewResultRepository(a.db.Pool)
	}
	deps.Provider = provider

	// 6. Result and quote caches
	a.cache = cache.New(cfg.Valuation.CacheTTL, shared, service.CloneValuation, log)
	deps.Cache = a.cache
	a.quotes = cache.New(redis.TTLQuote, shared, service.CloneQuote, log).WithSharedKey(redis.QuoteKey)
	deps.QuoteCache = a.quotes

	a.valuator, err = service.NewValuator(deps)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close releases the database and redis connections
func (a *app) Close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}
