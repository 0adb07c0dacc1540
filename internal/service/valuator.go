package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/fairvalue/internal/benchmark"
	"github.com/wonny/fairvalue/internal/cache"
	"github.com/wonny/fairvalue/internal/contracts"
	"github.com/wonny/fairvalue/internal/marketdata"
	"github.com/wonny/fairvalue/internal/sensitivity"
	"github.com/wonny/fairvalue/internal/store"
	"github.com/wonny/fairvalue/internal/valuation"
	"github.com/wonny/fairvalue/pkg/logger"
	"github.com/wonny/fairvalue/pkg/redis"
)

var (
	// ErrHistoryUnavailable is returned by History when no result store is configured
	ErrHistoryUnavailable = errors.New("valuation history requires a database")

	// ErrQuotesUnavailable is returned by Quote and PriceHistory without a quote provider
	ErrQuotesUnavailable = errors.New("quotes require a quote provider")
)

// SnapshotStore persists fetched snapshots
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *marketdata.Snapshot) error
}

// ResultStore persists and lists valuation results
type ResultStore interface {
	Save(ctx context.Context, result *contracts.ValuationResult, benchmarkVersion string) (*store.StoredResult, error)
	ListByTicker(ctx context.Context, ticker string, limit int) ([]store.StoredResult, error)
}

// Options control a single ticker valuation
type Options struct {
	Refresh  bool   // bypass the result cache
	Country  string // overrides the snapshot country
	Industry string // overrides the snapshot industry
}

// Valuation is a result plus the context it was produced in
type Valuation struct {
	Result    *contracts.ValuationResult `json:"result"`
	Benchmark *benchmark.Lookup          `json:"benchmark,omitempty"`
	Name      string                     `json:"name,omitempty"`
	Currency  string                     `json:"currency,omitempty"`
	Cached    bool                       `json:"cached"`
}

// Valuator wires data retrieval, benchmarks, the engine, persistence and caching
// ⭐ SSOT: 종목 평가 흐름은 여기서만
type Valuator struct {
	engine     *valuation.Engine
	provider   marketdata.Provider
	table      *benchmark.Table
	version    string
	cache      *cache.Cache[*Valuation]
	quotes     marketdata.QuoteProvider
	quoteCache *cache.Cache[*marketdata.Quote]
	snapshots  SnapshotStore
	results    ResultStore
	logger     *logger.Logger

	defaultCountry  string
	defaultIndustry string
}

// Deps are the Valuator collaborators; Quotes, Snapshots and Results are optional
type Deps struct {
	Engine     *valuation.Engine
	Provider   marketdata.Provider
	Table      *benchmark.Table
	Cache      *cache.Cache[*Valuation]
	Quotes     marketdata.QuoteProvider
	QuoteCache *cache.Cache[*marketdata.Quote]
	Snapshots  SnapshotStore
	Results   ResultStore
	Logger    *logger.Logger

	DefaultCountry  string
	DefaultIndustry string
}

// NewValuator creates a new valuator
func NewValuator(d Deps) (*Valuator, error) {
	if d.Engine == nil || d.Provider == nil || d.Logger == nil {
		return nil, fmt.Errorf("valuator: engine, provider and logger are required")
	}

	table := d.Table
	if table == nil {
		table = benchmark.Default()
	}
	version, err := benchmark.Hash(table)
	if err != nil {
		return nil, fmt.Errorf("valuator: hash benchmark table: %w", err)
	}

	c := d.Cache
	if c == nil {
		c = cache.New(0, nil, CloneValuation, d.Logger)
	}
	qc := d.QuoteCache
	if qc == nil {
		qc = cache.New(redis.TTLQuote, nil, CloneQuote, d.Logger)
	}

	return &Valuator{
		engine:          d.Engine,
		provider:        d.Provider,
		table:           table,
		version:         version,
		cache:           c,
		quotes:          d.Quotes,
		quoteCache:      qc,
		snapshots:       d.Snapshots,
		results:         d.Results,
		logger:          d.Logger,
		defaultCountry:  d.DefaultCountry,
		defaultIndustry: d.DefaultIndustry,
	}, nil
}

// BenchmarkVersion is the hash of the benchmark table in use
func (v *Valuator) BenchmarkVersion() string {
	return v.version
}

// Benchmarks returns the benchmark table in use
func (v *Valuator) Benchmarks() *benchmark.Table {
	return v.table
}

// ValueTicker fetches, values and caches one ticker.
// A failed valuation is returned as an error wrapping contracts.ErrValuationImpossible.
func (v *Valuator) ValueTicker(ctx context.Context, ticker string, opts Options) (*Valuation, error) {
	ticker = marketdata.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	out, hit, err := v.cache.GetOrCompute(ctx, cacheKey(ticker, opts), opts.Refresh, func(ctx context.Context) (*Valuation, error) {
		snap, err := v.provider.Fetch(ctx, ticker)
		if err != nil {
			return nil, err
		}

		if v.snapshots != nil {
			if err := v.snapshots.SaveSnapshot(ctx, snap); err != nil {
				v.logger.WithError(err).WithTicker(ticker).Warn("Failed to store snapshot")
			}
		}

		country := firstNonEmpty(opts.Country, snap.Country, v.defaultCountry)
		industry := firstNonEmpty(opts.Industry, snap.Industry, v.defaultIndustry)

		rec := snap.Record
		lookup := v.table.Apply(&rec, country, industry)

		result := v.value(ctx, &rec, snap.History)
		if err := result.Err(); err != nil {
			return nil, err
		}

		return &Valuation{
			Result:    result,
			Benchmark: &lookup,
			Name:      snap.Name,
			Currency:  snap.Currency,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	out.Cached = hit
	return out, nil
}

// cacheKey identifies a ticker valuation by the benchmark overrides it was
// made with. Without overrides the snapshot's own country and industry
// apply, which are fixed per ticker.
func cacheKey(ticker string, opts Options) string {
	norm := func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
	return ticker + "|" + norm(opts.Country) + "|" + norm(opts.Industry)
}

// CloneValuation deep-copies a valuation for the result cache
func CloneValuation(v *Valuation) *Valuation {
	if v == nil {
		return nil
	}
	out := *v
	out.Result = cache.CloneResult(v.Result)
	if v.Benchmark != nil {
		lookup := *v.Benchmark
		out.Benchmark = &lookup
	}
	return &out
}

// ValueRecord values a caller-supplied record without fetching or caching.
// Missing benchmark rates are filled from the table.
func (v *Valuator) ValueRecord(ctx context.Context, record *contracts.FinancialRecord, series contracts.FCFSeries, country, industry string) (*Valuation, error) {
	if record == nil {
		result := v.engine.Value(nil, series)
		return nil, result.Err()
	}

	rec := *record
	rec.Ticker = marketdata.NormalizeTicker(rec.Ticker)
	lookup := v.table.Apply(&rec, firstNonEmpty(country, v.defaultCountry), firstNonEmpty(industry, v.defaultIndustry))

	result := v.value(ctx, &rec, series)
	if err := result.Err(); err != nil {
		return nil, err
	}

	return &Valuation{Result: result, Benchmark: &lookup}, nil
}

// Sensitivity values a ticker from fresh market data and runs a Monte Carlo
// and grid analysis around the result. Nothing is cached or persisted.
func (v *Valuator) Sensitivity(ctx context.Context, ticker string, opts Options, cfg sensitivity.Config) (*sensitivity.Result, error) {
	analyzer, err := sensitivity.NewAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	ticker = marketdata.NormalizeTicker(ticker)
	snap, err := v.provider.Fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}

	rec := snap.Record
	v.table.Apply(&rec,
		firstNonEmpty(opts.Country, snap.Country, v.defaultCountry),
		firstNonEmpty(opts.Industry, snap.Industry, v.defaultIndustry))

	result := v.engine.Value(&rec, snap.History)
	out, err := analyzer.Analyze(&rec, result)
	if err != nil {
		return nil, err
	}

	v.logger.WithTicker(ticker).WithFields(map[string]interface{}{
		"simulations": cfg.Simulations,
		"valid":       out.ValidSamples,
		"p50":         out.Percentiles[50],
	}).Info("Sensitivity analysis completed")

	return out, nil
}

// History lists stored valuations of a ticker, newest first
func (v *Valuator) History(ctx context.Context, ticker string, limit int) ([]store.StoredResult, error) {
	if v.results == nil {
		return nil, ErrHistoryUnavailable
	}
	return v.results.ListByTicker(ctx, marketdata.NormalizeTicker(ticker), limit)
}

// value runs the engine and persists the result when a store is configured
func (v *Valuator) value(ctx context.Context, rec *contracts.FinancialRecord, series contracts.FCFSeries) *contracts.ValuationResult {
	result := v.engine.Value(rec, series)

	log := v.logger.WithTicker(rec.Ticker)
	log.WithFields(map[string]interface{}{
		"status":          result.Status,
		"value_per_share": result.IntrinsicValuePerShare,
		"warnings":        len(result.Warnings),
	}).Info("Valuation computed")

	if v.results != nil && result.Status != contracts.StatusFailed {
		if _, err := v.results.Save(ctx, result, v.version); err != nil {
			log.WithError(err).Warn("Failed to store valuation")
		}
	}

	return result
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
