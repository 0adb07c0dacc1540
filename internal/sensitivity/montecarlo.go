package sensitivity

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/fairvalue/internal/contracts"
	"github.com/wonny/fairvalue/internal/valuation"
)

// Analyzer runs sensitivity analyses around a computed valuation
// ⭐ SSOT: 할인율/성장률 민감도 분석은 여기서만
type Analyzer struct {
	config Config
	rng    *rand.Rand
	now    func() time.Time
}

// NewAnalyzer creates an analyzer. A zero seed draws from the clock.
// An Analyzer owns its random source and is not safe for concurrent use.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Analyzer{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
		now:    time.Now,
	}, nil
}

// Analyze perturbs WACC and the chosen growth rate of result with normal
// shocks and revalues the projected FCF for each draw. Draws whose growth is
// not below WACC are discarded. record supplies market cap and diluted shares.
func (a *Analyzer) Analyze(record *contracts.FinancialRecord, result *contracts.ValuationResult) (*Result, error) {
	if record == nil || result == nil {
		return nil, &contracts.ValuationError{Reason: contracts.ErrNoRecord.Error()}
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	shares := record.DilutedSharesOutstanding
	if !(shares > 0) {
		return nil, &contracts.ValuationError{Ticker: result.Ticker, Reason: "diluted shares outstanding is not positive"}
	}

	values := make([]float64, 0, a.config.Simulations)
	for i := 0; i < a.config.Simulations; i++ {
		wacc := clamp(result.WACC+a.rng.NormFloat64()*a.config.WACCStdDev, valuation.MinRate, valuation.MaxRate)
		g := clamp(result.ChosenGrowthRate+a.rng.NormFloat64()*a.config.GrowthStdDev, valuation.MinGrowth, valuation.MaxGrowth)
		if g >= wacc {
			continue
		}

		v, ok := perShare(result, wacc, g, record.MarketCap, shares)
		if ok {
			values = append(values, v)
		}
	}

	minValid := int(math.Ceil(a.config.MinValid * float64(a.config.Simulations)))
	if len(values) == 0 || len(values) < minValid {
		return nil, fmt.Errorf("%w: %d of %d draws kept growth below WACC", ErrInsufficientSamples, len(values), a.config.Simulations)
	}

	sort.Float64s(values)

	out := &Result{
		RunID:        uuid.New(),
		Ticker:       result.Ticker,
		Config:       a.config,
		BaseValue:    result.IntrinsicValuePerShare,
		ValidSamples: len(values),
		Mean:         stat.Mean(values, nil),
		StdDev:       stat.StdDev(values, nil),
		Percentiles:  make(map[int]float64, len(reportedPercentiles)),
		Grid:         a.grid(result, record.MarketCap, shares),
		CreatedAt:    a.now(),
	}
	if math.IsNaN(out.StdDev) {
		out.StdDev = 0
	}

	for _, p := range reportedPercentiles {
		out.Percentiles[p] = stat.Quantile(float64(p)/100, stat.Empirical, values, nil)
	}

	if contracts.IsFinite(record.MarketCap) && record.MarketCap > 0 {
		out.MarketPrice = record.MarketCap / shares
		above := len(values) - sort.SearchFloat64s(values, math.Nextafter(out.MarketPrice, math.Inf(1)))
		out.ProbabilityAboveMarket = float64(above) / float64(len(values))
	}

	return out, nil
}

// grid evaluates a symmetric WACC × growth table around the base case
func (a *Analyzer) grid(result *contracts.ValuationResult, marketCap, shares float64) Grid {
	n := 2*a.config.GridSteps + 1
	g := Grid{
		WACC:   make([]float64, n),
		Growth: make([]float64, n),
		Values: make([][]*float64, n),
	}

	for k := 0; k < n; k++ {
		offset := float64(k-a.config.GridSteps) * a.config.GridStep
		g.WACC[k] = clamp(result.WACC+offset, valuation.MinRate, valuation.MaxRate)
		g.Growth[k] = clamp(result.ChosenGrowthRate+offset, valuation.MinGrowth, valuation.MaxGrowth)
	}

	for i, wacc := range g.WACC {
		g.Values[i] = make([]*float64, n)
		for j, growth := range g.Growth {
			if growth >= wacc {
				continue
			}
			if v, ok := perShare(result, wacc, growth, marketCap, shares); ok {
				g.Values[i][j] = &v
			}
		}
	}

	return g
}

// perShare revalues the projected FCF at the given rates
func perShare(result *contracts.ValuationResult, wacc, g, marketCap, shares float64) (float64, bool) {
	equity := valuation.EquityValue(result.ProjectedFCF, wacc, g, result.NetDebt, marketCap)
	if equity.UsedFallback {
		return 0, false
	}
	v := valuation.IntrinsicValuePerShare(equity.Value, shares)
	return v.Value, !v.UsedFallback
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
