package valuation

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/wonny/fairvalue/internal/contracts"
)

// EquityValue discounts the projected FCF at wacc, adds the Gordon-growth
// terminal value FCF_n(1+g)/(wacc−g) discounted by (1+wacc)^n, and subtracts
// net debt. wacc ≤ g yields marketCap. Clamped to ±1e15.
func EquityValue(projected []float64, wacc, growth, netDebt, marketCap float64) contracts.Estimate {
	est, _ := equityValue(projected, wacc, growth, netDebt, marketCap)
	return est
}

func equityValue(projected []float64, wacc, g, netDebt, marketCap float64) (contracts.Estimate, []contracts.Degradation) {
	fb := marketCap
	if !finite(fb) {
		fb = 0
	}
	fb = clamp(fb, -MaxEquityValue, MaxEquityValue)

	if !finite(wacc, g, netDebt) {
		return fallbackTo(fb), []contracts.Degradation{
			degrade(contracts.KindMissingInput, StageEquityValue, fb, "discount inputs missing, using market cap"),
		}
	}
	if wacc <= g {
		return fallbackTo(fb), []contracts.Degradation{
			degrade(contracts.KindInvariantViolation, StageEquityValue, fb,
				"WACC %.4f not above growth %.4f, using market cap", wacc, g),
		}
	}
	if len(projected) == 0 {
		return fallbackTo(fb), []contracts.Degradation{
			degrade(contracts.KindMissingInput, StageEquityValue, fb, "no projected FCF, using market cap"),
		}
	}

	n := len(projected)
	discounts := make([]float64, n)
	for t := range discounts {
		discounts[t] = 1 / math.Pow(1+wacc, float64(t+1))
	}
	pv := floats.Dot(projected, discounts)

	terminal := projected[n-1] * (1 + g) / (wacc - g)
	pvTerminal := terminal * discounts[n-1]

	equity := pv + pvTerminal - netDebt
	if !finite(equity) {
		return fallbackTo(fb), []contracts.Degradation{
			degrade(contracts.KindDegenerateInput, StageEquityValue, fb, "equity value not finite, using market cap"),
		}
	}

	return estimate(clamp(equity, -MaxEquityValue, MaxEquityValue)), nil
}

// IntrinsicValuePerShare is equity / shares when shares > 0, else 0.
// Clamped to ±1e6.
func IntrinsicValuePerShare(equity, dilutedShares float64) contracts.Estimate {
	est, _ := intrinsicValuePerShare(equity, dilutedShares)
	return est
}

func intrinsicValuePerShare(equity, shares float64) (contracts.Estimate, []contracts.Degradation) {
	if !finite(shares) || shares <= 0 {
		return fallbackTo(0), []contracts.Degradation{
			degrade(contracts.KindDegenerateInput, StagePerShareValue, 0,
				"diluted shares outstanding %v is not positive", shares),
		}
	}
	if !finite(equity) {
		return fallbackTo(0), []contracts.Degradation{
			degrade(contracts.KindMissingInput, StagePerShareValue, 0, "equity value missing"),
		}
	}

	return estimate(clamp(equity/shares, -MaxPerShare, MaxPerShare)), nil
}

// NetDebt is totalDebt − cash. A missing side counts as 0.
// Clamped to ±1e15.
func NetDebt(totalDebt, cash float64) contracts.Estimate {
	est, _ := netDebt(totalDebt, cash)
	return est
}

func netDebt(debt, cash float64) (contracts.Estimate, []contracts.Degradation) {
	var issues []contracts.Degradation
	if !finite(debt) {
		debt = 0
		issues = append(issues, degrade(contracts.KindMissingInput, StageNetDebt, 0, "total debt missing"))
	}
	if !finite(cash) {
		cash = 0
		issues = append(issues, degrade(contracts.KindMissingInput, StageNetDebt, 0, "cash and equivalents missing"))
	}

	nd := debt - cash
	if !finite(nd) || math.Abs(nd) > MaxEquityValue {
		nd = clamp(nd, -MaxEquityValue, MaxEquityValue)
		issues = append(issues, degrade(contracts.KindDegenerateInput, StageNetDebt, nd,
			"net debt of debt %v and cash %v exceeds %.0e, clamped", debt, cash, MaxEquityValue))
	}
	return contracts.Estimate{Value: nd, UsedFallback: len(issues) > 0}, issues
}

// Config holds engine settings
type Config struct {
	Horizon int // projection periods
}

// DefaultConfig returns the five-period configuration
func DefaultConfig() Config {
	return Config{Horizon: DefaultHorizon}
}

// Engine runs the DCF pipeline
// CostModel → GrowthEstimator → CashFlowProjector → equity value.
// It holds no per-valuation state and is safe for concurrent use.
// ⭐ SSOT: DCF 계산은 여기서만
type Engine struct {
	costs     CostModel
	growth    GrowthEstimator
	projector CashFlowProjector
	log       zerolog.Logger
}

// NewEngine creates an engine with the default configuration
func NewEngine(log zerolog.Logger) *Engine {
	return NewEngineWithConfig(DefaultConfig(), log)
}

// NewEngineWithConfig creates an engine with a custom configuration
func NewEngineWithConfig(cfg Config, log zerolog.Logger) *Engine {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	return &Engine{
		projector: CashFlowProjector{Horizon: cfg.Horizon},
		log:       log.With().Str("component", "valuation.engine").Logger(),
	}
}

// Horizon returns the projection length
func (e *Engine) Horizon() int {
	return e.projector.Horizon
}

// Value values one record. It never panics on bad input: a nil record
// yields a failed result, and every other problem degrades to a default.
func (e *Engine) Value(record *contracts.FinancialRecord, series contracts.FCFSeries) *contracts.ValuationResult {
	if record == nil {
		e.log.Error().Err(contracts.ErrNoRecord).Msg("valuation impossible")
		return &contracts.ValuationResult{
			Status:  contracts.StatusFailed,
			Failure: contracts.ErrNoRecord.Error(),
		}
	}

	var warnings []contracts.Degradation

	costs, w := e.costs.Profile(record)
	warnings = append(warnings, w...)

	growth, industry, w := e.growth.Estimate(record, series, costs)
	warnings = append(warnings, w...)

	// 프로젝션은 블렌딩된 성장률이 아닌 CAGR 사용
	projected, w := e.projector.Project(series, growth.CAGR)
	warnings = append(warnings, w...)

	nd, w := netDebt(record.TotalDebt, record.CashAndCashEquivalents)
	warnings = append(warnings, w...)

	equity, w := equityValue(projected, costs.WACC, growth.ChosenGrowthRate, nd.Value, record.MarketCap)
	warnings = append(warnings, w...)

	perShare, w := intrinsicValuePerShare(equity.Value, record.DilutedSharesOutstanding)
	warnings = append(warnings, w...)

	result := &contracts.ValuationResult{
		Ticker:                 record.Ticker,
		WACC:                   costs.WACC,
		IndustryRate:           industry,
		ReinvestmentRate:       growth.ReinvestmentGrowth,
		CAGR:                   growth.CAGR,
		ChosenGrowthRate:       growth.ChosenGrowthRate,
		EquityValue:            equity.Value,
		IntrinsicValuePerShare: perShare.Value,
		Costs:                  costs,
		ProjectedFCF:           projected,
		NetDebt:                nd.Value,
		Status:                 contracts.StatusComputed,
		Warnings:               warnings,
	}
	if len(warnings) > 0 {
		result.Status = contracts.StatusDegraded
	}

	e.logResult(result)
	return result
}

func (e *Engine) logResult(result *contracts.ValuationResult) {
	for _, d := range result.Warnings {
		e.log.Warn().
			Str("ticker", result.Ticker).
			Str("stage", d.Stage).
			Str("kind", string(d.Kind)).
			Float64("fallback", d.Fallback).
			Msg(d.Message)
	}

	e.log.Debug().
		Str("ticker", result.Ticker).
		Str("status", string(result.Status)).
		Float64("wacc", result.WACC).
		Float64("growth", result.ChosenGrowthRate).
		Float64("value_per_share", result.IntrinsicValuePerShare).
		Int("warnings", len(result.Warnings)).
		Msg("valuation computed")
}
