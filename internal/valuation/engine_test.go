package valuation

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fairvalue/internal/contracts"
)

func scenarioRecord() contracts.FinancialRecord {
	return contracts.FinancialRecord{
		Ticker:                   "SCEN",
		MarketCap:                2_000_000,
		TotalDebt:                500_000,
		CashAndCashEquivalents:   100_000,
		Beta:                     1.2,
		TreasuryRate:             0.04,
		BenchmarkReturn:          0.095,
		InterestExpense:          25_000,
		TaxProvision:             210_000,
		PretaxIncome:             1_000_000,
		EBIT:                     400_000,
		InvestedCapital:          1_200_000,
		Capex:                    50_000,
		ChangeInWorkingCapital:   10_000,
		DilutedSharesOutstanding: 100_000,
	}
}

func scenarioSeries() contracts.FCFSeries {
	return contracts.NewFCFSeries(map[int]float64{
		2021: 100_000,
		2022: 115_000,
		2023: 132_000,
	})
}

func TestEngine_Scenario(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	rec := scenarioRecord()

	result := engine.Value(&rec, scenarioSeries())
	require.NoError(t, result.Err())

	assert.Equal(t, "SCEN", result.Ticker)
	assert.InDelta(t, 0.1489, result.CAGR, 1e-4)
	assert.GreaterOrEqual(t, result.WACC, 0.08)
	assert.LessOrEqual(t, result.WACC, 0.14)
	assert.Less(t, result.ChosenGrowthRate, result.WACC)
	assert.Greater(t, result.IntrinsicValuePerShare, 0.0)

	assert.InDelta(t, 400_000, result.NetDebt, tolerance)
	assert.Len(t, result.ProjectedFCF, DefaultHorizon)
	assert.InDelta(t, 0.05, result.ReinvestmentRate, tolerance)
	assert.Equal(t, contracts.StatusComputed, result.Status)
	assert.Empty(t, result.Warnings)
}

func TestEngine_Idempotent(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	rec := scenarioRecord()
	rec.Beta = math.NaN()
	series := scenarioSeries()

	first := engine.Value(&rec, series)
	second := engine.Value(&rec, series)

	assert.Equal(t, first, second)
	assert.Equal(t, math.Float64bits(first.IntrinsicValuePerShare), math.Float64bits(second.IntrinsicValuePerShare))
}

func TestEngine_NilRecord(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	result := engine.Value(nil, scenarioSeries())
	require.NotNil(t, result)

	assert.Equal(t, contracts.StatusFailed, result.Status)
	err := result.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrValuationImpossible))
}

func TestEngine_DegradedIsDistinguishable(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	rec := scenarioRecord()
	rec.InterestExpense = 0
	rec.DilutedSharesOutstanding = 0

	result := engine.Value(&rec, scenarioSeries())

	assert.NoError(t, result.Err())
	assert.Equal(t, contracts.StatusDegraded, result.Status)
	assert.Equal(t, 0.0, result.IntrinsicValuePerShare)

	stages := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		stages = append(stages, w.Stage)
	}
	assert.Contains(t, stages, StageCostOfDebt)
	assert.Contains(t, stages, StagePerShareValue)
}

func TestEngine_EmptyHistory(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	rec := scenarioRecord()

	result := engine.Value(&rec, nil)

	assert.Equal(t, []float64{0}, result.ProjectedFCF)
	assert.InDelta(t, -result.NetDebt, result.EquityValue, tolerance)
	assert.Equal(t, contracts.StatusDegraded, result.Status)
}

func TestEngine_LogsDegradations(t *testing.T) {
	var buf bytes.Buffer
	engine := NewEngine(zerolog.New(&buf))
	rec := scenarioRecord()
	rec.TaxProvision = math.NaN()

	engine.Value(&rec, scenarioSeries())

	assert.Contains(t, buf.String(), `"stage":"tax_rate"`)
	assert.Contains(t, buf.String(), `"kind":"missing_input"`)
	assert.Contains(t, buf.String(), `"component":"valuation.engine"`)
}

func TestEngine_CustomHorizon(t *testing.T) {
	engine := NewEngineWithConfig(Config{Horizon: 10}, zerolog.Nop())
	rec := scenarioRecord()

	assert.Equal(t, 10, engine.Horizon())
	assert.Len(t, engine.Value(&rec, scenarioSeries()).ProjectedFCF, 10)
}

func TestEquityValue(t *testing.T) {
	got := EquityValue([]float64{110, 121}, 0.10, 0.0, 0, 5_000)
	// 100 + 100 + TV 1210 discounted 1000
	assert.InDelta(t, 1200, got.Value, 1e-6)
	assert.False(t, got.UsedFallback)

	t.Run("net debt subtracted", func(t *testing.T) {
		got := EquityValue([]float64{110, 121}, 0.10, 0.0, 200, 5_000)
		assert.InDelta(t, 1000, got.Value, 1e-6)
	})

	t.Run("clamped", func(t *testing.T) {
		got := EquityValue([]float64{1e14}, 0.02, 0.0199999, 0, 5_000)
		assert.Equal(t, MaxEquityValue, got.Value)
	})
}

func TestEquityValue_WACCViolationUsesMarketCap(t *testing.T) {
	tests := []struct {
		name         string
		wacc, growth float64
	}{
		{"growth above wacc", 0.05, 0.06},
		{"growth equals wacc", 0.08, 0.08},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EquityValue([]float64{100, 110, 121}, tt.wacc, tt.growth, 50, 2_000_000)
			assert.Equal(t, 2_000_000.0, got.Value)
			assert.True(t, got.UsedFallback)
		})
	}
}

func TestIntrinsicValuePerShare(t *testing.T) {
	tests := []struct {
		name         string
		equity       float64
		shares       float64
		want         float64
		usedFallback bool
	}{
		{"divides", 1_000_000, 100_000, 10, false},
		{"zero shares", 1_000_000, 0, 0, true},
		{"negative shares", 1_000_000, -5, 0, true},
		{"missing shares", 1_000_000, math.NaN(), 0, true},
		{"clamped", 1e15, 1, MaxPerShare, false},
		{"negative equity", -1_000_000, 100_000, -10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntrinsicValuePerShare(tt.equity, tt.shares)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.usedFallback, got.UsedFallback)
		})
	}
}

func TestNetDebt(t *testing.T) {
	assert.Equal(t, 400_000.0, NetDebt(500_000, 100_000).Value)

	got := NetDebt(math.NaN(), 100)
	assert.Equal(t, -100.0, got.Value)
	assert.True(t, got.UsedFallback)
}

func TestNetDebt_Clamped(t *testing.T) {
	tests := []struct {
		name       string
		debt, cash float64
		want       float64
	}{
		{"overflows to +Inf", 1.7e308, -1.7e308, MaxEquityValue},
		{"overflows to -Inf", -1.7e308, 1.7e308, -MaxEquityValue},
		{"finite but beyond bound", 5e15, 0, MaxEquityValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := netDebt(tt.debt, tt.cash)
			assert.Equal(t, tt.want, got.Value)
			assert.True(t, got.UsedFallback)
			require.Len(t, issues, 1)
			assert.Equal(t, StageNetDebt, issues[0].Stage)
		})
	}
}

func TestEngine_ExtremeInputsStayEncodable(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	rec := scenarioRecord()
	rec.MarketCap = 1.7e308
	rec.TotalDebt = 1.7e308
	rec.CashAndCashEquivalents = -1.7e308
	rec.InterestExpense = 1e300
	series := contracts.NewFCFSeries(map[int]float64{2022: 1, 2023: 1e308})

	result := engine.Value(&rec, series)
	require.NoError(t, result.Err())
	assert.Equal(t, contracts.StatusDegraded, result.Status)

	assert.Equal(t, MaxEquityValue, result.NetDebt)
	for _, v := range result.ProjectedFCF {
		assert.LessOrEqual(t, math.Abs(v), MaxEquityValue)
	}

	stages := make(map[string]bool)
	for _, d := range result.Warnings {
		stages[d.Stage] = true
	}
	assert.True(t, stages[StageProjection])
	assert.True(t, stages[StageNetDebt])

	_, err := json.Marshal(result)
	assert.NoError(t, err)
}

// randomRecord draws inputs across degenerate, missing and ordinary ranges
func randomRecord(r *rand.Rand) contracts.FinancialRecord {
	pick := func(lo, hi float64) float64 {
		switch r.Intn(12) {
		case 0:
			return math.NaN()
		case 1:
			return 0
		case 2:
			return -(lo + r.Float64()*(hi-lo))
		default:
			return lo + r.Float64()*(hi-lo)
		}
	}

	return contracts.FinancialRecord{
		Ticker:                   "RAND",
		MarketCap:                pick(1, 1e12),
		TotalDebt:                pick(0, 1e11),
		CashAndCashEquivalents:   pick(0, 1e10),
		InterestExpense:          pick(0, 1e9),
		TaxProvision:             pick(0, 1e9),
		PretaxIncome:             pick(0, 5e9),
		EBIT:                     pick(0, 5e9),
		InvestedCapital:          pick(0, 5e10),
		Capex:                    pick(0, 1e9),
		ChangeInWorkingCapital:   pick(0, 1e8),
		DilutedSharesOutstanding: pick(0, 1e10),
		Beta:                     pick(0, 3),
		TreasuryRate:             pick(0, 0.08),
		BenchmarkReturn:          pick(0, 0.15),
		IndustryGrowthRate:       pick(0, 0.3),
	}
}

func randomSeries(r *rand.Rand) contracts.FCFSeries {
	byYear := make(map[int]float64)
	n := r.Intn(7)
	for i := 0; i < n; i++ {
		byYear[2015+i*(1+r.Intn(2))] = (r.Float64() - 0.2) * 1e9
	}
	return contracts.NewFCFSeries(byYear)
}

func TestEngine_Invariants(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		rec := randomRecord(r)
		series := randomSeries(r)

		result := engine.Value(&rec, series)
		require.NoError(t, result.Err())

		c := result.Costs
		assert.True(t, c.CostOfEquity >= MinRate && c.CostOfEquity <= MaxRate, "cost of equity %v", c.CostOfEquity)
		assert.True(t, c.CostOfDebt >= MinRate && c.CostOfDebt <= MaxRate, "cost of debt %v", c.CostOfDebt)
		assert.True(t, c.WACC >= MinRate && c.WACC <= MaxRate, "wacc %v", c.WACC)
		assert.True(t, c.TaxRate >= 0 && c.TaxRate <= 1, "tax rate %v", c.TaxRate)

		assert.Less(t, result.ChosenGrowthRate, result.WACC, "record %d", i)
		assert.True(t, contracts.IsFinite(result.EquityValue))
		assert.True(t, contracts.IsFinite(result.IntrinsicValuePerShare))
		assert.LessOrEqual(t, math.Abs(result.EquityValue), MaxEquityValue)
		assert.LessOrEqual(t, math.Abs(result.IntrinsicValuePerShare), MaxPerShare)

		if !(rec.DilutedSharesOutstanding > 0) {
			assert.Equal(t, 0.0, result.IntrinsicValuePerShare)
		}
	}
}
