package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fairvalue/internal/contracts"
)

const tolerance = 1e-9

func TestCostOfEquity(t *testing.T) {
	tests := []struct {
		name         string
		rf, beta, rm float64
		want         float64
		fallback     bool
	}{
		{"capm", 0.04, 1.2, 0.095, 0.106, false},
		{"beta zero is risk free", 0.04, 0, 0.095, 0.04, false},
		{"clamped high", 0.04, 20, 0.095, MaxRate, false},
		{"clamped low", 0.04, -5, 0.095, MinRate, false},
		{"missing beta", 0.04, math.NaN(), 0.095, DefaultCostOfEquity, true},
		{"infinite rate", math.Inf(1), 1, 0.095, DefaultCostOfEquity, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CostOfEquity(tt.rf, tt.beta, tt.rm)
			assert.InDelta(t, tt.want, got.Value, tolerance)
			assert.Equal(t, tt.fallback, got.UsedFallback)
		})
	}
}

func TestCostOfDebt(t *testing.T) {
	tests := []struct {
		name           string
		interest, debt float64
		want           float64
		fallback       bool
	}{
		{"ratio", 25_000, 500_000, 0.05, false},
		{"clamped high", 10, 1, MaxRate, false},
		{"clamped low", 1, 1_000_000, MinRate, false},
		{"zero interest assumes five percent", 0, 1_000_000, AssumedInterestRate, true},
		{"zero debt and zero interest", 0, 0, AssumedInterestRate, true},
		{"missing interest", math.NaN(), 100, DefaultCostOfDebt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CostOfDebt(tt.interest, tt.debt)
			assert.InDelta(t, tt.want, got.Value, tolerance)
			assert.Equal(t, tt.fallback, got.UsedFallback)
		})
	}
}

func TestCostOfDebt_DegenerateDebtMatchesUnitDebt(t *testing.T) {
	zero := CostOfDebt(10, 0)
	one := CostOfDebt(10, 1)

	assert.Equal(t, one.Value, zero.Value)
	assert.True(t, zero.UsedFallback)

	negative := CostOfDebt(10, -50)
	assert.Equal(t, one.Value, negative.Value)
}

func TestTaxRate(t *testing.T) {
	tests := []struct {
		name              string
		provision, pretax float64
		want              float64
		fallback          bool
	}{
		{"effective", 210_000, 1_000_000, 0.21, false},
		{"zero tax", 0, 1_000_000, 0, false},
		{"full tax", 100, 100, 1, false},
		{"above one", 300, 100, StatutoryTaxRate, true},
		{"negative from loss", 50, -100, StatutoryTaxRate, true},
		{"zero pretax", 50, 0, StatutoryTaxRate, true},
		{"missing", math.NaN(), 100, StatutoryTaxRate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TaxRate(tt.provision, tt.pretax)
			assert.InDelta(t, tt.want, got.Value, tolerance)
			assert.Equal(t, tt.fallback, got.UsedFallback)
		})
	}
}

func TestWACC(t *testing.T) {
	got := WACC(2_000_000, 500_000, 0.106, 0.05, 0.21)
	assert.InDelta(t, 0.8*0.106+0.2*0.05*0.79, got.Value, tolerance)
	assert.False(t, got.UsedFallback)

	t.Run("debt free", func(t *testing.T) {
		got := WACC(1_000_000, 0, 0.12, 0.05, 0.21)
		assert.InDelta(t, 0.12, got.Value, 1e-6)
		assert.False(t, got.UsedFallback, "zero debt is normal")
	})

	t.Run("all zero capital", func(t *testing.T) {
		got := WACC(0, 0, 0.12, 0.05, 0)
		assert.InDelta(t, 0.5*0.12+0.5*0.05, got.Value, tolerance)
		assert.True(t, got.UsedFallback)
	})

	t.Run("missing", func(t *testing.T) {
		got := WACC(math.NaN(), 0, 0.12, 0.05, 0.21)
		assert.Equal(t, DefaultWACC, got.Value)
		assert.True(t, got.UsedFallback)
	})

	t.Run("clamped", func(t *testing.T) {
		assert.Equal(t, MinRate, WACC(1, 1e12, 0.01, 0.01, 1).Value)
	})
}

func TestCostModel_Profile(t *testing.T) {
	rec := scenarioRecord()

	profile, issues := CostModel{}.Profile(&rec)
	assert.Empty(t, issues)
	assert.InDelta(t, 0.106, profile.CostOfEquity, tolerance)
	assert.InDelta(t, 0.05, profile.CostOfDebt, tolerance)
	assert.InDelta(t, 0.21, profile.TaxRate, tolerance)
	assert.InDelta(t, 0.0927, profile.WACC, 1e-6)
}

func TestCostModel_ProfileIndependentFallbacks(t *testing.T) {
	rec := scenarioRecord()
	rec.Beta = math.NaN()
	rec.PretaxIncome = 0

	profile, issues := CostModel{}.Profile(&rec)
	require.Len(t, issues, 2)

	assert.Equal(t, StageCostOfEquity, issues[0].Stage)
	assert.Equal(t, contracts.KindMissingInput, issues[0].Kind)
	assert.Equal(t, StageTaxRate, issues[1].Stage)
	assert.Equal(t, contracts.KindDegenerateInput, issues[1].Kind)

	// cost of debt untouched by the other failures
	assert.InDelta(t, 0.05, profile.CostOfDebt, tolerance)
	assert.Equal(t, DefaultCostOfEquity, profile.CostOfEquity)
}
