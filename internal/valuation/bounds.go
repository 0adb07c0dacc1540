package valuation

import (
	"fmt"
	"math"

	"github.com/wonny/fairvalue/internal/contracts"
)

// Rate bands and documented fallbacks
// ⭐ SSOT: 밸류에이션 기본값/한계값은 여기서만
const (
	MinRate = 0.01
	MaxRate = 0.50

	MinGrowth = -0.50
	MaxGrowth = 0.50

	DefaultCostOfEquity  = 0.10
	DefaultCostOfDebt    = 0.05
	AssumedInterestRate  = 0.05 // nominal rate when interest expense is not reported
	StatutoryTaxRate     = 0.21
	DefaultWACC          = 0.10
	DefaultIndustryRate  = 0.05
	IndustryCAGRFallback = 0.8 // CAGR fallback = industry rate × 0.8

	GrowthCeilingMargin  = 0.01
	GrowthFallbackMargin = 0.015
	GrowthFallbackCap    = 0.03

	DefaultHorizon = 5

	MaxEquityValue = 1e15
	MaxPerShare    = 1e6
)

// Stage names used in degradations and logs
const (
	StageCostOfEquity  = "cost_of_equity"
	StageCostOfDebt    = "cost_of_debt"
	StageTaxRate       = "tax_rate"
	StageWACC          = "wacc"
	StageIndustryRate  = "industry_rate"
	StageCAGR          = "cagr"
	StageReinvestment  = "reinvestment_growth"
	StageChosenGrowth  = "chosen_growth_rate"
	StageProjection    = "projection"
	StageNetDebt       = "net_debt"
	StageEquityValue   = "equity_value"
	StagePerShareValue = "intrinsic_value_per_share"
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if !contracts.IsFinite(v) {
			return false
		}
	}
	return true
}

func estimate(v float64) contracts.Estimate {
	return contracts.Estimate{Value: v}
}

func fallbackTo(v float64) contracts.Estimate {
	return contracts.Estimate{Value: v, UsedFallback: true}
}

func degrade(kind contracts.DegradationKind, stage string, value float64, format string, args ...interface{}) contracts.Degradation {
	return contracts.Degradation{
		Kind:     kind,
		Stage:    stage,
		Message:  fmt.Sprintf(format, args...),
		Fallback: value,
	}
}
