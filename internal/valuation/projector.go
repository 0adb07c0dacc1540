package valuation

import (
	"math"

	"github.com/wonny/fairvalue/internal/contracts"
)

// ProjectFutureFCF compounds the most recent FCF by cagr for horizon periods:
// FCF[t] = FCF[t−1](1+cagr). An empty series or a non-positive latest value
// yields []float64{0} and reports the fallback. horizon ≤ 0 means DefaultHorizon.
// Periods beyond ±1e15 are clamped and reported as a fallback.
func ProjectFutureFCF(series contracts.FCFSeries, cagr float64, horizon int) ([]float64, bool) {
	projected, issues := projectFutureFCF(series, cagr, horizon)
	return projected, len(issues) > 0
}

func projectFutureFCF(series contracts.FCFSeries, cagr float64, horizon int) ([]float64, []contracts.Degradation) {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	latest, found := series.Latest()
	if !found {
		return []float64{0}, []contracts.Degradation{
			degrade(contracts.KindMissingInput, StageProjection, 0, "no historical FCF to project from"),
		}
	}
	if !finite(latest.FCF) || latest.FCF <= 0 {
		return []float64{0}, []contracts.Degradation{
			degrade(contracts.KindDegenerateInput, StageProjection, 0,
				"latest FCF %v (%d) is not a positive base", latest.FCF, latest.Year),
		}
	}

	var issues []contracts.Degradation
	if !finite(cagr) {
		issues = append(issues, degrade(contracts.KindMissingInput, StageProjection, 0, "CAGR missing, projecting flat"))
		cagr = 0
	}

	projected := make([]float64, horizon)
	prev := latest.FCF
	clamped := -1
	for t := range projected {
		next := prev * (1 + cagr)
		if !finite(next) || math.Abs(next) > MaxEquityValue {
			// 오버플로 방지: 한 번 넘으면 이후 기간도 상한에 고정
			next = clamp(next, -MaxEquityValue, MaxEquityValue)
			if clamped < 0 {
				clamped = t
			}
		}
		prev = next
		projected[t] = prev
	}
	if clamped >= 0 {
		issues = append(issues, degrade(contracts.KindDegenerateInput, StageProjection, MaxEquityValue,
			"projected FCF exceeds %.0e from period %d, clamped", MaxEquityValue, clamped+1))
	}

	return projected, issues
}

// CashFlowProjector extrapolates future FCF over a fixed horizon
type CashFlowProjector struct {
	Horizon int
}

// Project runs ProjectFutureFCF with the projector's horizon
func (p CashFlowProjector) Project(series contracts.FCFSeries, cagr float64) ([]float64, []contracts.Degradation) {
	return projectFutureFCF(series, cagr, p.Horizon)
}
