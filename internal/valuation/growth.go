package valuation

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/fairvalue/internal/contracts"
)

// CAGR is the compound annual growth rate (last/first)^(1/(n−1)) − 1 of the
// series, clamped to [−0.50, 0.50]. Fewer than two points, a non-positive
// first value or a non-finite result yield industryRate × 0.8.
func CAGR(series contracts.FCFSeries, industryRate float64) contracts.Estimate {
	est, _ := cagr(series, industryRate)
	return est
}

func cagr(series contracts.FCFSeries, industryRate float64) (contracts.Estimate, []contracts.Degradation) {
	values := series.Values()
	n := len(values)

	fb := clamp(industryRate*IndustryCAGRFallback, MinGrowth, MaxGrowth)
	if !finite(fb) {
		fb = 0
	}
	fail := func(kind contracts.DegradationKind, format string, args ...interface{}) (contracts.Estimate, []contracts.Degradation) {
		return fallbackTo(fb), []contracts.Degradation{degrade(kind, StageCAGR, fb, format, args...)}
	}

	if n < 2 {
		return fail(contracts.KindMissingInput, "need at least 2 FCF observations, have %d", n)
	}

	first, last := values[0], values[n-1]
	if !finite(first, last) {
		return fail(contracts.KindMissingInput, "FCF endpoints missing")
	}
	if first <= 0 {
		return fail(contracts.KindDegenerateInput, "first FCF %v is not positive", first)
	}

	g := math.Pow(last/first, 1/float64(n-1)) - 1
	if !finite(g) {
		return fail(contracts.KindDegenerateInput, "CAGR undefined for FCF %v → %v", first, last)
	}

	return estimate(clamp(g, MinGrowth, MaxGrowth)), nil
}

// ReinvestmentTimesROIC is the growth implied by reinvesting at the current
// return on invested capital:
//
//	ROIC = ebit(1−t)/IC, reinvestment = (capex+ΔWC)/(ebit(1−t))
//
// It needs IC > 0 and ebit > 0, otherwise 0. Clamped to [−0.50, 0.50].
func ReinvestmentTimesROIC(ebit, taxRate, investedCapital, capex, changeInWorkingCapital float64) contracts.Estimate {
	est, _ := reinvestmentTimesROIC(ebit, taxRate, investedCapital, capex, changeInWorkingCapital)
	return est
}

func reinvestmentTimesROIC(ebit, t, ic, capex, dwc float64) (contracts.Estimate, []contracts.Degradation) {
	if !finite(ebit, t, ic, capex, dwc) {
		return fallbackTo(0), []contracts.Degradation{
			degrade(contracts.KindMissingInput, StageReinvestment, 0, "EBIT, invested capital or reinvestment input missing"),
		}
	}
	if ic <= 0 || ebit <= 0 {
		return fallbackTo(0), []contracts.Degradation{
			degrade(contracts.KindDegenerateInput, StageReinvestment, 0,
				"needs positive EBIT and invested capital (ebit=%v ic=%v)", ebit, ic),
		}
	}

	nopat := ebit * (1 - t)
	if nopat <= 0 {
		return fallbackTo(0), []contracts.Degradation{
			degrade(contracts.KindDegenerateInput, StageReinvestment, 0, "after-tax operating income is not positive"),
		}
	}

	roic := nopat / ic
	reinvestment := (capex + dwc) / nopat

	return estimate(clamp(reinvestment*roic, MinGrowth, MaxGrowth)), nil
}

// GrowthInputs are the estimates blended into the chosen growth rate
type GrowthInputs struct {
	CAGR               float64
	ReinvestmentGrowth float64
	IndustryRate       float64
	WACC               float64
	Beta               float64
	Years              int // historical FCF observations behind CAGR
}

// blendWeights returns the cagr, reinvestment and industry weights.
// They are not renormalized after the beta adjustment.
func blendWeights(beta float64, years int) []float64 {
	wc, wr, wi := 0.2, 0.3, 0.3
	if years >= 3 {
		wc = 0.4
	}

	switch {
	case beta > 1.5:
		// 변동성 큰 종목은 자체 이력 비중 확대
		wi *= 0.8
		wc *= 1.2
	case beta < 0.8:
		// 안정적인 종목은 업종 벤치마크 비중 확대
		wi *= 1.2
		wc *= 0.8
	}

	return []float64{wc, wr, wi}
}

// ChosenGrowthRate blends CAGR, reinvestment growth and the industry rate,
// then bounds the blend by floor max(0.01, ind×0.5) and ceiling
// min(wacc−0.01, ind×1.2), the ceiling applied last. The result is always
// below WACC. Any non-finite stage yields min(wacc−0.015, 0.03).
func ChosenGrowthRate(in GrowthInputs) contracts.Estimate {
	est, _ := chosenGrowthRate(in)
	return est
}

func chosenGrowthRate(in GrowthInputs) (contracts.Estimate, []contracts.Degradation) {
	w := in.WACC
	if !finite(w) {
		w = DefaultWACC
	}
	fb := math.Min(w-GrowthFallbackMargin, GrowthFallbackCap)

	if !finite(in.WACC, in.CAGR, in.ReinvestmentGrowth, in.IndustryRate) {
		return fallbackTo(fb), []contracts.Degradation{
			degrade(contracts.KindMissingInput, StageChosenGrowth, fb, "growth blend input not finite"),
		}
	}

	weights := blendWeights(in.Beta, in.Years)
	blended := floats.Dot(weights, []float64{in.CAGR, in.ReinvestmentGrowth, in.IndustryRate})
	if !finite(blended) {
		return fallbackTo(fb), []contracts.Degradation{
			degrade(contracts.KindDegenerateInput, StageChosenGrowth, fb, "growth blend not finite"),
		}
	}

	floor := math.Max(MinRate, in.IndustryRate*0.5)
	ceiling := math.Min(in.WACC-GrowthCeilingMargin, in.IndustryRate*1.2)

	g := math.Min(math.Max(blended, floor), ceiling)
	if g >= in.WACC {
		return fallbackTo(fb), []contracts.Degradation{
			degrade(contracts.KindInvariantViolation, StageChosenGrowth, fb,
				"bounded growth %.4f not below WACC %.4f", g, in.WACC),
		}
	}

	return estimate(g), nil
}

// GrowthEstimator derives the growth components of a record
type GrowthEstimator struct{}

// Estimate computes CAGR, reinvestment growth and the chosen growth rate.
// It also returns the industry rate it used.
func (GrowthEstimator) Estimate(record *contracts.FinancialRecord, series contracts.FCFSeries, costs contracts.CostProfile) (contracts.GrowthEstimate, float64, []contracts.Degradation) {
	var issues []contracts.Degradation

	industry := record.IndustryGrowthRate
	if !finite(industry) {
		industry = DefaultIndustryRate
		issues = append(issues, degrade(contracts.KindMissingInput, StageIndustryRate, industry,
			"industry growth rate missing"))
	}

	c, w := cagr(series, industry)
	issues = append(issues, w...)

	r, w := reinvestmentTimesROIC(record.EBIT, costs.TaxRate, record.InvestedCapital,
		record.Capex, record.ChangeInWorkingCapital)
	issues = append(issues, w...)

	g, w := chosenGrowthRate(GrowthInputs{
		CAGR:               c.Value,
		ReinvestmentGrowth: r.Value,
		IndustryRate:       industry,
		WACC:               costs.WACC,
		Beta:               record.Beta,
		Years:              len(series),
	})
	issues = append(issues, w...)

	return contracts.GrowthEstimate{
		CAGR:               c.Value,
		ReinvestmentGrowth: r.Value,
		ChosenGrowthRate:   g.Value,
	}, industry, issues
}
