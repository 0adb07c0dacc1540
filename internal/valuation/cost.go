package valuation

import (
	"math"

	"github.com/wonny/fairvalue/internal/contracts"
)

// CostOfEquity is the CAPM rate rf + β(rm − rf), clamped to [0.01, 0.50].
// A missing input yields DefaultCostOfEquity.
func CostOfEquity(treasuryRate, beta, benchmarkReturn float64) contracts.Estimate {
	est, _ := costOfEquity(treasuryRate, beta, benchmarkReturn)
	return est
}

func costOfEquity(rf, beta, rm float64) (contracts.Estimate, []contracts.Degradation) {
	if !finite(rf, beta, rm) {
		return fallbackTo(DefaultCostOfEquity), []contracts.Degradation{
			degrade(contracts.KindMissingInput, StageCostOfEquity, DefaultCostOfEquity,
				"CAPM input missing (rf=%v beta=%v rm=%v)", rf, beta, rm),
		}
	}

	ke := rf + beta*(rm-rf)
	if !finite(ke) {
		return fallbackTo(DefaultCostOfEquity), []contracts.Degradation{
			degrade(contracts.KindDegenerateInput, StageCostOfEquity, DefaultCostOfEquity, "CAPM result not finite"),
		}
	}

	return estimate(clamp(ke, MinRate, MaxRate)), nil
}

// CostOfDebt is interestExpense / totalDebt, clamped to [0.01, 0.50].
// totalDebt ≤ 0 is treated as 1. interestExpense ≤ 0 is replaced by
// totalDebt × AssumedInterestRate. A missing input yields DefaultCostOfDebt.
func CostOfDebt(interestExpense, totalDebt float64) contracts.Estimate {
	est, _ := costOfDebt(interestExpense, totalDebt)
	return est
}

func costOfDebt(interest, debt float64) (contracts.Estimate, []contracts.Degradation) {
	if !finite(interest, debt) {
		return fallbackTo(DefaultCostOfDebt), []contracts.Degradation{
			degrade(contracts.KindMissingInput, StageCostOfDebt, DefaultCostOfDebt,
				"interest expense or total debt missing (interest=%v debt=%v)", interest, debt),
		}
	}

	var issues []contracts.Degradation
	if debt <= 0 {
		issues = append(issues, degrade(contracts.KindDegenerateInput, StageCostOfDebt, 1,
			"total debt %v is not positive, using 1", debt))
		debt = 1
	}
	if interest <= 0 {
		interest = debt * AssumedInterestRate
		issues = append(issues, degrade(contracts.KindDegenerateInput, StageCostOfDebt, interest,
			"interest expense not reported, assuming %.0f%% of debt", AssumedInterestRate*100))
	}

	kd := clamp(interest/debt, MinRate, MaxRate)
	return contracts.Estimate{Value: kd, UsedFallback: len(issues) > 0}, issues
}

// TaxRate is taxProvision / pretaxIncome. Results outside [0, 1] or
// undefined results yield StatutoryTaxRate.
func TaxRate(taxProvision, pretaxIncome float64) contracts.Estimate {
	est, _ := taxRate(taxProvision, pretaxIncome)
	return est
}

func taxRate(provision, pretax float64) (contracts.Estimate, []contracts.Degradation) {
	if !finite(provision, pretax) {
		return fallbackTo(StatutoryTaxRate), []contracts.Degradation{
			degrade(contracts.KindMissingInput, StageTaxRate, StatutoryTaxRate,
				"tax provision or pretax income missing"),
		}
	}
	if pretax == 0 {
		return fallbackTo(StatutoryTaxRate), []contracts.Degradation{
			degrade(contracts.KindDegenerateInput, StageTaxRate, StatutoryTaxRate, "pretax income is zero"),
		}
	}

	t := provision / pretax
	if !finite(t) || t < 0 || t > 1 {
		return fallbackTo(StatutoryTaxRate), []contracts.Degradation{
			degrade(contracts.KindDegenerateInput, StageTaxRate, StatutoryTaxRate,
				"effective tax rate %.4f outside [0, 1]", t),
		}
	}

	return estimate(t), nil
}

// WACC is E/(E+D)·ke + D/(E+D)·kd·(1−t) with E and D floored at 1,
// clamped to [0.01, 0.50]. A missing input yields DefaultWACC.
func WACC(marketCap, totalDebt, costOfEquity, costOfDebt, taxRate float64) contracts.Estimate {
	est, _ := wacc(marketCap, totalDebt, costOfEquity, costOfDebt, taxRate)
	return est
}

func wacc(marketCap, debt, ke, kd, t float64) (contracts.Estimate, []contracts.Degradation) {
	if !finite(marketCap, debt, ke, kd, t) {
		return fallbackTo(DefaultWACC), []contracts.Degradation{
			degrade(contracts.KindMissingInput, StageWACC, DefaultWACC,
				"capital structure input missing (E=%v D=%v)", marketCap, debt),
		}
	}

	var issues []contracts.Degradation
	if marketCap < 1 {
		issues = append(issues, degrade(contracts.KindDegenerateInput, StageWACC, 1,
			"market cap %v floored at 1", marketCap))
	}

	e := math.Max(marketCap, 1)
	d := math.Max(debt, 1)
	v := e + d

	w := e/v*ke + d/v*kd*(1-t)
	if !finite(w) {
		return fallbackTo(DefaultWACC), append(issues,
			degrade(contracts.KindDegenerateInput, StageWACC, DefaultWACC, "WACC result not finite"))
	}

	return contracts.Estimate{Value: clamp(w, MinRate, MaxRate), UsedFallback: len(issues) > 0}, issues
}

// CostModel derives the discount-rate components of a record.
// Each component is guarded on its own so one failure never aborts the rest.
type CostModel struct{}

// Profile computes the cost of equity, cost of debt, tax rate and WACC
func (CostModel) Profile(record *contracts.FinancialRecord) (contracts.CostProfile, []contracts.Degradation) {
	var issues []contracts.Degradation

	ke, w := costOfEquity(record.TreasuryRate, record.Beta, record.BenchmarkReturn)
	issues = append(issues, w...)

	kd, w := costOfDebt(record.InterestExpense, record.TotalDebt)
	issues = append(issues, w...)

	t, w := taxRate(record.TaxProvision, record.PretaxIncome)
	issues = append(issues, w...)

	k, w := wacc(record.MarketCap, record.TotalDebt, ke.Value, kd.Value, t.Value)
	issues = append(issues, w...)

	return contracts.CostProfile{
		CostOfEquity: ke.Value,
		CostOfDebt:   kd.Value,
		TaxRate:      t.Value,
		WACC:         k.Value,
	}, issues
}
