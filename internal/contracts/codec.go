package contracts

import (
	"encoding/json"
	"math"

	"gopkg.in/yaml.v3"
)

// recordWire is the serialized form of FinancialRecord.
// Absent or null fields decode to NaN; non-finite fields encode as null.
type recordWire struct {
	Ticker                   string   `json:"ticker" yaml:"ticker"`
	MarketCap                *float64 `json:"market_cap" yaml:"market_cap"`
	TotalDebt                *float64 `json:"total_debt" yaml:"total_debt"`
	CashAndCashEquivalents   *float64 `json:"cash_and_cash_equivalents" yaml:"cash_and_cash_equivalents"`
	InterestExpense          *float64 `json:"interest_expense" yaml:"interest_expense"`
	TaxProvision             *float64 `json:"tax_provision" yaml:"tax_provision"`
	PretaxIncome             *float64 `json:"pretax_income" yaml:"pretax_income"`
	EBIT                     *float64 `json:"ebit" yaml:"ebit"`
	InvestedCapital          *float64 `json:"invested_capital" yaml:"invested_capital"`
	Capex                    *float64 `json:"capex" yaml:"capex"`
	ChangeInWorkingCapital   *float64 `json:"change_in_working_capital" yaml:"change_in_working_capital"`
	DilutedSharesOutstanding *float64 `json:"diluted_shares_outstanding" yaml:"diluted_shares_outstanding"`
	Beta                     *float64 `json:"beta" yaml:"beta"`
	TreasuryRate             *float64 `json:"treasury_rate" yaml:"treasury_rate"`
	BenchmarkReturn          *float64 `json:"benchmark_return" yaml:"benchmark_return"`
	IndustryGrowthRate       *float64 `json:"industry_growth_rate" yaml:"industry_growth_rate"`
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func finiteOrNil(v float64) *float64 {
	if !IsFinite(v) {
		return nil
	}
	return &v
}

func (w *recordWire) record() FinancialRecord {
	rec := NewFinancialRecord(w.Ticker)
	rec.MarketCap = orNaN(w.MarketCap)
	rec.TotalDebt = orNaN(w.TotalDebt)
	rec.CashAndCashEquivalents = orNaN(w.CashAndCashEquivalents)
	rec.InterestExpense = orNaN(w.InterestExpense)
	rec.TaxProvision = orNaN(w.TaxProvision)
	rec.PretaxIncome = orNaN(w.PretaxIncome)
	rec.EBIT = orNaN(w.EBIT)
	rec.InvestedCapital = orNaN(w.InvestedCapital)
	rec.Capex = orNaN(w.Capex)
	rec.ChangeInWorkingCapital = orNaN(w.ChangeInWorkingCapital)
	rec.DilutedSharesOutstanding = orNaN(w.DilutedSharesOutstanding)
	rec.Beta = orNaN(w.Beta)
	rec.TreasuryRate = orNaN(w.TreasuryRate)
	rec.BenchmarkReturn = orNaN(w.BenchmarkReturn)
	rec.IndustryGrowthRate = orNaN(w.IndustryGrowthRate)
	return rec
}

func wireOf(r *FinancialRecord) recordWire {
	return recordWire{
		Ticker:                   r.Ticker,
		MarketCap:                finiteOrNil(r.MarketCap),
		TotalDebt:                finiteOrNil(r.TotalDebt),
		CashAndCashEquivalents:   finiteOrNil(r.CashAndCashEquivalents),
		InterestExpense:          finiteOrNil(r.InterestExpense),
		TaxProvision:             finiteOrNil(r.TaxProvision),
		PretaxIncome:             finiteOrNil(r.PretaxIncome),
		EBIT:                     finiteOrNil(r.EBIT),
		InvestedCapital:          finiteOrNil(r.InvestedCapital),
		Capex:                    finiteOrNil(r.Capex),
		ChangeInWorkingCapital:   finiteOrNil(r.ChangeInWorkingCapital),
		DilutedSharesOutstanding: finiteOrNil(r.DilutedSharesOutstanding),
		Beta:                     finiteOrNil(r.Beta),
		TreasuryRate:             finiteOrNil(r.TreasuryRate),
		BenchmarkReturn:          finiteOrNil(r.BenchmarkReturn),
		IndustryGrowthRate:       finiteOrNil(r.IndustryGrowthRate),
	}
}

// MarshalJSON encodes missing fields as null
func (r FinancialRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireOf(&r))
}

// UnmarshalJSON decodes absent or null fields as missing
func (r *FinancialRecord) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = w.record()
	return nil
}

// UnmarshalYAML decodes absent or null fields as missing
func (r *FinancialRecord) UnmarshalYAML(node *yaml.Node) error {
	var w recordWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	*r = w.record()
	return nil
}

// MarshalYAML encodes missing fields as null
func (r FinancialRecord) MarshalYAML() (interface{}, error) {
	return wireOf(&r), nil
}
