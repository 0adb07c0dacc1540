package contracts

import (
	"math"
	"sort"
	"strings"
)

// FinancialRecord is the raw input of one valuation.
// Monetary fields are in reporting currency, rates are fractional (0.05 = 5%).
// A NaN or ±Inf field means the input is missing.
// ⭐ SSOT: 밸류에이션 입력 계약
type FinancialRecord struct {
	Ticker                   string
	MarketCap                float64
	TotalDebt                float64
	CashAndCashEquivalents   float64
	InterestExpense          float64
	TaxProvision             float64
	PretaxIncome             float64
	EBIT                     float64
	InvestedCapital          float64
	Capex                    float64
	ChangeInWorkingCapital   float64
	DilutedSharesOutstanding float64
	Beta                     float64

	// Benchmark inputs, usually filled from the country/industry table
	TreasuryRate       float64
	BenchmarkReturn    float64
	IndustryGrowthRate float64
}

// NewFinancialRecord returns a record with every numeric field missing
func NewFinancialRecord(ticker string) FinancialRecord {
	nan := math.NaN()
	return FinancialRecord{
		Ticker:                   strings.ToUpper(ticker),
		MarketCap:                nan,
		TotalDebt:                nan,
		CashAndCashEquivalents:   nan,
		InterestExpense:          nan,
		TaxProvision:             nan,
		PretaxIncome:             nan,
		EBIT:                     nan,
		InvestedCapital:          nan,
		Capex:                    nan,
		ChangeInWorkingCapital:   nan,
		DilutedSharesOutstanding: nan,
		Beta:                     nan,
		TreasuryRate:             nan,
		BenchmarkReturn:          nan,
		IndustryGrowthRate:       nan,
	}
}

// MissingFields lists the names of fields holding no usable number
func (r *FinancialRecord) MissingFields() []string {
	var missing []string
	for _, f := range r.fields() {
		if !IsFinite(*f.value) {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type recordField struct {
	name  string
	value *float64
}

func (r *FinancialRecord) fields() []recordField {
	return []recordField{
		{"market_cap", &r.MarketCap},
		{"total_debt", &r.TotalDebt},
		{"cash_and_cash_equivalents", &r.CashAndCashEquivalents},
		{"interest_expense", &r.InterestExpense},
		{"tax_provision", &r.TaxProvision},
		{"pretax_income", &r.PretaxIncome},
		{"ebit", &r.EBIT},
		{"invested_capital", &r.InvestedCapital},
		{"capex", &r.Capex},
		{"change_in_working_capital", &r.ChangeInWorkingCapital},
		{"diluted_shares_outstanding", &r.DilutedSharesOutstanding},
		{"beta", &r.Beta},
		{"treasury_rate", &r.TreasuryRate},
		{"benchmark_return", &r.BenchmarkReturn},
		{"industry_growth_rate", &r.IndustryGrowthRate},
	}
}

// IsFinite reports whether v is a usable number
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FCFPoint is one fiscal year of free cash flow
type FCFPoint struct {
	Year int     `json:"year" yaml:"year"`
	FCF  float64 `json:"fcf" yaml:"fcf"`
}

// FCFSeries is historical free cash flow in chronological order.
// Years need not be contiguous and the series may be empty.
type FCFSeries []FCFPoint

// NewFCFSeries builds a chronological series from a year → FCF mapping
func NewFCFSeries(byYear map[int]float64) FCFSeries {
	series := make(FCFSeries, 0, len(byYear))
	for year, fcf := range byYear {
		series = append(series, FCFPoint{Year: year, FCF: fcf})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series
}

// Values returns the FCF values in order
func (s FCFSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.FCF
	}
	return out
}

// Latest returns the most recent point
func (s FCFSeries) Latest() (FCFPoint, bool) {
	if len(s) == 0 {
		return FCFPoint{}, false
	}
	return s[len(s)-1], true
}

// Map returns the series as year → FCF
func (s FCFSeries) Map() map[int]float64 {
	out := make(map[int]float64, len(s))
	for _, p := range s {
		out[p.Year] = p.FCF
	}
	return out
}

// CostProfile holds the discount-rate components of one valuation
type CostProfile struct {
	CostOfEquity float64 `json:"cost_of_equity"`
	CostOfDebt   float64 `json:"cost_of_debt"`
	TaxRate      float64 `json:"tax_rate"`
	WACC         float64 `json:"wacc"`
}

// GrowthEstimate holds the growth components of one valuation.
// ChosenGrowthRate is always strictly below the WACC it was bounded by.
type GrowthEstimate struct {
	CAGR               float64 `json:"cagr"`
	ReinvestmentGrowth float64 `json:"reinvestment_growth"`
	ChosenGrowthRate   float64 `json:"chosen_growth_rate"`
}

// Estimate is the outcome of a guarded computation
type Estimate struct {
	Value        float64
	UsedFallback bool
}

// DegradationKind classifies why a fallback was used
type DegradationKind string

const (
	KindMissingInput       DegradationKind = "missing_input"
	KindDegenerateInput    DegradationKind = "degenerate_input"
	KindInvariantViolation DegradationKind = "invariant_violation"
)

// Degradation records one substituted value
type Degradation struct {
	Kind     DegradationKind `json:"kind"`
	Stage    string          `json:"stage"`
	Message  string          `json:"message"`
	Fallback float64         `json:"fallback"`
}

// ValuationStatus tells computed, degraded and impossible valuations apart
type ValuationStatus string

const (
	StatusComputed ValuationStatus = "computed"
	StatusDegraded ValuationStatus = "degraded"
	StatusFailed   ValuationStatus = "failed"
)

// ValuationResult is the output of one valuation
// ⭐ SSOT: 밸류에이션 출력 계약
type ValuationResult struct {
	Ticker                 string          `json:"ticker"`
	WACC                   float64         `json:"wacc"`
	IndustryRate           float64         `json:"industry_rate"`
	ReinvestmentRate       float64         `json:"reinvestment_rate"`
	CAGR                   float64         `json:"cagr"`
	ChosenGrowthRate       float64         `json:"chosen_growth_rate"`
	EquityValue            float64         `json:"equity_value"`
	IntrinsicValuePerShare float64         `json:"intrinsic_value_per_share"`
	Costs                  CostProfile     `json:"costs"`
	ProjectedFCF           []float64       `json:"projected_fcf"`
	NetDebt                float64         `json:"net_debt"`
	Status                 ValuationStatus `json:"status"`
	Warnings               []Degradation   `json:"warnings,omitempty"`
	Failure                string          `json:"failure,omitempty"`
}

// Degraded reports whether any stage fell back to a default
func (v *ValuationResult) Degraded() bool {
	return len(v.Warnings) > 0
}

// Err returns nil unless the valuation could not be performed
func (v *ValuationResult) Err() error {
	if v.Status != StatusFailed {
		return nil
	}
	return &ValuationError{Ticker: v.Ticker, Reason: v.Failure}
}
