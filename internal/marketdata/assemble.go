package marketdata

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/fairvalue/internal/contracts"
)

// financialsResponse is the upstream GET /v1/financials/{ticker} payload
type financialsResponse struct {
	Symbol     string      `json:"symbol"`
	Name       string      `json:"name"`
	Country    string      `json:"country"`
	Industry   string      `json:"industry"`
	Currency   string      `json:"currency"`
	Quote      quote       `json:"quote"`
	Statements []statement `json:"statements"`
}

type quote struct {
	MarketCap         *float64 `json:"market_cap"`
	Beta              *float64 `json:"beta"`
	SharesOutstanding *float64 `json:"shares_outstanding"`
}

// statement is one fiscal year of reported line items
type statement struct {
	FiscalYear             int      `json:"fiscal_year"`
	TotalDebt              *float64 `json:"total_debt"`
	ShortTermDebt          *float64 `json:"short_term_debt"`
	LongTermDebt           *float64 `json:"long_term_debt"`
	Cash                   *float64 `json:"cash_and_cash_equivalents"`
	InterestExpense        *float64 `json:"interest_expense"`
	TaxProvision           *float64 `json:"tax_provision"`
	PretaxIncome           *float64 `json:"pretax_income"`
	EBIT                   *float64 `json:"ebit"`
	InvestedCapital        *float64 `json:"invested_capital"`
	Capex                  *float64 `json:"capital_expenditure"`
	ChangeInWorkingCapital *float64 `json:"change_in_working_capital"`
	OperatingCashFlow      *float64 `json:"operating_cash_flow"`
	FreeCashFlow           *float64 `json:"free_cash_flow"`
	DilutedShares          *float64 `json:"diluted_shares_outstanding"`
}

const defaultBeta = 1.0

func valueOr(p *float64, def float64) float64 {
	if p == nil || !contracts.IsFinite(*p) {
		return def
	}
	return *p
}

// Assemble maps an upstream payload onto a record and FCF history.
// The latest fiscal year feeds the record. Missing line items default to 0
// and a missing beta to 1.0. Benchmark rates are left missing.
func Assemble(resp *financialsResponse, now time.Time) (*Snapshot, error) {
	if resp == nil || resp.Symbol == "" {
		return nil, fmt.Errorf("assemble: empty payload")
	}

	statements := append([]statement(nil), resp.Statements...)
	sort.Slice(statements, func(i, j int) bool { return statements[i].FiscalYear < statements[j].FiscalYear })

	rec := contracts.NewFinancialRecord(resp.Symbol)
	rec.MarketCap = valueOr(resp.Quote.MarketCap, 0)
	rec.Beta = valueOr(resp.Quote.Beta, defaultBeta)
	rec.DilutedSharesOutstanding = valueOr(resp.Quote.SharesOutstanding, 0)

	history := make(map[int]float64, len(statements))
	for _, s := range statements {
		if fcf, found := freeCashFlow(s); found {
			history[s.FiscalYear] = fcf
		}
	}

	if n := len(statements); n > 0 {
		latest := statements[n-1]
		rec.TotalDebt = totalDebt(latest)
		rec.CashAndCashEquivalents = valueOr(latest.Cash, 0)
		rec.InterestExpense = math.Abs(valueOr(latest.InterestExpense, 0))
		rec.TaxProvision = valueOr(latest.TaxProvision, 0)
		rec.PretaxIncome = valueOr(latest.PretaxIncome, 0)
		rec.EBIT = valueOr(latest.EBIT, 0)
		rec.InvestedCapital = valueOr(latest.InvestedCapital, 0)
		// 설비투자는 지출액(양수)으로 보관
		rec.Capex = math.Abs(valueOr(latest.Capex, 0))
		rec.ChangeInWorkingCapital = valueOr(latest.ChangeInWorkingCapital, 0)
		if latest.DilutedShares != nil {
			rec.DilutedSharesOutstanding = valueOr(latest.DilutedShares, rec.DilutedSharesOutstanding)
		}
	} else {
		rec.TotalDebt = 0
		rec.CashAndCashEquivalents = 0
		rec.InterestExpense = 0
		rec.TaxProvision = 0
		rec.PretaxIncome = 0
		rec.EBIT = 0
		rec.InvestedCapital = 0
		rec.Capex = 0
		rec.ChangeInWorkingCapital = 0
	}

	return &Snapshot{
		Ticker:    rec.Ticker,
		Name:      resp.Name,
		Country:   resp.Country,
		Industry:  resp.Industry,
		Currency:  resp.Currency,
		Record:    rec,
		History:   contracts.NewFCFSeries(history),
		FetchedAt: now,
	}, nil
}

// totalDebt prefers the reported total, else short + long term debt
func totalDebt(s statement) float64 {
	if s.TotalDebt != nil && contracts.IsFinite(*s.TotalDebt) {
		return *s.TotalDebt
	}
	return valueOr(s.ShortTermDebt, 0) + valueOr(s.LongTermDebt, 0)
}

// freeCashFlow prefers the reported FCF, else operating cash flow − |capex|
func freeCashFlow(s statement) (float64, bool) {
	if s.FreeCashFlow != nil && contracts.IsFinite(*s.FreeCashFlow) {
		return *s.FreeCashFlow, true
	}
	if s.OperatingCashFlow == nil || s.Capex == nil {
		return 0, false
	}
	fcf := *s.OperatingCashFlow - math.Abs(*s.Capex)
	return fcf, contracts.IsFinite(fcf)
}
