package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fairvalue/internal/contracts"
	"github.com/wonny/fairvalue/internal/marketdata"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// FinancialRepository stores financial snapshots.
// It also serves as a marketdata.Provider backed by the database.
type FinancialRepository struct {
	pool *pgxpool.Pool
}

// NewFinancialRepository 새 저장소 생성
func NewFinancialRepository(pool *pgxpool.Pool) *FinancialRepository {
	return &FinancialRepository{pool: pool}
}

// nullable maps a missing value to SQL NULL
func nullable(v float64) *float64 {
	if !contracts.IsFinite(v) {
		return nil
	}
	return &v
}

// fromNullable maps SQL NULL back to a missing value
func fromNullable(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// SaveSnapshot upserts the record and its FCF history in one transaction
func (r *FinancialRepository) SaveSnapshot(ctx context.Context, snap *marketdata.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec := snap.Record
	query := `
		INSERT INTO valuation.financial_records
			(ticker, name, country, industry, currency,
			 market_cap, total_debt, cash_and_cash_equivalents, interest_expense,
			 tax_provision, pretax_income, ebit, invested_capital, capex,
			 change_in_working_capital, diluted_shares_outstanding, beta,
			 treasury_rate, benchmark_return, industry_growth_rate, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (ticker) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			industry = EXCLUDED.industry,
			currency = EXCLUDED.currency,
			market_cap = EXCLUDED.market_cap,
			total_debt = EXCLUDED.total_debt,
			cash_and_cash_equivalents = EXCLUDED.cash_and_cash_equivalents,
			interest_expense = EXCLUDED.interest_expense,
			tax_provision = EXCLUDED.tax_provision,
			pretax_income = EXCLUDED.pretax_income,
			ebit = EXCLUDED.ebit,
			invested_capital = EXCLUDED.invested_capital,
			capex = EXCLUDED.capex,
			change_in_working_capital = EXCLUDED.change_in_working_capital,
			diluted_shares_outstanding = EXCLUDED.diluted_shares_outstanding,
			beta = EXCLUDED.beta,
			treasury_rate = EXCLUDED.treasury_rate,
			benchmark_return = EXCLUDED.benchmark_return,
			industry_growth_rate = EXCLUDED.industry_growth_rate,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = now()`

	if _, err := tx.Exec(ctx, query,
		rec.Ticker, snap.Name, snap.Country, snap.Industry, snap.Currency,
		nullable(rec.MarketCap), nullable(rec.TotalDebt), nullable(rec.CashAndCashEquivalents),
		nullable(rec.InterestExpense), nullable(rec.TaxProvision), nullable(rec.PretaxIncome),
		nullable(rec.EBIT), nullable(rec.InvestedCapital), nullable(rec.Capex),
		nullable(rec.ChangeInWorkingCapital), nullable(rec.DilutedSharesOutstanding), nullable(rec.Beta),
		nullable(rec.TreasuryRate), nullable(rec.BenchmarkReturn), nullable(rec.IndustryGrowthRate),
		snap.FetchedAt,
	); err != nil {
		return fmt.Errorf("upsert financial record %s: %w", rec.Ticker, err)
	}

	if len(snap.History) > 0 {
		batch := &pgx.Batch{}
		for _, p := range snap.History {
			batch.Queue(`
				INSERT INTO valuation.fcf_history (ticker, fiscal_year, fcf)
				VALUES ($1, $2, $3)
				ON CONFLICT (ticker, fiscal_year) DO UPDATE SET fcf = EXCLUDED.fcf`,
				rec.Ticker, p.Year, p.FCF)
		}

		br := tx.SendBatch(ctx, batch)
		for range snap.History {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("upsert fcf history %s: %w", rec.Ticker, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("upsert fcf history %s: %w", rec.Ticker, err)
		}
	}

	return tx.Commit(ctx)
}

// GetSnapshot loads a stored record and its FCF history
func (r *FinancialRepository) GetSnapshot(ctx context.Context, ticker string) (*marketdata.Snapshot, error) {
	query := `
		SELECT ticker, name, country, industry, currency,
			   market_cap, total_debt, cash_and_cash_equivalents, interest_expense,
			   tax_provision, pretax_income, ebit, invested_capital, capex,
			   change_in_working_capital, diluted_shares_outstanding, beta,
			   treasury_rate, benchmark_return, industry_growth_rate, fetched_at
		FROM valuation.financial_records
		WHERE ticker = $1`

	var (
		snap   marketdata.Snapshot
		values [15]*float64
	)
	err := r.pool.QueryRow(ctx, query, marketdata.NormalizeTicker(ticker)).Scan(
		&snap.Ticker, &snap.Name, &snap.Country, &snap.Industry, &snap.Currency,
		&values[0], &values[1], &values[2], &values[3], &values[4],
		&values[5], &values[6], &values[7], &values[8], &values[9],
		&values[10], &values[11], &values[12], &values[13], &values[14],
		&snap.FetchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("financial record %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get financial record %s: %w", ticker, err)
	}

	snap.Record = contracts.FinancialRecord{
		Ticker:                   snap.Ticker,
		MarketCap:                fromNullable(values[0]),
		TotalDebt:                fromNullable(values[1]),
		CashAndCashEquivalents:   fromNullable(values[2]),
		InterestExpense:          fromNullable(values[3]),
		TaxProvision:             fromNullable(values[4]),
		PretaxIncome:             fromNullable(values[5]),
		EBIT:                     fromNullable(values[6]),
		InvestedCapital:          fromNullable(values[7]),
		Capex:                    fromNullable(values[8]),
		ChangeInWorkingCapital:   fromNullable(values[9]),
		DilutedSharesOutstanding: fromNullable(values[10]),
		Beta:                     fromNullable(values[11]),
		TreasuryRate:             fromNullable(values[12]),
		BenchmarkReturn:          fromNullable(values[13]),
		IndustryGrowthRate:       fromNullable(values[14]),
	}

	history, err := r.GetHistory(ctx, snap.Ticker)
	if err != nil {
		return nil, err
	}
	snap.History = history

	return &snap, nil
}

// GetHistory returns the stored FCF history in chronological order
func (r *FinancialRepository) GetHistory(ctx context.Context, ticker string) (contracts.FCFSeries, error) {
	query := `
		SELECT fiscal_year, fcf
		FROM valuation.fcf_history
		WHERE ticker = $1
		ORDER BY fiscal_year`

	rows, err := r.pool.Query(ctx, query, marketdata.NormalizeTicker(ticker))
	if err != nil {
		return nil, fmt.Errorf("get fcf history %s: %w", ticker, err)
	}
	defer rows.Close()

	series := contracts.FCFSeries{}
	for rows.Next() {
		var p contracts.FCFPoint
		if err := rows.Scan(&p.Year, &p.FCF); err != nil {
			return nil, err
		}
		series = append(series, p)
	}

	return series, rows.Err()
}

// Fetch implements marketdata.Provider
func (r *FinancialRepository) Fetch(ctx context.Context, ticker string) (*marketdata.Snapshot, error) {
	snap, err := r.GetSnapshot(ctx, ticker)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", marketdata.NormalizeTicker(ticker), marketdata.ErrNotFound)
	}
	return snap, err
}
