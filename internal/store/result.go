package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fairvalue/internal/contracts"
)

// StoredResult is a persisted valuation
type StoredResult struct {
	ID               uuid.UUID                 `json:"id"`
	BenchmarkVersion string                    `json:"benchmark_version,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	Result           contracts.ValuationResult `json:"result"`
}

// ResultRepository stores valuation results
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository 새 저장소 생성
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Save inserts a result under a fresh id
func (r *ResultRepository) Save(ctx context.Context, result *contracts.ValuationResult, benchmarkVersion string) (*StoredResult, error) {
	warnings, err := encodeWarnings(result.Warnings)
	if err != nil {
		return nil, err
	}

	stored := &StoredResult{
		ID:               uuid.New(),
		BenchmarkVersion: benchmarkVersion,
		Result:           *result,
	}

	query := `
		INSERT INTO valuation.results
			(id, ticker, status, wacc, cost_of_equity, cost_of_debt, tax_rate,
			 industry_rate, reinvestment_rate, cagr, chosen_growth_rate,
			 equity_value, intrinsic_value_per_share, net_debt, projected_fcf,
			 warnings, failure, benchmark_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at`

	projected := result.ProjectedFCF
	if projected == nil {
		projected = []float64{}
	}

	err = r.pool.QueryRow(ctx, query,
		stored.ID, result.Ticker, string(result.Status),
		result.WACC, result.Costs.CostOfEquity, result.Costs.CostOfDebt, result.Costs.TaxRate,
		result.IndustryRate, result.ReinvestmentRate, result.CAGR, result.ChosenGrowthRate,
		result.EquityValue, result.IntrinsicValuePerShare, result.NetDebt, projected,
		warnings, result.Failure, benchmarkVersion,
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save valuation %s: %w", result.Ticker, err)
	}

	return stored, nil
}

// ListByTicker returns the most recent results for a ticker, newest first
func (r *ResultRepository) ListByTicker(ctx context.Context, ticker string, limit int) ([]StoredResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id::text, ticker, status, wacc, cost_of_equity, cost_of_debt, tax_rate,
			   industry_rate, reinvestment_rate, cagr, chosen_growth_rate,
			   equity_value, intrinsic_value_per_share, net_debt, projected_fcf,
			   warnings, failure, benchmark_version, created_at
		FROM valuation.results
		WHERE ticker = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("list valuations %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var (
			s        StoredResult
			id       string
			status   string
			warnings []byte
		)
		res := &s.Result
		if err := rows.Scan(
			&id, &res.Ticker, &status, &res.WACC,
			&res.Costs.CostOfEquity, &res.Costs.CostOfDebt, &res.Costs.TaxRate,
			&res.IndustryRate, &res.ReinvestmentRate, &res.CAGR, &res.ChosenGrowthRate,
			&res.EquityValue, &res.IntrinsicValuePerShare, &res.NetDebt, &res.ProjectedFCF,
			&warnings, &res.Failure, &s.BenchmarkVersion, &s.CreatedAt,
		); err != nil {
			return nil, err
		}

		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse result id %q: %w", id, err)
		}
		res.Status = contracts.ValuationStatus(status)
		res.Costs.WACC = res.WACC
		if res.Warnings, err = decodeWarnings(warnings); err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, rows.Err()
}

func encodeWarnings(w []contracts.Degradation) ([]byte, error) {
	if w == nil {
		w = []contracts.Degradation{}
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode warnings: %w", err)
	}
	return data, nil
}

func decodeWarnings(data []byte) ([]contracts.Degradation, error) {
	var w []contracts.Degradation
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	if len(w) == 0 {
		return nil, nil
	}
	return w, nil
}
