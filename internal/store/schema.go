package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements create the valuation schema. All statements are idempotent.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS valuation`,
	`CREATE TABLE IF NOT EXISTS valuation.financial_records (
		ticker                     TEXT PRIMARY KEY,
		name                       TEXT NOT NULL DEFAULT '',
		country                    TEXT NOT NULL DEFAULT '',
		industry                   TEXT NOT NULL DEFAULT '',
		currency                   TEXT NOT NULL DEFAULT '',
		market_cap                 DOUBLE PRECISION,
		total_debt                 DOUBLE PRECISION,
		cash_and_cash_equivalents  DOUBLE PRECISION,
		interest_expense           DOUBLE PRECISION,
		tax_provision              DOUBLE PRECISION,
		pretax_income              DOUBLE PRECISION,
		ebit                       DOUBLE PRECISION,
		invested_capital           DOUBLE PRECISION,
		capex                      DOUBLE PRECISION,
		change_in_working_capital  DOUBLE PRECISION,
		diluted_shares_outstanding DOUBLE PRECISION,
		beta                       DOUBLE PRECISION,
		treasury_rate              DOUBLE PRECISION,
		benchmark_return           DOUBLE PRECISION,
		industry_growth_rate       DOUBLE PRECISION,
		fetched_at                 TIMESTAMPTZ NOT NULL,
		updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS valuation.fcf_history (
		ticker      TEXT NOT NULL REFERENCES valuation.financial_records (ticker) ON DELETE CASCADE,
		fiscal_year INTEGER NOT NULL,
		fcf         DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ticker, fiscal_year)
	)`,
	`CREATE TABLE IF NOT EXISTS valuation.results (
		id                        UUID PRIMARY KEY,
		ticker                    TEXT NOT NULL,
		status                    TEXT NOT NULL,
		wacc                      DOUBLE PRECISION NOT NULL,
		cost_of_equity            DOUBLE PRECISION NOT NULL,
		cost_of_debt              DOUBLE PRECISION NOT NULL,
		tax_rate                  DOUBLE PRECISION NOT NULL,
		industry_rate             DOUBLE PRECISION NOT NULL,
		reinvestment_rate         DOUBLE PRECISION NOT NULL,
		cagr                      DOUBLE PRECISION NOT NULL,
		chosen_growth_rate        DOUBLE PRECISION NOT NULL,
		equity_value              DOUBLE PRECISION NOT NULL,
		intrinsic_value_per_share DOUBLE PRECISION NOT NULL,
		net_debt                  DOUBLE PRECISION NOT NULL,
		projected_fcf             DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
		warnings                  JSONB NOT NULL DEFAULT '[]',
		failure                   TEXT NOT NULL DEFAULT '',
		benchmark_version         TEXT NOT NULL DEFAULT '',
		created_at                TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_ticker_created
		ON valuation.results (ticker, created_at DESC)`,
}

// EnsureSchema creates the valuation tables when they do not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
