package store

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fairvalue/internal/contracts"
	"github.com/wonny/fairvalue/internal/marketdata"
)

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(math.NaN()))
	assert.Nil(t, nullable(math.Inf(-1)))
	require.NotNil(t, nullable(0))
	assert.Equal(t, 1.5, *nullable(1.5))

	assert.True(t, math.IsNaN(fromNullable(nil)))
	v := 2.0
	assert.Equal(t, 2.0, fromNullable(&v))
}

func TestWarningsCodec(t *testing.T) {
	data, err := encodeWarnings(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	decoded, err := decodeWarnings(data)
	require.NoError(t, err)
	assert.Nil(t, decoded)

	in := []contracts.Degradation{{
		Kind:     contracts.KindDegenerateInput,
		Stage:    "cost_of_debt",
		Message:  "interest expense not reported",
		Fallback: 0.05,
	}}
	data, err = encodeWarnings(in)
	require.NoError(t, err)

	decoded, err = decodeWarnings(data)
	require.NoError(t, err)
	assert.Equal(t, in, decoded)
}

// integrationPool connects to DATABASE_URL or skips
func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	return pool
}

func TestFinancialRepository_RoundTrip(t *testing.T) {
	pool := integrationPool(t)
	repo := NewFinancialRepository(pool)
	ctx := context.Background()

	ticker := "ZZTEST"
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM valuation.financial_records WHERE ticker = $1`, ticker)
	})

	rec := contracts.NewFinancialRecord(ticker)
	rec.MarketCap = 2_000_000
	rec.Beta = 1.2

	snap := &marketdata.Snapshot{
		Ticker:    ticker,
		Country:   "US",
		Industry:  "Technology",
		Record:    rec,
		History:   contracts.NewFCFSeries(map[int]float64{2022: 100, 2023: 121}),
		FetchedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.SaveSnapshot(ctx, snap))

	got, err := repo.Fetch(ctx, "zztest")
	require.NoError(t, err)

	assert.Equal(t, 2_000_000.0, got.Record.MarketCap)
	assert.True(t, math.IsNaN(got.Record.EBIT), "NULL loads as missing")
	assert.Equal(t, snap.History, got.History)
	assert.Equal(t, "Technology", got.Industry)
}

func TestFinancialRepository_NotFound(t *testing.T) {
	repo := NewFinancialRepository(integrationPool(t))

	_, err := repo.Fetch(context.Background(), "NO_SUCH_TICKER")
	assert.True(t, errors.Is(err, marketdata.ErrNotFound))
}

func TestResultRepository_SaveAndList(t *testing.T) {
	pool := integrationPool(t)
	repo := NewResultRepository(pool)
	ctx := context.Background()

	ticker := "ZZRESULT"
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM valuation.results WHERE ticker = $1`, ticker)
	})

	result := &contracts.ValuationResult{
		Ticker:       ticker,
		WACC:         0.09,
		Costs:        contracts.CostProfile{CostOfEquity: 0.1, CostOfDebt: 0.05, TaxRate: 0.21, WACC: 0.09},
		ProjectedFCF: []float64{1, 2, 3},
		Status:       contracts.StatusDegraded,
		Warnings:     []contracts.Degradation{{Kind: contracts.KindMissingInput, Stage: "tax_rate", Fallback: 0.21}},
	}

	stored, err := repo.Save(ctx, result, "v1")
	require.NoError(t, err)
	assert.NotEqual(t, [16]byte{}, [16]byte(stored.ID))

	list, err := repo.ListByTicker(ctx, ticker, 5)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	assert.Equal(t, stored.ID, list[0].ID)
	assert.Equal(t, "v1", list[0].BenchmarkVersion)
	assert.Equal(t, result.Warnings, list[0].Result.Warnings)
	assert.Equal(t, result.ProjectedFCF, list[0].Result.ProjectedFCF)
	assert.Equal(t, contracts.StatusDegraded, list[0].Result.Status)
}
