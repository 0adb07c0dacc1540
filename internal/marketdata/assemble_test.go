package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fairvalue/pkg/config"
	"github.com/wonny/fairvalue/pkg/logger"
	"github.com/wonny/fairvalue/pkg/redis"
)

func ptr(v float64) *float64 { return &v }

func TestAssemble_Defaults(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	snap, err := Assemble(&financialsResponse{Symbol: "tiny"}, now)
	require.NoError(t, err)

	rec := snap.Record
	assert.Equal(t, "TINY", rec.Ticker)
	assert.Equal(t, defaultBeta, rec.Beta)
	assert.Equal(t, 0.0, rec.MarketCap)
	assert.Equal(t, 0.0, rec.TotalDebt)
	assert.Equal(t, 0.0, rec.DilutedSharesOutstanding)
	assert.Empty(t, snap.History)
	assert.Equal(t, now, snap.FetchedAt)
}

func TestAssemble_DerivesTotalDebt(t *testing.T) {
	resp := &financialsResponse{
		Symbol: "X",
		Statements: []statement{
			{FiscalYear: 2023, ShortTermDebt: ptr(10), LongTermDebt: ptr(90)},
		},
	}

	snap, err := Assemble(resp, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 100.0, snap.Record.TotalDebt)
}

func TestAssemble_SkipsYearsWithoutCashFlow(t *testing.T) {
	resp := &financialsResponse{
		Symbol: "X",
		Statements: []statement{
			{FiscalYear: 2023, OperatingCashFlow: ptr(50), Capex: ptr(20)},
			{FiscalYear: 2022, OperatingCashFlow: ptr(40)},
			{FiscalYear: 2021, FreeCashFlow: ptr(25)},
		},
	}

	snap, err := Assemble(resp, time.Now())
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{2021: 25, 2023: 30}, snap.History.Map())
}

func TestAssemble_EmptyPayload(t *testing.T) {
	_, err := Assemble(&financialsResponse{}, time.Now())
	assert.Error(t, err)

	_, err = Assemble(nil, time.Now())
	assert.Error(t, err)
}

type stubProvider struct {
	snap  *Snapshot
	err   error
	calls int
}

func (s *stubProvider) Fetch(ctx context.Context, ticker string) (*Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

func TestChain(t *testing.T) {
	missing := &stubProvider{err: ErrNotFound}
	found := &stubProvider{snap: &Snapshot{Ticker: "AAPL"}}
	unused := &stubProvider{snap: &Snapshot{Ticker: "OTHER"}}

	snap, err := Chain{missing, found, unused}.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", snap.Ticker)
	assert.Equal(t, 1, missing.calls)
	assert.Equal(t, 0, unused.calls)
}

func TestChain_StopsOnError(t *testing.T) {
	broken := &stubProvider{err: errors.New("connection refused")}
	next := &stubProvider{snap: &Snapshot{Ticker: "AAPL"}}

	_, err := Chain{broken, next}.Fetch(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.Equal(t, 0, next.calls)
}

func TestChain_AllMissing(t *testing.T) {
	_, err := Chain{&stubProvider{err: ErrNotFound}}.Fetch(context.Background(), "AAPL")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCachedProvider_DisabledRedisPassesThrough(t *testing.T) {
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)

	next := &stubProvider{snap: &Snapshot{Ticker: "AAPL"}}
	cached := NewCachedProvider(next, redis.NewCache(client, "test"), logger.Nop())

	for i := 0; i < 2; i++ {
		snap, err := cached.Fetch(context.Background(), "aapl")
		require.NoError(t, err)
		assert.Equal(t, "AAPL", snap.Ticker)
	}
	assert.Equal(t, 2, next.calls)
}
