package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fairvalue/internal/cache"
	"github.com/wonny/fairvalue/internal/contracts"
	"github.com/wonny/fairvalue/internal/marketdata"
	"github.com/wonny/fairvalue/internal/service"
	"github.com/wonny/fairvalue/pkg/logger"
)

type fakeValuator struct {
	errs    map[string]error
	status  contracts.ValuationStatus
	mu      sync.Mutex
	seen    []string
	refresh []bool
}

func (f *fakeValuator) ValueTicker(ctx context.Context, ticker string, opts service.Options) (*service.Valuation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = append(f.seen, ticker)
	f.refresh = append(f.refresh, opts.Refresh)

	if err := f.errs[ticker]; err != nil {
		return nil, err
	}
	status := f.status
	if status == "" {
		status = contracts.StatusComputed
	}
	return &service.Valuation{Result: &contracts.ValuationResult{Ticker: ticker, Status: status}}, nil
}

func TestRevaluationJob_ValuesEveryTicker(t *testing.T) {
	v := &fakeValuator{status: contracts.StatusDegraded}
	job := NewRevaluationJob(v, []string{"AAPL", "MSFT", "NVDA"}, "0 0 18 * * 1-5", 2, logger.Nop())

	assert.Equal(t, "revaluation", job.Name())
	assert.Equal(t, "0 0 18 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.ElementsMatch(t, []string{"AAPL", "MSFT", "NVDA"}, v.seen)
	assert.Equal(t, []bool{true, true, true}, v.refresh, "revaluation bypasses the cache")
}

func TestRevaluationJob_Errors(t *testing.T) {
	transient := errors.New("connection reset")

	tests := []struct {
		name    string
		errs    map[string]error
		wantErr bool
	}{
		{"unknown ticker skipped", map[string]error{"AAPL": marketdata.ErrNotFound}, false},
		{"impossible valuation skipped", map[string]error{"AAPL": &contracts.ValuationError{Ticker: "AAPL", Reason: "no record"}}, false},
		{"partial failure tolerated", map[string]error{"AAPL": transient}, false},
		{"total failure retried", map[string]error{"AAPL": transient, "MSFT": transient}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewRevaluationJob(&fakeValuator{errs: tt.errs}, []string{"AAPL", "MSFT"}, "@daily", 4, logger.Nop())

			err := job.Run(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, transient)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRevaluationJob_NoTickers(t *testing.T) {
	v := &fakeValuator{}
	job := NewRevaluationJob(v, nil, "@daily", 0, logger.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, v.seen)
}

func TestRevaluationJob_Cancelled(t *testing.T) {
	v := &fakeValuator{}
	job := NewRevaluationJob(v, []string{"AAPL"}, "@daily", 1, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
	assert.Empty(t, v.seen)
}

func TestCacheSweepJob(t *testing.T) {
	c := cache.New(time.Millisecond, nil, cache.CloneResult, logger.Nop())
	_, _, err := c.GetOrCompute(context.Background(), "AAPL", false, func(ctx context.Context) (*contracts.ValuationResult, error) {
		return &contracts.ValuationResult{Ticker: "AAPL", Status: contracts.StatusComputed}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	quotes := cache.New(time.Millisecond, nil, service.CloneQuote, logger.Nop())
	_, _, err = quotes.GetOrCompute(context.Background(), "AAPL", false, func(ctx context.Context) (*marketdata.Quote, error) {
		return &marketdata.Quote{Symbol: "AAPL"}, nil
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	job := NewCacheSweepJob(logger.Nop(), c, quotes)
	assert.Equal(t, "cache_sweep", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, quotes.Len())
}
