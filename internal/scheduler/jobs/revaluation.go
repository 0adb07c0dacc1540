package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/fairvalue/internal/contracts"
	"github.com/wonny/fairvalue/internal/marketdata"
	"github.com/wonny/fairvalue/internal/service"
	"github.com/wonny/fairvalue/pkg/logger"
)

// Valuator is the part of service.Valuator the revaluation job needs
type Valuator interface {
	ValueTicker(ctx context.Context, ticker string, opts service.Options) (*service.Valuation, error)
}

// RevaluationJob recomputes a fixed list of tickers, bypassing the cache
// Schedule: REVALUE_SCHEDULE (weekdays 6 PM by default)
type RevaluationJob struct {
	valuator    Valuator
	tickers     []string
	schedule    string
	concurrency int
	logger      *logger.Logger
}

// NewRevaluationJob creates a new revaluation job.
// At most concurrency tickers are valued at once.
func NewRevaluationJob(valuator Valuator, tickers []string, schedule string, concurrency int, log *logger.Logger) *RevaluationJob {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &RevaluationJob{
		valuator:    valuator,
		tickers:     tickers,
		schedule:    schedule,
		concurrency: concurrency,
		logger:      log,
	}
}

// Name returns the job name
func (j *RevaluationJob) Name() string {
	return "revaluation"
}

// Schedule returns the cron schedule
func (j *RevaluationJob) Schedule() string {
	return j.schedule
}

// Run values every configured ticker.
// Unknown tickers and impossible valuations are skipped; the job fails only
// when no ticker could be valued because of other errors.
func (j *RevaluationJob) Run(ctx context.Context) error {
	if len(j.tickers) == 0 {
		j.logger.Debug("No tickers configured for revaluation, skipping")
		return nil
	}

	j.logger.WithField("tickers", len(j.tickers)).Info("Starting scheduled revaluation")

	var (
		mu                        sync.Mutex
		valued, degraded, skipped int
		lastErr                   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, ticker := range j.tickers {
		ticker := ticker
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			v, err := j.valuator.ValueTicker(gctx, ticker, service.Options{Refresh: true})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				valued++
				if v.Result.Degraded() {
					degraded++
				}
			case errors.Is(err, marketdata.ErrNotFound), errors.Is(err, contracts.ErrValuationImpossible):
				skipped++
				j.logger.WithTicker(ticker).WithError(err).Warn("Revaluation skipped")
			default:
				lastErr = err
				j.logger.WithTicker(ticker).WithError(err).Error("Revaluation failed")
			}
			return nil
		})
	}

	// only context cancellation surfaces here
	if err := g.Wait(); err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"valued":   valued,
		"degraded": degraded,
		"skipped":  skipped,
		"failed":   len(j.tickers) - valued - skipped,
	}).Info("Revaluation completed")

	if valued == 0 && lastErr != nil {
		return fmt.Errorf("revaluation: no ticker valued: %w", lastErr)
	}
	return nil
}
