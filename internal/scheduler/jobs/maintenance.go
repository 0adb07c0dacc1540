package jobs

import (
	"context"

	"github.com/wonny/fairvalue/pkg/logger"
)

// Sweeper is an in-process cache with expiring entries
type Sweeper interface {
	Sweep() int
	Len() int
}

// CacheSweepJob evicts expired valuations and quotes from the in-process caches
type CacheSweepJob struct {
	caches []Sweeper
	logger *logger.Logger
}

// NewCacheSweepJob creates a new cache sweep job
func NewCacheSweepJob(log *logger.Logger, caches ...Sweeper) *CacheSweepJob {
	return &CacheSweepJob{
		caches: caches,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *CacheSweepJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run executes the cache sweep
func (j *CacheSweepJob) Run(ctx context.Context) error {
	removed, remaining := 0, 0
	for _, c := range j.caches {
		removed += c.Sweep()
		remaining += c.Len()
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed":   removed,
			"remaining": remaining,
		}).Info("Cache sweep completed")
	}

	return nil
}
