package scheduler

import (
	"context"
	"time"
)

// Job is a unit of scheduled work
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes the job once. A returned error triggers a retry.
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds first
	// e.g. "0 0 18 * * 1-5" (평일 18시), "@every 5m"
	Schedule() string
}

// JobResult is the outcome of one run, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory is the number of results kept per job
const maxHistory = 100

// JobHistory keeps the most recent results of a job.
// Run counters cover the whole process lifetime, not just the kept window.
type JobHistory struct {
	Results []JobResult

	total    int
	failures int
}

// AddResult records a result, dropping the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.total++
	if !result.Success {
		h.failures++
	}

	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// GetLatestResults returns up to n of the most recent results, oldest first
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	n = min(n, len(h.Results))
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns the failed results still in the window
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// Totals returns the lifetime run and failure counts
func (h *JobHistory) Totals() (runs, failures int) {
	return h.total, h.failures
}

// GetSuccessRate returns the lifetime success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if h.total == 0 {
		return 0.0
	}
	return float64(h.total-h.failures) / float64(h.total)
}

// lastOutcome returns the start times of the latest run, success and failure in the window
func (h *JobHistory) lastOutcome() (run, success, failure *time.Time) {
	for i := len(h.Results) - 1; i >= 0; i-- {
		r := h.Results[i]
		if run == nil {
			run = &r.StartTime
		}
		if r.Success && success == nil {
			success = &r.StartTime
		}
		if !r.Success && failure == nil {
			failure = &r.StartTime
		}
		if success != nil && failure != nil {
			break
		}
	}
	return run, success, failure
}
