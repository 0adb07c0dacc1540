package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fairvalue/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // attempts that fail before succeeding
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	if j.calls.Add(1) <= j.failures {
		return errors.New("upstream unavailable")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop(), WithRetry(2, time.Millisecond))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "@every 1h"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 0 18 * * 1-5"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	err := s.AddJob(&countingJob{name: "a", schedule: "@every 1h"})
	assert.ErrorContains(t, err, "already exists")

	err = s.AddJob(&countingJob{name: "bad", schedule: "not a schedule"})
	assert.ErrorContains(t, err, "failed to schedule")
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@every 1h"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJobSync_Success(t *testing.T) {
	s := newTestScheduler()
	job := &countingJob{name: "ok", schedule: "@every 1h"}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync(context.Background(), "ok")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestRunJobSync_Retries(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		success   bool
		wantCalls int32
	}{
		{"recovers on retry", 2, true, 3},
		{"exhausts retries", 10, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler()
			job := &countingJob{name: "flaky", schedule: "@every 1h", failures: tt.failures}
			require.NoError(t, s.AddJob(job))

			result, err := s.RunJobSync(context.Background(), "flaky")
			require.NoError(t, err)

			assert.Equal(t, tt.success, result.Success)
			assert.Equal(t, tt.wantCalls, job.calls.Load())
			assert.Equal(t, int(tt.wantCalls), result.Attempts)
			if !tt.success {
				assert.Equal(t, "upstream unavailable", result.Error)
			}
		})
	}
}

func TestRunJobSync_CancelledDuringRetry(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := &countingJob{name: "flaky", schedule: "@every 1h", failures: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := s.RunJobSync(ctx, "flaky")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, context.DeadlineExceeded.Error(), result.Error)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestRunJob_UnknownJob(t *testing.T) {
	s := newTestScheduler()

	assert.Error(t, s.RunJob("missing"))
	_, err := s.RunJobSync(context.Background(), "missing")
	assert.Error(t, err)
}

func TestGetJobStats(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "ok", schedule: "@every 1h"}))
	require.NoError(t, s.AddJob(&countingJob{name: "broken", schedule: "@every 1h", failures: 100}))

	for i := 0; i < 2; i++ {
		_, _ = s.RunJobSync(context.Background(), "ok")
	}
	_, _ = s.RunJobSync(context.Background(), "broken")

	stats := s.GetJobStats()
	require.Len(t, stats, 2)

	ok := stats["ok"]
	assert.Equal(t, 2, ok.TotalRuns)
	assert.Equal(t, 1.0, ok.SuccessRate)
	assert.NotNil(t, ok.LastSuccess)
	assert.Nil(t, ok.LastFailure)

	broken := stats["broken"]
	assert.Equal(t, 1, broken.FailureCount)
	assert.Equal(t, 0.0, broken.SuccessRate)
	assert.NotNil(t, broken.LastFailure)

	history, err := s.GetJobHistory("ok")
	require.NoError(t, err)
	assert.Len(t, history.GetLatestResults(5), 2)
}

func TestNextRun(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "hourly", schedule: "@every 1h"}))

	s.Start()
	defer s.Stop()

	next, err := s.NextRun("hourly")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)

	_, err = s.NextRun("missing")
	assert.Error(t, err)
}

func TestJobHistory(t *testing.T) {
	var h JobHistory
	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetFailedResults(), maxHistory/2)

	runs, failures := h.Totals()
	assert.Equal(t, maxHistory+10, runs, "totals outlive the window")
	assert.Equal(t, (maxHistory+10)/2, failures)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
	assert.Empty(t, (&JobHistory{}).GetLatestResults(3))
}
