package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/stocksignal/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
}

func (j *stubJob) Name() string                  { return j.name }
func (j *stubJob) Schedule() string              { return j.schedule }
func (j *stubJob) Run(ctx context.Context) error { return nil }

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.NewNop())

	job := &stubJob{name: "sweep", schedule: "0 0 * * * *"}
	require.NoError(t, s.AddJob(job))

	err := s.AddJob(job)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(logger.NewNop())

	err := s.AddJob(&stubJob{name: "broken", schedule: "not a cron expression"})
	assert.Error(t, err)
}

func TestJobNamesAndHistoryRegistration(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "0 0 * * * *"}))
	require.NoError(t, s.AddJob(&stubJob{name: "b", schedule: "0 30 21 * * *"}))

	assert.ElementsMatch(t, []string{"a", "b"}, s.JobNames())

	history, err := s.JobHistoryFor("a")
	require.NoError(t, err)
	assert.Empty(t, history.Results)

	_, err = s.JobHistoryFor("missing")
	assert.Error(t, err)
}

func TestRunJobUnknownName(t *testing.T) {
	s := New(logger.NewNop())
	assert.Error(t, s.RunJob("missing"))
}

func TestJobHistoryTrimsToLast100(t *testing.T) {
	h := &JobHistory{}

	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{
			JobName: fmt.Sprintf("run-%d", i),
			Success: true,
		})
	}

	assert.Len(t, h.Results, 100)
	assert.Equal(t, "run-50", h.Results[0].JobName)
	assert.Equal(t, "run-149", h.Results[99].JobName)
}

func TestJobHistoryLatestResults(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 5; i++ {
		h.AddResult(JobResult{JobName: fmt.Sprintf("run-%d", i)})
	}

	latest := h.LatestResults(2)
	assert.Len(t, latest, 2)
	assert.Equal(t, "run-3", latest[0].JobName)
	assert.Equal(t, "run-4", latest[1].JobName)

	assert.Len(t, h.LatestResults(10), 5)
	assert.Empty(t, (&JobHistory{}).LatestResults(3))
}

func TestJobHistorySuccessRate(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.SuccessRate())

	h.AddResult(JobResult{Success: true, EndTime: time.Now()})
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: false})
	h.AddResult(JobResult{Success: false})

	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}
