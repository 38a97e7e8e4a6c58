package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/config"
)

type countingRunner struct {
	overdue     atomic.Int32
	maintenance atomic.Int32
}

func (r *countingRunner) SendOverdueReminders() error {
	r.overdue.Add(1)
	return nil
}

func (r *countingRunner) FlagMaintenanceDue() error {
	r.maintenance.Add(1)
	return nil
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler(&countingRunner{}, config.SchedulerConfig{
		SendOverdueReminders: "every morning",
		FlagMaintenanceDue:   "0 30 6 * * *",
	}, time.UTC)
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	runner := &countingRunner{}
	loc := time.FixedZone("UTC+2", 2*60*60)

	s, err := NewScheduler(runner, config.SchedulerConfig{
		SendOverdueReminders: "* * * * * *",
		FlagMaintenanceDue:   "0 30 6 * * *",
	}, loc)
	require.NoError(t, err)
	assert.True(t, s.IsRunning())

	s.Start()
	require.Eventually(t, func() bool { return runner.overdue.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()

	assert.Zero(t, runner.maintenance.Load())
	next := s.NextRuns()
	require.Len(t, next, 2)
	for _, n := range next {
		assert.Equal(t, loc, n.Location())
	}
}
