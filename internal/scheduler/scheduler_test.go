package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-automation/internal/batch"
	"github.com/spec-kit/ticket-automation/internal/persistence"
	apperrors "github.com/spec-kit/ticket-automation/pkg/util/errorutil"
)

type fakeTask struct {
	name     string
	schedule string
	result   batch.Result
	err      error
	runs     int
	during   func()
}

func (f *fakeTask) Name() string     { return f.name }
func (f *fakeTask) Schedule() string { return f.schedule }

func (f *fakeTask) Run(context.Context) (batch.Result, error) {
	f.runs++
	if f.during != nil {
		f.during()
	}
	return f.result, f.err
}

type observed struct {
	task string
	err  error
}

type recordingObserver struct {
	mu   sync.Mutex
	runs []observed
}

func (r *recordingObserver) ObserveRun(task string, _ batch.Result, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, observed{task: task, err: err})
}

func newScheduler(obs RunObserver) *Scheduler {
	return New(persistence.NewLocalLocker(), time.Hour, obs, zap.NewNop())
}

func TestRunNowRecordsResult(t *testing.T) {
	obs := &recordingObserver{}
	s := newScheduler(obs)
	task := &fakeTask{name: "ticket-auto-close", schedule: "@daily", result: batch.Result{Total: 3, Transitioned: 2}}
	require.NoError(t, s.Register(task))

	res, err := s.RunNow(context.Background(), "ticket-auto-close")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Transitioned)
	assert.Equal(t, 1, task.runs)

	infos := s.Tasks()
	require.Len(t, infos, 1)
	require.NotNil(t, infos[0].LastRun)
	assert.Equal(t, 2, infos[0].LastRun.Result.Transitioned)
	assert.Empty(t, infos[0].LastRun.Error)
	assert.Equal(t, []observed{{task: "ticket-auto-close"}}, obs.runs)
}

func TestRunNowSkipsWhileLeaseHeld(t *testing.T) {
	s := newScheduler(nil)
	task := &fakeTask{name: "ticket-auto-reopen", schedule: "@hourly"}
	var nestedErr error
	task.during = func() {
		_, nestedErr = s.RunNow(context.Background(), "ticket-auto-reopen")
	}
	require.NoError(t, s.Register(task))

	_, err := s.RunNow(context.Background(), "ticket-auto-reopen")
	require.NoError(t, err)

	assert.ErrorIs(t, nestedErr, apperrors.ErrLeaseHeld)
	assert.Equal(t, 1, task.runs)

	// the lease is released once the run returns
	task.during = nil
	_, err = s.RunNow(context.Background(), "ticket-auto-reopen")
	require.NoError(t, err)
	assert.Equal(t, 2, task.runs)
}

func TestRunNowReportsTaskError(t *testing.T) {
	obs := &recordingObserver{}
	s := newScheduler(obs)
	cfgErr := apperrors.NewConfigurationError("organization limit must be positive", nil)
	require.NoError(t, s.Register(&fakeTask{name: "ticket-auto-close", schedule: "@daily", err: cfgErr}))

	_, err := s.RunNow(context.Background(), "ticket-auto-close")
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfiguration)

	info := s.Tasks()[0]
	require.NotNil(t, info.LastRun)
	assert.Contains(t, info.LastRun.Error, "organization limit")
	require.Len(t, obs.runs, 1)
	assert.Error(t, obs.runs[0].err)
}

func TestRunNowUnknownTask(t *testing.T) {
	s := newScheduler(nil)
	_, err := s.RunNow(context.Background(), "nope")

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, apperrors.CodeNotFound, domainErr.Code)
}

func TestRegisterValidatesSchedule(t *testing.T) {
	s := newScheduler(nil)

	err := s.Register(&fakeTask{name: "bad", schedule: "whenever"})
	assert.ErrorContains(t, err, "schedule bad")

	require.NoError(t, s.Register(&fakeTask{name: "ok", schedule: "*/5 * * * *"}))
	assert.ErrorContains(t, s.Register(&fakeTask{name: "ok", schedule: "@daily"}), "already registered")
}

func TestTasksListsInNameOrder(t *testing.T) {
	s := newScheduler(nil)
	require.NoError(t, s.Register(&fakeTask{name: "ticket-auto-reopen", schedule: "@hourly"}))
	require.NoError(t, s.Register(&fakeTask{name: "ticket-auto-close", schedule: "@daily"}))

	s.Start()
	defer func() { require.NoError(t, s.Stop(context.Background())) }()

	infos := s.Tasks()
	require.Len(t, infos, 2)
	assert.Equal(t, "ticket-auto-close", infos[0].Name)
	assert.Equal(t, "@hourly", infos[1].Schedule)
	assert.Nil(t, infos[0].LastRun)
}
