// Package scheduler fires tasks on their cron schedules and on demand, one run per task at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-automation/internal/batch"
	"github.com/spec-kit/ticket-automation/internal/persistence"
	"github.com/spec-kit/ticket-automation/internal/tasks"
	apperrors "github.com/spec-kit/ticket-automation/pkg/util/errorutil"
)

// RunObserver is told about every finished or skipped run.
type RunObserver interface {
	ObserveRun(task string, res batch.Result, err error, elapsed time.Duration)
}

// RunStatus describes the latest run of a task.
type RunStatus struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Result     batch.Result `json:"result"`
	Skipped    bool         `json:"skipped"`
	Error      string       `json:"error,omitempty"`
}

// TaskInfo lists a registered task.
type TaskInfo struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	Next     *time.Time `json:"next_run,omitempty"`
	LastRun  *RunStatus `json:"last_run,omitempty"`
}

// Scheduler owns the cron runner and the registered tasks.
type Scheduler struct {
	cron     *cron.Cron
	locker   persistence.Locker
	leaseTTL time.Duration
	observer RunObserver
	logger   *zap.Logger

	mu      sync.Mutex
	tasks   map[string]tasks.Task
	entries map[string]cron.EntryID
	last    map[string]RunStatus

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. observer may be nil.
func New(locker persistence.Locker, leaseTTL time.Duration, observer RunObserver, logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		locker:   locker,
		leaseTTL: leaseTTL,
		observer: observer,
		logger:   logger,
		tasks:    make(map[string]tasks.Task),
		entries:  make(map[string]cron.EntryID),
		last:     make(map[string]RunStatus),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds task under its schedule. Names must be unique.
func (s *Scheduler) Register(task tasks.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := task.Name()
	if _, ok := s.tasks[name]; ok {
		return fmt.Errorf("task %s already registered", name)
	}
	id, err := s.cron.AddFunc(task.Schedule(), func() {
		if _, err := s.RunNow(s.ctx, name); err != nil && !errors.Is(err, apperrors.ErrLeaseHeld) {
			s.logger.Error("scheduled run failed", zap.String("task", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, task.Schedule(), err)
	}

	s.tasks[name] = task
	s.entries[name] = id
	s.logger.Info("task registered", zap.String("task", name), zap.String("schedule", task.Schedule()))
	return nil
}

// Start begins firing scheduled runs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels running ones and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs the named task immediately under its lease. A run already holding the lease makes
// this call a no-op returning an error matching errorutil.ErrLeaseHeld.
func (s *Scheduler) RunNow(ctx context.Context, name string) (batch.Result, error) {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return batch.Result{}, apperrors.NewNotFound("task", map[string]any{"name": name})
	}

	log := s.logger.With(zap.String("task", name))
	started := time.Now()

	release, err := s.locker.Acquire(ctx, name, s.leaseTTL)
	if err != nil {
		if errors.Is(err, apperrors.ErrLeaseHeld) {
			log.Info("run skipped; lease held by another run")
			s.record(name, RunStatus{StartedAt: started, FinishedAt: time.Now(), Skipped: true})
		}
		s.observe(name, batch.Result{}, err, time.Since(started))
		return batch.Result{}, err
	}
	defer func() {
		// the run context may already be canceled; releasing must still reach the store
		if err := release(context.Background()); err != nil {
			log.Warn("failed to release lease", zap.Error(err))
		}
	}()

	log.Info("run started")
	res, err := task.Run(ctx)
	elapsed := time.Since(started)

	status := RunStatus{StartedAt: started, FinishedAt: started.Add(elapsed), Result: res}
	if err != nil {
		status.Error = err.Error()
		log.Error("run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	} else {
		log.Info("run finished", zap.Int("transitioned", res.Transitioned), zap.Duration("elapsed", elapsed))
	}
	s.record(name, status)
	s.observe(name, res, err, elapsed)
	return res, err
}

// Tasks lists registered tasks ordered by name.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskInfo, 0, len(s.tasks))
	for name, task := range s.tasks {
		info := TaskInfo{Name: name, Schedule: task.Schedule()}
		if entry := s.cron.Entry(s.entries[name]); !entry.Next.IsZero() {
			next := entry.Next
			info.Next = &next
		}
		if last, ok := s.last[name]; ok {
			info.LastRun = &last
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) record(name string, status RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[name] = status
}

func (s *Scheduler) observe(name string, res batch.Result, err error, elapsed time.Duration) {
	if s.observer != nil {
		s.observer.ObserveRun(name, res, err, elapsed)
	}
}

// cronLogger routes cron's key/value logging into zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
