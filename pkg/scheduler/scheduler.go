// Package scheduler runs the server's periodic maintenance jobs on a cron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"admin-dashboard/backend/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Job is one unit of periodic work. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context)

type entry struct {
	name string
	job  Job
}

// Scheduler owns a cron instance and the context its jobs run under.
type Scheduler struct {
	cron   *cron.Cron
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries []entry
}

// New creates a stopped scheduler. Jobs that panic are recovered and logged,
// and a job still running when its next tick fires is skipped.
func New(log *logger.Logger) *Scheduler {
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every schedules job at a fixed interval, rounded to whole seconds.
// A non-positive interval is rejected and nothing is scheduled.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive, got %s", name, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() { s.run(name, job) }))
	s.entries = append(s.entries, entry{name: name, job: job})

	s.log.Info("Scheduled job", "job", name, "interval", interval.String())
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	job(s.ctx)
	s.log.Debug("Job finished", "job", name, "duration", time.Since(start).String())
}

// RunAll runs every registered job once, synchronously.
func (s *Scheduler) RunAll() {
	s.mu.Lock()
	entries := append([]entry(nil), s.entries...)
	s.mu.Unlock()
	for _, e := range entries {
		s.run(e.name, e.job)
	}
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule, cancels running jobs and waits for them, or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.LogError(err, msg, keysAndValues...)
}
