// Package jobs runs periodic in-process jobs and the optional Redis-backed notification queue.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/Proton-105/trainer-bot/pkg/metrics"
)

// Job is one unit of periodic work. A returned error is logged; the job keeps its schedule.
type Job func(ctx context.Context) error

const defaultTickTimeout = 45 * time.Second

type entry struct {
	name     string
	schedule cron.Schedule
	fn       Job
	timeout  time.Duration
}

// Scheduler fires registered jobs on their schedules using an injectable clock.
// A job never overlaps itself: the next firing is computed after the current run returns.
type Scheduler struct {
	clock    clockwork.Clock
	log      *slog.Logger
	timeout  time.Duration
	location *time.Location

	mu      sync.Mutex
	entries []*entry
	running bool
	wg      sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickTimeout bounds a single job run.
func WithTickTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLocation sets the zone cron expressions are evaluated in.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewScheduler constructs a Scheduler. A nil clock means the wall clock.
func NewScheduler(clock clockwork.Clock, log *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		clock:    clock,
		log:      log,
		timeout:  defaultTickTimeout,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Every registers fn to run every interval, first one interval after Run starts.
func (s *Scheduler) Every(name string, interval time.Duration, fn Job) error {
	if interval < time.Second {
		return fmt.Errorf("scheduler: job %s: interval %s is below one second", name, interval)
	}
	return s.add(name, cron.Every(interval), fn)
}

// Cron registers fn on a standard five-field cron expression or a descriptor such as "@hourly".
func (s *Scheduler) Cron(name, spec string, fn Job) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("scheduler: job %s: parse %q: %w", name, spec, err)
	}
	return s.add(name, schedule, fn)
}

func (s *Scheduler) add(name string, schedule cron.Schedule, fn Job) error {
	if fn == nil {
		return fmt.Errorf("scheduler: job %s has no function", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler: cannot add jobs while running")
	}
	for _, e := range s.entries {
		if e.name == name {
			return fmt.Errorf("scheduler: job %s already registered", name)
		}
	}

	s.entries = append(s.entries, &entry{name: name, schedule: schedule, fn: fn, timeout: s.timeout})
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.name)
	}
	return names
}

// Run fires jobs until ctx is cancelled, then waits for runs in flight to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler: already running")
	}
	s.running = true
	entries := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	s.log.InfoContext(ctx, "scheduler: starting", slog.Int("jobs", len(entries)))

	for _, e := range entries {
		s.wg.Add(1)
		go func(e *entry) {
			defer s.wg.Done()
			s.loop(ctx, e)
		}(e)
	}

	<-ctx.Done()
	s.log.Info("scheduler: shutting down, waiting for running jobs")
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.log.Info("scheduler: stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	for {
		now := s.clock.Now().In(s.location)
		timer := s.clock.NewTimer(e.schedule.Next(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		s.runOnce(ctx, e)
	}
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var target *entry
	for _, e := range s.entries {
		if e.name == name {
			target = e
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return fmt.Errorf("scheduler: unknown job %s", name)
	}
	return s.runOnce(ctx, target)
}

// runOnce detaches the run from ctx cancellation so shutdown lets it complete,
// bounded by the tick timeout.
func (s *Scheduler) runOnce(ctx context.Context, e *entry) (err error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	started := s.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", e.name, r)
			s.log.Error("scheduler: job panicked",
				slog.String("job", e.name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}

		status := "ok"
		if err != nil {
			status = "error"
			s.log.Error("scheduler: job failed",
				slog.String("job", e.name),
				slog.Duration("duration", s.clock.Since(started)),
				slog.Any("error", err),
			)
		}
		metrics.RecordJobRun(e.name, status)
	}()

	return e.fn(runCtx)
}
