// Package cron triggers independent runs on a cron schedule.
// It uses robfig/cron/v3; expressions accept an optional seconds field and
// descriptors such as @daily.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/profsweep/internal/logger"
)

// RunFunc performs one run. Its error is logged, never fatal to the schedule.
type RunFunc func(ctx context.Context) error

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks a cron expression.
func Validate(expression string) error {
	if expression == "" {
		return errors.New("invalid cron expression: empty schedule")
	}
	if _, err := parser.Parse(expression); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// Scheduler runs a RunFunc on a schedule. A run still in progress when the
// next tick arrives causes that tick to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	run      RunFunc
	logger   *logger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.Mutex
	entryID  cron.EntryID
	runs     int
}

// NewScheduler parses expression and prepares a scheduler around run.
func NewScheduler(expression string, run RunFunc, log *logger.Logger) (*Scheduler, error) {
	if err := Validate(expression); err != nil {
		return nil, err
	}
	sched, _ := parser.Parse(expression)
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule: sched,
		run:      run,
		logger:   log,
	}, nil
}

// Start schedules the run. It returns immediately; runs stop when ctx is
// done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.entryID = s.cron.Schedule(s.schedule, cron.FuncJob(s.execute))
	s.started = true
	s.cron.Start()

	s.logger.Info("cron scheduler started",
		logger.Field{Key: "next_run", Value: s.Next().Format(time.RFC3339)})

	go func() {
		<-s.ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Info("cron scheduler stopped")
	}()

	return nil
}

// Stop cancels the schedule and any run in progress.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("scheduler not started")
	}

	s.cancel()
	s.started = false
	return nil
}

// Next returns the time of the next scheduled run.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(time.Now())
}

// Runs returns how many runs have started.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// RunNow executes one run synchronously, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.runOnce(ctx)
}

func (s *Scheduler) execute() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	_ = s.runOnce(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) error {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	runID := uuid.NewString()
	start := time.Now()
	s.logger.Info("scheduled run started", logger.Field{Key: "run_id", Value: runID})

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic during run: %v", r)
			}
		}()
		return s.run(ctx)
	}()

	fields := []logger.Field{
		{Key: "run_id", Value: runID},
		{Key: "duration", Value: time.Since(start).String()},
	}
	if err != nil {
		s.logger.Error("scheduled run failed", err, fields...)
		return err
	}
	s.logger.Info("scheduled run finished", fields...)
	return nil
}
