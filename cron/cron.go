package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-intake/runner"

	rcron "github.com/robfig/cron/v3"
)

// Logger is the subset of flow.Logger the scheduler writes to.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// JobConfig describes when and how a job runs.
type JobConfig struct {
	Name       string
	Expression string
	Timeout    time.Duration
	MaxRetries int
}

// Scheduler runs jobs on cron expressions.
type Scheduler struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	location     *time.Location
	errorHandler func(error)
	logger       Logger
	logLevel     LogLevel
	parser       Parser

	nextHandleID int64
	handles      map[int64]*handle
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		location:     time.Local,
		parser:       DefaultParser,
		logLevel:     LogLevelError,
		errorHandler: func(error) {},
		handles:      make(map[int64]*handle),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = rcron.New(s.build()...)
	return s
}

// ScheduleCron registers job to run on cfg.Expression. Each run is bounded
// by a runner with the configured timeout and retries.
func (s *Scheduler) ScheduleCron(cfg JobConfig, job Job) (Handle, error) {
	if cfg.Expression == "" {
		return nil, errors.New("cron expression cannot be empty")
	}
	if job == nil {
		return nil, errors.New("cron job cannot be nil")
	}
	runnerOpts := []runner.Option{
		runner.WithMaxRetries(cfg.MaxRetries),
		runner.WithErrorHandler(func(error) {}),
	}
	if cfg.Timeout > 0 {
		runnerOpts = append(runnerOpts, runner.WithTimeout(cfg.Timeout))
	}
	r := runner.NewHandler(runnerOpts...)

	h := s.newHandle(cfg.Name)
	entryID, err := s.cron.AddFunc(cfg.Expression, func() {
		if isTerminalStatus(h.Status()) {
			return
		}
		h.setStatus(ScheduleStatusRunning, nil)
		err := r.Run(s.ctx, job)
		h.finishRun(time.Now(), err)
		if err != nil {
			s.errorHandler(fmt.Errorf("job %s: %w", h.name, err))
			if s.logger != nil {
				s.logger.Error("cron job failed job=%s: %v", h.name, err)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add job: %w", err)
	}
	h.entryID = entryID
	s.storeHandle(h)
	return h, nil
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	return nil
}

// Stop stops the scheduler, cancels running jobs and waits for them until
// ctx is done. Every handle ends in the stopped state.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	stopped := s.cron.Stop()

	s.mu.Lock()
	handles := make([]*handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.handles = make(map[int64]*handle)
	s.mu.Unlock()

	for _, h := range handles {
		s.cron.Remove(h.entryID)
		if !isTerminalStatus(h.Status()) {
			h.setTerminal(ScheduleStatusStopped)
		}
	}

	if ctx == nil {
		return nil
	}
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) removeHandle(id int64) {
	s.mu.Lock()
	h := s.handles[id]
	delete(s.handles, id)
	s.mu.Unlock()
	if h != nil {
		s.cron.Remove(h.entryID)
	}
}

func (s *Scheduler) storeHandle(h *handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[h.id] = h
}

func (s *Scheduler) newHandle(name string) *handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandleID++
	if name == "" {
		name = fmt.Sprintf("job-%d", s.nextHandleID)
	}
	return &handle{
		scheduler: s,
		id:        s.nextHandleID,
		name:      name,
		status:    ScheduleStatusScheduled,
		done:      make(chan struct{}),
	}
}

// build converts scheduler options to rcron options.
func (s *Scheduler) build() []rcron.Option {
	opts := make([]rcron.Option, 0, 4)
	if s.location != nil {
		opts = append(opts, rcron.WithLocation(s.location))
	}

	switch s.parser {
	case StandardParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	case SecondsParser:
		opts = append(opts, rcron.WithParser(rcron.NewParser(
			rcron.Second|rcron.Minute|rcron.Hour|rcron.Dom|rcron.Month|rcron.Dow|rcron.Descriptor,
		)))
	}

	opts = append(opts, rcron.WithChain(
		rcron.Recover(&errorHandlerAdapter{handler: s.errorHandler}),
		rcron.SkipIfStillRunning(rcron.DiscardLogger),
	))

	if s.logger != nil && s.logLevel > LogLevelSilent {
		opts = append(opts, rcron.WithLogger(&loggerAdapter{logger: s.logger, level: s.logLevel}))
	}
	return opts
}
