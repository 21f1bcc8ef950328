package cron

import (
	"context"
	"errors"
	"time"
)

// Sweeper removes sessions idle for longer than a duration.
type Sweeper interface {
	Sweep(ctx context.Context, idle time.Duration) (int, error)
}

// ScheduleJanitor runs sweeper on expression, removing sessions idle for
// longer than idle.
func ScheduleJanitor(s *Scheduler, sweeper Sweeper, expression string, idle time.Duration) (Handle, error) {
	if s == nil {
		return nil, errors.New("scheduler cannot be nil")
	}
	if sweeper == nil {
		return nil, errors.New("sweeper cannot be nil")
	}
	if idle <= 0 {
		return nil, errors.New("idle duration must be positive")
	}
	return s.ScheduleCron(JobConfig{
		Name:       "session-janitor",
		Expression: expression,
		Timeout:    time.Minute,
	}, func(ctx context.Context) error {
		removed, err := sweeper.Sweep(ctx, idle)
		if err != nil {
			return err
		}
		if s.logger != nil && removed > 0 {
			s.logger.Info("session janitor removed=%d", removed)
		}
		return nil
	})
}
