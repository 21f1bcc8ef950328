package cron

import (
	"fmt"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

// Parser represents a cron expression parser type
type Parser int

const (
	DefaultParser Parser = iota
	StandardParser
	SecondsParser
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the timezone used to evaluate expressions.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.location = loc
	}
}

func WithLogger(logger Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithLogLevel(level LogLevel) Option {
	return func(s *Scheduler) {
		s.logLevel = level
	}
}

// WithErrorHandler receives job failures and recovered panics.
func WithErrorHandler(handler func(error)) Option {
	return func(s *Scheduler) {
		if handler != nil {
			s.errorHandler = handler
		}
	}
}

func WithParser(p Parser) Option {
	return func(s *Scheduler) {
		s.parser = p
	}
}

// loggerAdapter adapts Logger to robfig/cron's logger
type loggerAdapter struct {
	logger Logger
	level  LogLevel
}

func (l *loggerAdapter) Info(msg string, args ...any) {
	if l.level >= LogLevelDebug {
		l.logger.Info("cron: %s%s", msg, formatKeysAndValues(args))
	}
}

func (l *loggerAdapter) Error(err error, msg string, args ...any) {
	if l.level >= LogLevelError {
		l.logger.Error("cron: %s%s: %v", msg, formatKeysAndValues(args), err)
	}
}

// formatKeysAndValues renders robfig's alternating key/value pairs.
func formatKeysAndValues(args []any) string {
	out := ""
	for i := 0; i+1 < len(args); i += 2 {
		out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	return out
}

// errorHandlerAdapter routes recovered job panics to the error handler.
type errorHandlerAdapter struct {
	handler func(error)
}

func (e *errorHandlerAdapter) Info(string, ...any) {}

func (e *errorHandlerAdapter) Error(err error, msg string, args ...any) {
	if err == nil {
		err = fmt.Errorf("%s%s", msg, formatKeysAndValues(args))
	}
	e.handler(err)
}
