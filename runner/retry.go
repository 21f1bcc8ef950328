package runner

import (
	"errors"
	"math"
	"time"
)

// RetryStrategy encapsulates the delay between retries.
type RetryStrategy interface {
	// SleepDuration returns how long to wait before the next retry attempt.
	// The attempt index starts at 0, incrementing after each failure.
	SleepDuration(attempt int, err error) time.Duration
}

// RetryDecision is the outcome of asking a strategy about one failure.
type RetryDecision struct {
	ShouldRetry bool
	Delay       time.Duration
	Metadata    map[string]any
}

// RetryDecider is implemented by strategies that can decline a retry.
type RetryDecider interface {
	DecideRetry(attempt int, err error) RetryDecision
}

// DecideRetry asks strategy whether attempt should be followed by another
// one. Permanent errors are never retried. Strategies without a decider
// always retry after their sleep duration.
func DecideRetry(strategy RetryStrategy, attempt int, err error) RetryDecision {
	if IsPermanent(err) {
		return RetryDecision{}
	}
	if strategy == nil {
		strategy = NoDelayStrategy{}
	}
	if decider, ok := strategy.(RetryDecider); ok {
		return decider.DecideRetry(attempt, err)
	}
	return RetryDecision{ShouldRetry: true, Delay: strategy.SleepDuration(attempt, err)}
}

// NoDelayStrategy performs all retries immediately.
type NoDelayStrategy struct{}

func (n NoDelayStrategy) SleepDuration(_ int, _ error) time.Duration {
	return 0
}

// ExponentialBackoffStrategy implements a backoff strategy.
// Usage example:
//
//	WithRetryStrategy(ExponentialBackoffStrategy{
//	    Base:   100 * time.Millisecond,
//	    Factor: 2,
//	    Max:    5 * time.Second,
//	})
type ExponentialBackoffStrategy struct {
	Base   time.Duration
	Factor float64
	// Max caps the exponential growth. Zero means no cap.
	Max time.Duration
}

// SleepDuration implements an exponential backoff with a cap at Max.
func (e ExponentialBackoffStrategy) SleepDuration(attempt int, _ error) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(e.Base) * math.Pow(e.Factor, float64(attempt))
	if time.Duration(delay) > e.Max && e.Max > 0 {
		return e.Max
	}
	return time.Duration(delay)
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying, e.g. a rejected request.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err or anything it wraps was marked Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
