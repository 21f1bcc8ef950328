package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	intake "github.com/goliatone/go-intake"
)

// Logger is the subset of flow.Logger the runner writes to.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Stats counts finished runs of a Handler.
type Stats struct {
	Runs       int
	Successful int
	Failed     int
	Attempts   int
}

// Handler executes one side effect with a timeout and a bounded number of
// retries. A Handler is safe for concurrent use.
type Handler struct {
	mu sync.Mutex

	logger        Logger
	errorHandler  func(error)
	retryStrategy RetryStrategy

	maxRetries int
	timeout    time.Duration
	stats      Stats
}

// NewHandler constructs a Handler from options, applying defaults if unset.
func NewHandler(opts ...Option) *Handler {
	r := &Handler{
		errorHandler:  func(error) {},
		retryStrategy: NoDelayStrategy{},
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	return r
}

// Run calls fn until it succeeds, the retry budget is spent, the strategy
// declines, the error is permanent, or ctx is done. The last error is
// returned wrapped with the attempt count.
func (h *Handler) Run(ctx context.Context, fn func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	h.mu.Lock()
	maxRetries := h.maxRetries
	strategy := h.retryStrategy
	h.mu.Unlock()

	ctx, cancel := h.contextWithSettings(ctx)
	defer cancel()

	var err error
	attempts := 0
	for attempt := 0; ; attempt++ {
		attempts++
		err = fn(ctx)
		if err == nil || IsPermanent(err) || attempt >= maxRetries || ctx.Err() != nil {
			break
		}
		decision := DecideRetry(strategy, attempt, err)
		if !decision.ShouldRetry {
			break
		}
		h.handleError(intake.WrapError(
			"run",
			fmt.Sprintf("attempt %d of %d failed", attempt+1, maxRetries+1),
			err,
		))
		if waitErr := wait(ctx, decision.Delay); waitErr != nil {
			break
		}
	}

	h.mu.Lock()
	h.stats.Runs++
	h.stats.Attempts += attempts
	if err == nil {
		h.stats.Successful++
		h.mu.Unlock()
		h.logInfo("run succeeded after %d attempt(s)", attempts)
		return nil
	}
	h.stats.Failed++
	h.mu.Unlock()

	wrapped := intake.WrapError("run", fmt.Sprintf("failed after %d attempt(s)", attempts), err)
	h.handleError(wrapped)
	return wrapped
}

// Stats returns a snapshot of the run counters.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Handler) handleError(err error) {
	if h.logger != nil {
		h.logger.Error("runner: %v", err)
	}
	h.errorHandler(err)
}

func (h *Handler) logInfo(format string, args ...any) {
	if h.logger != nil {
		h.logger.Info(format, args...)
	}
}

func (h *Handler) contextWithSettings(parent context.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(parent, h.timeout)
	}
	return context.WithCancel(parent)
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// validate rejects msg before any attempt is made. The error is permanent.
func validate[T any](msg T) error {
	var v intake.MessageHandler[T]
	if err := v.ValidateMessage(msg); err != nil {
		return Permanent(intake.WrapError(intake.MessageType(msg), "invalid message", err))
	}
	return nil
}

// RunCommand validates msg and executes c through h.
func RunCommand[T any](ctx context.Context, h *Handler, c intake.Commander[T], msg T) error {
	if err := validate(msg); err != nil {
		return err
	}
	return h.Run(ctx, func(ctx context.Context) error {
		return c.Execute(ctx, msg)
	})
}

// RunQuery validates msg, executes q through h and returns the result of the successful
// attempt.
func RunQuery[T any, R any](ctx context.Context, h *Handler, q intake.Querier[T, R], msg T) (R, error) {
	var result R
	if err := validate(msg); err != nil {
		return result, err
	}
	err := h.Run(ctx, func(ctx context.Context) error {
		res, err := q.Query(ctx, msg)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}
