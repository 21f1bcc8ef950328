package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedDecisionStrategy struct {
	decision RetryDecision
}

func (f fixedDecisionStrategy) SleepDuration(int, error) time.Duration {
	return time.Hour
}

func (f fixedDecisionStrategy) DecideRetry(int, error) RetryDecision {
	return f.decision
}

func TestDecideRetryUsesDeciderWhenAvailable(t *testing.T) {
	strategy := fixedDecisionStrategy{
		decision: RetryDecision{
			ShouldRetry: false,
			Delay:       25 * time.Millisecond,
			Metadata:    map[string]any{"source": "test"},
		},
	}

	decision := DecideRetry(strategy, 1, fmt.Errorf("boom"))
	assert.False(t, decision.ShouldRetry)
	assert.Equal(t, 25*time.Millisecond, decision.Delay)
	assert.Equal(t, "test", decision.Metadata["source"])
}

func TestDecideRetryFallsBackToSleepDuration(t *testing.T) {
	strategy := ExponentialBackoffStrategy{
		Base:   10 * time.Millisecond,
		Factor: 2,
		Max:    100 * time.Millisecond,
	}
	decision := DecideRetry(strategy, 2, nil)
	assert.True(t, decision.ShouldRetry)
	assert.Equal(t, 40*time.Millisecond, decision.Delay)

	assert.Equal(t, 100*time.Millisecond, strategy.SleepDuration(10, nil))
}

func TestDecideRetryNeverRetriesPermanent(t *testing.T) {
	decision := DecideRetry(NoDelayStrategy{}, 0, fmt.Errorf("wrapped: %w", Permanent(errors.New("404"))))
	assert.False(t, decision.ShouldRetry)
	assert.Nil(t, Permanent(nil))
}

func TestHandler_DeciderCanStopRetries(t *testing.T) {
	h := NewHandler(WithMaxRetries(5), WithRetryStrategy(fixedDecisionStrategy{}))
	cf := &countingFunc{failUntil: 5}

	require.Error(t, h.Run(context.Background(), cf.fn))
	assert.Equal(t, 1, cf.calls)
}
