package flow

import (
	"context"
	"errors"
	"strings"
	"time"
)

// TransitionPhase identifies lifecycle event emission points.
type TransitionPhase string

const (
	TransitionPhaseAttempted TransitionPhase = "attempted"
	TransitionPhaseCommitted TransitionPhase = "committed"
	TransitionPhaseRejected  TransitionPhase = "rejected"
)

// HookFailureMode controls lifecycle-hook error behavior.
type HookFailureMode string

const (
	HookFailureModeFailOpen   HookFailureMode = "fail_open"
	HookFailureModeFailClosed HookFailureMode = "fail_closed"
)

// TransitionEvent describes one applied (or refused) action.
type TransitionEvent struct {
	Phase        TransitionPhase
	Action       string
	Mode         Mode
	PreviousStep Step
	CurrentStep  Step
	Pruned       FieldSet
	SideEffect   SideEffect
	EffectToken  int64
	NewEffect    bool
	Progress     int
	ErrorCode    string
	ErrorMessage string
	Metadata     map[string]any
	OccurredAt   time.Time
}

// TransitionHook receives transition lifecycle events.
type TransitionHook interface {
	Notify(ctx context.Context, evt TransitionEvent) error
}

// TransitionHookFunc adapts a function to TransitionHook.
type TransitionHookFunc func(ctx context.Context, evt TransitionEvent) error

func (f TransitionHookFunc) Notify(ctx context.Context, evt TransitionEvent) error {
	return f(ctx, evt)
}

// TransitionHooks fans an event out to every hook.
type TransitionHooks []TransitionHook

func (h TransitionHooks) Notify(ctx context.Context, evt TransitionEvent) error {
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalizeHookFailureMode(mode HookFailureMode) HookFailureMode {
	switch HookFailureMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case HookFailureModeFailClosed:
		return HookFailureModeFailClosed
	default:
		return HookFailureModeFailOpen
	}
}
