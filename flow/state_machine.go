package flow

import (
	"context"
	"time"

	intake "github.com/goliatone/go-intake"
)

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithLogger sets the machine logger.
func WithLogger(logger Logger) MachineOption {
	return func(m *Machine) {
		m.logger = normalizeLogger(logger)
	}
}

// WithCatalog replaces the embedded catalog.
func WithCatalog(c *Catalog) MachineOption {
	return func(m *Machine) {
		if c != nil {
			m.catalog = c
		}
	}
}

// WithResolver replaces the dependency resolver, e.g. to share a closure
// cache between machines.
func WithResolver(r *Resolver) MachineOption {
	return func(m *Machine) {
		if r != nil {
			m.resolver = r
		}
	}
}

// WithWaypoints replaces the steps GO_BACK skips over.
func WithWaypoints(steps ...Step) MachineOption {
	return func(m *Machine) {
		m.waypoints = NewStepSet(steps...)
	}
}

// WithEntryStep sets the step that opens the navigate-away gate instead of
// being navigated back to.
func WithEntryStep(step Step) MachineOption {
	return func(m *Machine) {
		m.entryStep = step
	}
}

func WithProgressTable(table ProgressTable) MachineOption {
	return func(m *Machine) {
		if table != nil {
			m.progress = table.clone()
		}
	}
}

// WithClock makes effect tokens follow wall-clock milliseconds. Without a
// clock tokens are a plain counter and transitions are fully deterministic.
func WithClock(clock func() time.Time) MachineOption {
	return func(m *Machine) {
		m.clock = clock
	}
}

// WithTransitionHooks appends lifecycle hooks.
func WithTransitionHooks(hooks ...TransitionHook) MachineOption {
	return func(m *Machine) {
		m.hooks = append(m.hooks, hooks...)
	}
}

func WithHookFailureMode(mode HookFailureMode) MachineOption {
	return func(m *Machine) {
		m.hookFailureMode = normalizeHookFailureMode(mode)
	}
}

// Machine composes the transition table, the pruner, back-navigation and the
// projectors. Apply is safe for concurrent use across sessions; callers
// serialize actions of one session.
type Machine struct {
	catalog         *Catalog
	resolver        *Resolver
	pruner          *Pruner
	progress        ProgressTable
	waypoints       StepSet
	entryStep       Step
	clock           func() time.Time
	logger          Logger
	hooks           TransitionHooks
	hookFailureMode HookFailureMode
	table           map[ActionType]stepFunc
	validator       intake.MessageHandler[Action]
}

// NewMachine builds a machine with the default catalog, dependency graph,
// waypoints and progress table.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		catalog:         DefaultCatalog(),
		progress:        DefaultProgress(),
		waypoints:       DefaultWaypoints(),
		entryStep:       StepGuestStart,
		logger:          normalizeLogger(nil),
		hookFailureMode: HookFailureModeFailOpen,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.resolver == nil {
		m.resolver = NewResolver(nil, nil)
	}
	m.pruner = NewPruner(m.resolver)
	m.table = m.transitionTable()
	return m
}

func (m *Machine) Catalog() *Catalog { return m.catalog }

func (m *Machine) Resolver() *Resolver { return m.resolver }

// Apply runs one action against s and returns the next state. Programming
// errors (unknown action, missing profile) are returned, never swallowed.
func (m *Machine) Apply(ctx context.Context, s State, a Action) (State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	actionType := "unknown"
	if !intake.IsNilMessage(a) {
		actionType = a.Type()
	}
	logger := WithLoggerFields(m.logger.WithContext(ctx), map[string]any{
		"action":        actionType,
		"previous_step": s.Step.String(),
		"mode":          string(s.Mode),
	})
	logger.Debug("apply action requested")

	evt := TransitionEvent{
		Action:       actionType,
		Mode:         s.Mode,
		PreviousStep: s.Step,
		CurrentStep:  s.Step,
		Progress:     s.Progress,
	}
	if err := m.notify(ctx, logger, TransitionPhaseAttempted, evt); err != nil {
		return s, err
	}

	next, pruned, err := m.apply(s, a)
	if err != nil {
		evt.ErrorCode = ErrorCode(err)
		evt.ErrorMessage = err.Error()
		_ = m.notify(ctx, logger, TransitionPhaseRejected, evt)
		logger.Error("apply action rejected: %v", err)
		return s, err
	}
	next.Display = ProjectDisplay(next)

	evt.Mode = next.Mode
	evt.CurrentStep = next.Step
	evt.Pruned = pruned
	evt.SideEffect = next.SideEffect
	evt.EffectToken = next.TS
	evt.NewEffect = next.TS != s.TS && next.SideEffect != SideEffectNone
	evt.Progress = next.Progress
	if err := m.notify(ctx, logger, TransitionPhaseCommitted, evt); err != nil {
		return s, err
	}

	logger.Debug("apply action committed step=%s progress=%d pruned=%s", next.Step, next.Progress, pruned)
	return next, nil
}

// MustApply is Apply for callers that treat every error as fatal.
func (m *Machine) MustApply(ctx context.Context, s State, a Action) State {
	next, err := m.Apply(ctx, s, a)
	if err != nil {
		panic(err)
	}
	return next
}

func (m *Machine) apply(s State, a Action) (State, FieldSet, error) {
	if err := m.validator.ValidateMessage(a); err != nil {
		return s, 0, cloneRuntimeError(ErrInvalidActionPayload, "", err, nil)
	}
	fn, ok := m.table[ActionType(a.Type())]
	if !ok {
		return s, 0, cloneRuntimeError(ErrUnknownAction, "unknown action "+a.Type(), nil, map[string]any{
			"action": a.Type(),
		})
	}
	return m.run(fn, s, a)
}

// run guards against payloads whose Go type does not match their action type.
func (m *Machine) run(fn stepFunc, s State, a Action) (next State, pruned FieldSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, pruned = s, 0
			err = cloneRuntimeError(ErrUnknownAction, "action payload does not match its type", nil, map[string]any{
				"action": a.Type(),
				"panic":  r,
			})
		}
	}()
	return fn(m, s, a)
}

func (m *Machine) notify(ctx context.Context, logger Logger, phase TransitionPhase, evt TransitionEvent) error {
	if len(m.hooks) == 0 {
		return nil
	}
	evt.Phase = phase
	evt.OccurredAt = time.Now().UTC()
	err := m.hooks.Notify(ctx, evt)
	if err == nil {
		return nil
	}
	if m.hookFailureMode == HookFailureModeFailClosed && phase != TransitionPhaseRejected {
		return cloneRuntimeError(ErrHookRejected, "", err, map[string]any{"phase": string(phase)})
	}
	logger.Warn("transition hook failed phase=%s: %v", phase, err)
	return nil
}

// nextToken returns a fresh effect token strictly greater than previous.
func (m *Machine) nextToken(previous int64) int64 {
	token := previous + 1
	if m.clock != nil {
		if ms := m.clock().UnixMilli(); ms > token {
			token = ms
		}
	}
	return token
}
