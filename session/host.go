package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	intake "github.com/goliatone/go-intake"
	"github.com/goliatone/go-intake/dispatcher"
	"github.com/goliatone/go-intake/flow"
	"github.com/goliatone/go-intake/gateway"
	"github.com/goliatone/go-intake/runner"
)

// SentinelQuerier looks up the product history of a customer.
type SentinelQuerier = intake.Querier[gateway.LookupRequest, gateway.LookupResult]

// Submitter files a support case.
type Submitter = intake.Commander[gateway.Ticket]

// EffectObserver is told how each backend side effect went.
type EffectObserver interface {
	ObserveEffect(effect flow.SideEffect, outcome string, elapsed time.Duration)
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// maxFeedback bounds the effect/result round trips of one Dispatch.
const maxFeedback = 4

type Option func(*Host)

func WithStore(store Store) Option {
	return func(h *Host) {
		if store != nil {
			h.store = store
		}
	}
}

func WithMachine(m *flow.Machine) Option {
	return func(h *Host) {
		if m != nil {
			h.machine = m
		}
	}
}

func WithSentinel(q SentinelQuerier) Option {
	return func(h *Host) {
		h.sentinel = q
	}
}

func WithSubmitter(c Submitter) Option {
	return func(h *Host) {
		h.submitter = c
	}
}

// WithRunner replaces the handler that bounds gateway calls.
func WithRunner(r *runner.Handler) Option {
	return func(h *Host) {
		if r != nil {
			h.runner = r
		}
	}
}

func WithLogger(logger flow.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(h *Host) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithIDGenerator replaces the uuid session ids.
func WithIDGenerator(fn func() string) Option {
	return func(h *Host) {
		if fn != nil {
			h.newID = fn
		}
	}
}

func WithEffectObserver(o EffectObserver) Option {
	return func(h *Host) {
		h.observer = o
	}
}

// Host owns the wizard sessions. Actions of one session are applied one at
// a time; different sessions proceed in parallel.
type Host struct {
	store     Store
	machine   *flow.Machine
	sentinel  SentinelQuerier
	submitter Submitter
	runner    *runner.Handler
	logger    flow.Logger
	clock     func() time.Time
	newID     func() string
	observer  EffectObserver

	locks sync.Map
}

func NewHost(opts ...Option) *Host {
	h := &Host{
		store:   NewMemoryStore(),
		logger:  flow.NewFmtLogger(io.Discard),
		clock:   time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.machine == nil {
		h.machine = flow.NewMachine(flow.WithLogger(h.logger))
	}
	if h.runner == nil {
		h.runner = runner.NewHandler(
			runner.WithTimeout(15*time.Second),
			runner.WithMaxRetries(2),
			runner.WithRetryStrategy(runner.ExponentialBackoffStrategy{
				Base:   200 * time.Millisecond,
				Factor: 2,
				Max:    2 * time.Second,
			}),
			runner.WithLogger(h.logger),
		)
	}
	return h
}

func (h *Host) Machine() *flow.Machine { return h.machine }

// Start creates a session for mode and initializes it with profile. A
// session whose initialization fails is removed again.
func (h *Host) Start(ctx context.Context, mode flow.Mode, profile *flow.Profile) (*Record, error) {
	if !mode.Valid() {
		return nil, flow.NewRuntimeError(flow.ErrInvalidActionPayload, fmt.Sprintf("unknown mode %q", mode), nil, nil)
	}
	now := h.clock().UTC()
	rec := &Record{
		ID:        h.newID(),
		State:     flow.NewState(mode),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := h.store.SaveIfVersion(ctx, rec, 0); err != nil {
		return nil, err
	}
	h.logger.Info("session started session_id=%s mode=%s", rec.ID, mode)

	started, err := h.Dispatch(ctx, rec.ID, flow.Initialize{Profile: profile})
	if err != nil {
		if delErr := h.store.Delete(ctx, rec.ID); delErr != nil && !IsNotFound(delErr) {
			h.logger.Error("discard failed session session_id=%s: %v", rec.ID, delErr)
		}
		h.locks.Delete(rec.ID)
		return nil, err
	}
	return started, nil
}

// Get returns the stored session.
func (h *Host) Get(ctx context.Context, id string) (*Record, error) {
	return h.store.Load(ctx, id)
}

// Dispatch applies a to the session and resolves the backend effect the
// transition requested, feeding its result back before returning. Machine
// errors leave the session untouched.
func (h *Host) Dispatch(ctx context.Context, id string, a flow.Action) (*Record, error) {
	unlock := h.lock(id)
	defer unlock()

	rec, err := h.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	logger := flow.WithLoggerFields(h.logger.WithContext(ctx), map[string]any{"session_id": id})

	for round := 0; ; round++ {
		previous := rec.State
		next, err := h.machine.Apply(ctx, previous, a)
		if err != nil {
			return nil, err
		}
		rec, err = h.save(ctx, rec, next)
		if err != nil {
			return nil, err
		}

		newEffect := next.TS != previous.TS && next.SideEffect != flow.SideEffectNone
		if !newEffect || next.SideEffect.IsPresentation() {
			return rec, nil
		}
		if round >= maxFeedback {
			logger.Warn("effect feedback limit reached effect=%s", next.SideEffect)
			return rec, nil
		}
		a = h.resolve(ctx, logger, next)
		if a == nil {
			return rec, nil
		}
	}
}

// Sink adapts the session to a dispatcher sink.
func (h *Host) Sink(id string) dispatcher.SinkFunc {
	return func(ctx context.Context, a flow.Action) error {
		_, err := h.Dispatch(ctx, id, a)
		return err
	}
}

func (h *Host) Delete(ctx context.Context, id string) error {
	unlock := h.lock(id)
	defer unlock()
	if err := h.store.Delete(ctx, id); err != nil {
		return err
	}
	h.locks.Delete(id)
	h.logger.Info("session deleted session_id=%s", id)
	return nil
}

// Sweep deletes sessions not written for longer than idle and returns how
// many were removed.
func (h *Host) Sweep(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := h.clock().UTC().Add(-idle)
	ids, err := h.store.ListIdle(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := h.Delete(ctx, id); err != nil {
			if IsNotFound(err) {
				continue
			}
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		h.logger.Info("idle sessions swept removed=%d cutoff=%s", removed, cutoff.Format(time.RFC3339))
	}
	return removed, nil
}

func (h *Host) save(ctx context.Context, rec *Record, next flow.State) (*Record, error) {
	updated := &Record{
		ID:        rec.ID,
		State:     next,
		Finished:  rec.Finished || next.Terminal(),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: h.clock().UTC(),
	}
	version, err := h.store.SaveIfVersion(ctx, updated, rec.Version)
	if err != nil {
		return nil, err
	}
	updated.Version = version
	return updated, nil
}

func (h *Host) lock(id string) func() {
	v, _ := h.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
