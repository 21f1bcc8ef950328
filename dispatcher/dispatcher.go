package dispatcher

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	intake "github.com/goliatone/go-intake"
	"github.com/goliatone/go-intake/flow"
)

// Sink receives the actions produced by intents, usually a session host.
type Sink interface {
	Dispatch(ctx context.Context, a flow.Action) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, a flow.Action) error

func (f SinkFunc) Dispatch(ctx context.Context, a flow.Action) error {
	return f(ctx, a)
}

// Entry is one audited intent.
type Entry struct {
	ID     string          `json:"id"`
	Intent string          `json:"intent"`
	Action flow.ActionType `json:"action"`
	At     time.Time       `json:"at"`
	Error  string          `json:"error,omitempty"`
}

// Option defines the functional option signature.
type Option func(*Dispatcher)

func WithCatalog(c *flow.Catalog) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.catalog = c
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

func WithLogger(logger flow.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithAuditLimit keeps only the latest n entries. Zero keeps all.
func WithAuditLimit(n int) Option {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.auditLimit = n
		}
	}
}

// Dispatcher turns user intents into exactly one action each and hands it
// to the sink.
type Dispatcher struct {
	sink       Sink
	catalog    *flow.Catalog
	clock      func() time.Time
	logger     flow.Logger
	validator  intake.MessageHandler[flow.Action]
	auditLimit int

	mu        sync.RWMutex
	audit     []Entry
	listeners map[uint64]Listener
	nextSubID uint64
}

func New(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:      sink,
		catalog:   flow.DefaultCatalog(),
		clock:     time.Now,
		logger:    flow.NewFmtLogger(io.Discard),
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *Dispatcher) Initialize(ctx context.Context, profile *flow.Profile) error {
	return d.send(ctx, "initialize", flow.Initialize{Profile: profile})
}

func (d *Dispatcher) SelectPatient(ctx context.Context, patient flow.Profile) error {
	return d.send(ctx, "selectPatient", flow.SelectPatient{Patient: patient})
}

func (d *Dispatcher) GuestRequestSupport(ctx context.Context) error {
	return d.send(ctx, "guestRequestSupport", flow.GuestRequestSupport{})
}

func (d *Dispatcher) AcknowledgeNotSAE(ctx context.Context, accepted bool) error {
	return d.send(ctx, "acknowledgeNotSae", flow.AcknowledgeNotSAE{Accepted: accepted})
}

func (d *Dispatcher) SelectInsertionLocation(ctx context.Context, site string) error {
	return d.send(ctx, "selectInsertionLocation", flow.SelectInsertionLocation{Site: site})
}

// SelectIssueDate converts date from the pattern of locale to the standard
// format before dispatching. Input that does not parse is sent unchanged.
func (d *Dispatcher) SelectIssueDate(ctx context.Context, date, locale string) error {
	converted := ConvertDate(date, d.catalog.DateFormat(locale), d.catalog.StandardDateFormat)
	return d.send(ctx, "selectIssueDate", flow.SelectIssueDate{Date: converted})
}

func (d *Dispatcher) SetSentinelProducts(ctx context.Context, products map[string]flow.SentinelProduct, userData *flow.SentinelUserData, fetchedFor string) error {
	return d.send(ctx, "setSentinelProducts", flow.SetSentinelProducts{
		Products:   products,
		UserData:   userData,
		FetchedFor: fetchedFor,
	})
}

func (d *Dispatcher) SetSentinelManualInput(ctx context.Context, manual bool) error {
	return d.send(ctx, "setSentinelManualInput", flow.SetSentinelManualInput{Manual: manual})
}

func (d *Dispatcher) SelectIssueCategory(ctx context.Context, category string, flags flow.IssueFlags) error {
	return d.send(ctx, "selectIssueCategory", flow.SelectIssueCategory{Category: category, Flags: flags})
}

func (d *Dispatcher) SpecifyProduct(ctx context.Context, details flow.ProductDetails) error {
	return d.send(ctx, "specifyProduct", flow.SpecifyProduct{Details: details})
}

// SpecifySentinelProduct reports the issue against a product picked from
// the device history.
func (d *Dispatcher) SpecifySentinelProduct(ctx context.Context, product flow.SentinelProduct) error {
	return d.send(ctx, "specifySentinelProduct", flow.SpecifyProduct{Details: ProductFromSentinel(product)})
}

func (d *Dispatcher) SubmitTSGInterview(ctx context.Context, answers []flow.TSGAnswer) error {
	return d.send(ctx, "submitTsgInterview", flow.SubmitTSGInterview{Answers: answers})
}

func (d *Dispatcher) SubmitUserInfo(ctx context.Context, info flow.UserInfo) error {
	return d.send(ctx, "submitUserInfo", flow.SubmitUserInfo{Info: info})
}

// ConfirmSubmission reports the submission outcome. An empty errMsg means
// the case was filed.
func (d *Dispatcher) ConfirmSubmission(ctx context.Context, errMsg string) error {
	return d.send(ctx, "confirmSubmission", flow.ConfirmSubmission{Error: errMsg})
}

func (d *Dispatcher) ExitSubmission(ctx context.Context) error {
	return d.send(ctx, "exitSubmission", flow.ExitSubmission{})
}

func (d *Dispatcher) GoBack(ctx context.Context) error {
	return d.send(ctx, "goBack", flow.GoBack{})
}

func (d *Dispatcher) ReturnToGuestStart(ctx context.Context) error {
	return d.send(ctx, "returnToGuestStart", flow.ReturnToGuestStart{})
}

func (d *Dispatcher) AbandonNavigateAway(ctx context.Context) error {
	return d.send(ctx, "abandonNavigateAway", flow.AbandonNavigateAway{})
}

func (d *Dispatcher) DebugOverrideState(ctx context.Context, s flow.State) error {
	return d.send(ctx, "debugOverrideState", flow.DebugOverrideState{State: s})
}

// Audit returns a copy of the audited intents, oldest first.
func (d *Dispatcher) Audit() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Entry(nil), d.audit...)
}

func (d *Dispatcher) send(ctx context.Context, intent string, a flow.Action) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := flow.WithLoggerFields(d.logger.WithContext(ctx), map[string]any{
		"intent": intent,
		"action": a.Type(),
	})
	if err := d.validator.ValidateMessage(a); err != nil {
		logger.Warn("intent refused: %v", err)
		return flow.NewRuntimeError(flow.ErrInvalidActionPayload, "", err, map[string]any{"intent": intent})
	}

	entry := Entry{
		ID:     uuid.NewString(),
		Intent: intent,
		Action: flow.ActionType(a.Type()),
		At:     d.clock().UTC(),
	}
	var err error
	if d.sink == nil {
		err = intake.WrapError(a.Type(), "no sink configured", nil)
	} else {
		err = intake.RecoverError("dispatcher."+intent, func() error {
			return d.sink.Dispatch(ctx, a)
		})
	}
	if err != nil {
		entry.Error = err.Error()
		logger.Error("intent failed: %v", err)
	} else {
		logger.Debug("intent dispatched id=%s", entry.ID)
	}

	d.record(entry)
	d.notify(entry)
	return err
}

func (d *Dispatcher) record(entry Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audit = append(d.audit, entry)
	if d.auditLimit > 0 && len(d.audit) > d.auditLimit {
		d.audit = append([]Entry(nil), d.audit[len(d.audit)-d.auditLimit:]...)
	}
}
