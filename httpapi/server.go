package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-intake/dispatcher"
	"github.com/goliatone/go-intake/flow"
	"github.com/goliatone/go-intake/session"
)

// Sessions is the session host surface the API drives.
type Sessions interface {
	Start(ctx context.Context, mode flow.Mode, profile *flow.Profile) (*session.Record, error)
	Get(ctx context.Context, id string) (*session.Record, error)
	Dispatch(ctx context.Context, id string, a flow.Action) (*session.Record, error)
	Delete(ctx context.Context, id string) error
}

type Option func(*Server)

// WithDebug allows DEBUG_OVERRIDE_STATE through the actions route.
func WithDebug(enabled bool) Option {
	return func(s *Server) {
		s.debug = enabled
	}
}

func WithLogger(logger flow.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithCatalog sets the catalog used for locale date conversion.
func WithCatalog(c *flow.Catalog) Option {
	return func(s *Server) {
		if c != nil {
			s.catalog = c
		}
	}
}

// Server is the HTTP surface of the intake wizard.
type Server struct {
	sessions Sessions
	logger   flow.Logger
	metrics  *Metrics
	catalog  *flow.Catalog
	debug    bool
}

// NewHandler builds the router for sessions.
func NewHandler(sessions Sessions, opts ...Option) http.Handler {
	return NewServer(sessions, opts...).Routes()
}

func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		logger:   flow.NewFmtLogger(io.Discard),
		catalog:  flow.DefaultCatalog(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Routes returns the chi router serving every endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/actions", s.postAction)
			r.Post("/intents/issue-date", s.postIssueDate)
		})
	})
	return r
}

type createSessionRequest struct {
	Mode    string        `json:"mode"`
	Profile *flow.Profile `json:"profile,omitempty"`
}

type issueDateRequest struct {
	Date   string `json:"date"`
	Locale string `json:"locale"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	mode, err := flow.ParseMode(body.Mode)
	if err != nil {
		s.writeError(w, r, flow.NewRuntimeError(flow.ErrInvalidActionPayload, err.Error(), err, nil))
		return
	}
	rec, err := s.sessions.Start(r.Context(), mode, body.Profile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRecord(w, http.StatusCreated, rec)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRecord(w, http.StatusOK, rec)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postAction(w http.ResponseWriter, r *http.Request) {
	var env flow.Envelope
	if err := decodeBody(r, &env); err != nil {
		s.writeError(w, r, err)
		return
	}
	action, err := flow.DecodeEnvelope(env)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if action.Type() == string(flow.ActionDebugOverrideState) && !s.debug {
		s.writeError(w, r, flow.NewRuntimeError(ErrDebugDisabled, "", nil, nil))
		return
	}
	rec, err := s.sessions.Dispatch(r.Context(), chi.URLParam(r, "id"), action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRecord(w, http.StatusOK, rec)
}

// postIssueDate goes through the dispatcher so the locale pattern of the
// date is converted before it reaches the machine.
func (s *Server) postIssueDate(w http.ResponseWriter, r *http.Request) {
	var body issueDateRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	var rec *session.Record
	d := dispatcher.New(dispatcher.SinkFunc(func(ctx context.Context, a flow.Action) error {
		next, err := s.sessions.Dispatch(ctx, id, a)
		rec = next
		return err
	}), dispatcher.WithCatalog(s.catalog), dispatcher.WithLogger(s.logger))

	if err := d.SelectIssueDate(r.Context(), body.Date, body.Locale); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRecord(w, http.StatusOK, rec)
}

func (s *Server) writeRecord(w http.ResponseWriter, status int, rec *session.Record) {
	if err := writeJSON(w, status, rec); err != nil {
		s.logger.Error("session response encode failed: %v", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request method=%s path=%s status=%d duration=%s request_id=%s",
			r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}

func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		return flow.NewRuntimeError(ErrBadRequest, "", err, nil)
	}
	return nil
}
