// Package server is the reference relationship service behind
// `linkscope serve`. It answers neighbor queries from a relations dataset
// and stores views in any views.Repository.
//
// Routes:
//
//	GET  /neighbors?node_id=<id>&limit=<n>
//	POST /views
//	GET  /views
//	GET  /views/{id}
//	GET  /healthz
//	GET  /metrics   (when a gatherer is configured)
//
// Errors are JSON objects {"error": "...", "code": "VALIDATION_ERROR"}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/expansion"
	"github.com/matzehuels/linkscope/pkg/graph"
	"github.com/matzehuels/linkscope/pkg/observability"
	"github.com/matzehuels/linkscope/pkg/views"
)

const (
	defaultLimit   = expansion.DefaultLimit
	maxRequestBody = 32 << 20
)

// Options configures a Server.
type Options struct {
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Logger receives request logs. Nil discards output.
	Logger *log.Logger
}

// Server serves neighbors and views over HTTP.
type Server struct {
	source   expansion.NeighborSource
	views    views.Repository
	gatherer prometheus.Gatherer
	logger   *log.Logger
	validate *validator.Validate
}

// New creates a server. repo may be nil, in which case the view routes
// answer 501.
func New(source expansion.NeighborSource, repo views.Repository, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		source:   source,
		views:    repo,
		gatherer: opts.Gatherer,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/neighbors", s.handleNeighbors)
	r.Route("/views", func(r chi.Router) {
		r.Post("/", s.handleCreateView)
		r.Get("/", s.handleListViews)
		r.Get("/{id}", s.handleGetView)
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nodeID := q.Get("node_id")
	if err := lserrors.ValidateNodeID(nodeID); err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, lserrors.New(lserrors.ErrCodeValidation, "limit must be an integer"))
			return
		}
		limit = n
	}
	if err := lserrors.ValidateLimit(limit); err != nil {
		s.writeError(w, r, err)
		return
	}

	triples, err := s.source.Neighbors(r.Context(), nodeID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if triples == nil {
		triples = []graph.RelationTriple{}
	}
	writeJSON(w, http.StatusOK, triples)
}

// createViewRequest is the POST /views body.
type createViewRequest struct {
	Name      string          `json:"name" validate:"required,max=200"`
	Nodes     []graph.Node    `json:"nodes"`
	Edges     []graph.Edge    `json:"edges"`
	Positions graph.Positions `json:"positions"`
}

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	if s.views == nil {
		s.writeError(w, r, lserrors.New(lserrors.ErrCodeUnsupported, "view storage is not configured"))
		return
	}
	var req createViewRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, lserrors.Wrap(lserrors.ErrCodeValidation, err, "invalid request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, lserrors.Wrap(lserrors.ErrCodeValidation, err, "invalid view"))
		return
	}
	if err := lserrors.ValidateViewName(req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec := views.Record{
		Name:      strings.TrimSpace(req.Name),
		Nodes:     req.Nodes,
		Edges:     req.Edges,
		Positions: req.Positions,
	}
	if rec.Positions == nil {
		rec.Positions = graph.Positions{}
	}
	if v := rec.Validate(); len(v) > 0 {
		s.writeError(w, r, lserrors.New(lserrors.ErrCodeMalformedData, "view is inconsistent: %s", v[0]))
		return
	}

	id, err := s.views.Create(r.Context(), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("view created", "id", id, "name", rec.Name, "nodes", len(rec.Nodes))
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	if s.views == nil {
		s.writeError(w, r, lserrors.New(lserrors.ErrCodeUnsupported, "view storage is not configured"))
		return
	}
	list, err := s.views.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	if s.views == nil {
		s.writeError(w, r, lserrors.New(lserrors.ErrCodeUnsupported, "view storage is not configured"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := lserrors.ValidateViewID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.views.Get(r.Context(), id)
	if errors.Is(err, views.ErrNotFound) {
		s.writeError(w, r, lserrors.Wrap(lserrors.ErrCodePersistenceConflict, err, "view %s does not exist", id))
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// =============================================================================
// Helpers
// =============================================================================

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusFor(code lserrors.Code) int {
	switch code {
	case lserrors.ErrCodeValidation:
		return http.StatusBadRequest
	case lserrors.ErrCodeMalformedData:
		return http.StatusUnprocessableEntity
	case lserrors.ErrCodePersistenceConflict:
		return http.StatusNotFound
	case lserrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case lserrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := lserrors.GetCode(err)
	if code == "" {
		code = lserrors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: lserrors.UserMessage(err), Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, "server", route, ww.Status(), elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"elapsed", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
