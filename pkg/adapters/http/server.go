package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/persona/internal/input"
	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/internal/presentation/graph"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the engagement API served over HTTP.
type Engine interface {
	ports.Interactor
	InteractDiff(ctx context.Context, engagementID, input string) (domain.AgentResponse, *domain.SnapshotDiff, error)
	Role(ctx context.Context, id string) (*domain.Role, error)
}

// Server implements ServerInterface
type Server struct {
	Engine  Engine
	Streams *StreamManager
	logger  *slog.Logger
}

var _ ServerInterface = (*Server)(nil)

// Option configures the handler.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics exposes gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(o *options) { o.gatherer = g }
}

// CreateEngagementRequest is the body of POST /engagements.
type CreateEngagementRequest = ports.CreateRequest

// InteractRequest is the body of POST /engagements/{id}/interact.
type InteractRequest struct {
	Input string `json:"input"`
}

// InteractResponse carries the turn result and the changes it made.
type InteractResponse struct {
	Response domain.AgentResponse `json:"response"`
	Diff     *domain.SnapshotDiff `json:"diff"`
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	o := &options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	router, err := newRouter(doc)
	if err != nil {
		return nil, err
	}

	server := &Server{
		Engine:  engine,
		Streams: NewStreamManager(o.logger),
		logger:  o.logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, doc)
	})
	if o.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(requestValidator(router, server.validationError))
		HandlerFromMux(server, r, server.validationError)
	})
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListEngagements handles the GET /engagements request.
func (s *Server) ListEngagements(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Engagements(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"engagements": ids})
}

// CreateEngagement handles the POST /engagements request.
func (s *Server) CreateEngagement(w http.ResponseWriter, r *http.Request) {
	var body CreateEngagementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.validationError(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}
	id, err := s.Engine.CreateEngagement(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("engagement created", "engagement_id", id, "role", body.Role, "agent", body.Agent)
	writeJSON(w, http.StatusCreated, map[string]string{"engagement_id": id})
}

// GetEngagement handles the GET /engagements/{id} request.
func (s *Server) GetEngagement(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := s.Engine.Inspect(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteEngagement handles the DELETE /engagements/{id} request.
func (s *Server) DeleteEngagement(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.Engine.DeleteEngagement(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.Streams.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// Interact handles the POST /engagements/{id}/interact request.
func (s *Server) Interact(w http.ResponseWriter, r *http.Request, id string) {
	var body InteractRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.validationError(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}
	text, err := input.Sanitize(body.Input)
	if err != nil {
		s.logger.Warn("input rejected", "engagement_id", id, "err", err, "size", len(body.Input))
		s.validationError(w, r, err)
		return
	}

	resp, diff, err := s.Engine.InteractDiff(r.Context(), id, text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if diff != nil {
		if payload, err := json.Marshal(diff); err == nil {
			s.Streams.Broadcast(id, string(payload))
		}
	}
	writeJSON(w, http.StatusOK, InteractResponse{Response: resp, Diff: diff})
}

// GetRoleGraph handles the GET /roles/{id}/graph request.
func (s *Server) GetRoleGraph(w http.ResponseWriter, r *http.Request, id string, params GetRoleGraphParams) {
	role, err := s.Engine.Role(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var overlay *graph.GraphOverlay
	if params.Engagement != nil && *params.Engagement != "" {
		snap, err := s.Engine.Inspect(r.Context(), *params.Engagement)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		overlay = graph.OverlayFromSnapshot(snap)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(graph.GenerateMermaid(role, overlay)))
}

// SubscribeEvents handles the GET /engagements/{id}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, id string, params SubscribeEventsParams) {
	if _, err := s.Engine.Inspect(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, r, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()
	s.logger.Info("SSE: subscribed", "engagement_id", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var watch []string
	if params.Watch != nil {
		watch = strings.Split(*params.Watch, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "engagement_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !wanted(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// wanted reports whether a diff touches one of the watched fields.
func wanted(msg string, watch []string) bool {
	if len(watch) == 0 {
		return true
	}
	var diff domain.SnapshotDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watch {
		switch strings.TrimSpace(field) {
		case "state":
			if diff.CurrentState != nil || len(diff.Statuses) > 0 {
				return true
			}
		case "history":
			if diff.History != nil {
				return true
			}
		case "status":
			if diff.Terminated != nil {
				return true
			}
		}
	}
	return false
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // engagement id -> channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(id string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[id]; !ok {
		sm.subscribers[id] = make(map[chan string]struct{})
	}
	sm.subscribers[id][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[id]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, id)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(id string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[id] {
		select {
		case ch <- msg:
		default:
			// slow client
			sm.logger.Warn("SSE: client buffer full, dropping message", "engagement_id", id)
		}
	}
}

// Close ends every stream of an engagement.
func (sm *StreamManager) Close(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for ch := range sm.subscribers[id] {
		close(ch)
	}
	delete(sm.subscribers, id)
}

// -- Helpers --

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) validationError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Reason != "" {
		err = errors.New(reqErr.Reason)
	}
	s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEngagementNotFound), errors.Is(err, domain.ErrTemplateNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
