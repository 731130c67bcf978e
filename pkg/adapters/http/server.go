// Package http exposes a live scene over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/dgwatch"
	"github.com/aretw0/dgwatch/internal/presentation/graph"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/aretw0/dgwatch/pkg/ports"
	"github.com/aretw0/dgwatch/pkg/registry"
	"github.com/go-chi/chi/v5"
)

// Host is the graph the server edits. It must also be able to snapshot itself.
type Host interface {
	ports.Graph
	Snapshot(name string) *domain.Scene
	Selection() []domain.NodeRef
}

// Server serves one scene. All graph access goes through mu, which stands in for the
// host's single evaluation thread.
type Server struct {
	mu      sync.Mutex
	plugin  *dgwatch.Plugin
	host    Host
	name    string
	persist func(ctx context.Context, scene *domain.Scene) error
	metrics http.Handler
	logger  *slog.Logger

	Streams *StreamManager
}

// Option configures a Server.
type Option func(*Server)

// WithSceneName sets the name used for snapshots.
func WithSceneName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// WithPersist saves the scene after every successful mutation.
func WithPersist(fn func(ctx context.Context, scene *domain.Scene) error) Option {
	return func(s *Server) {
		s.persist = fn
	}
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams shares a stream manager whose Hooks were given to the plugin.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for a loaded plugin and its host graph.
func NewServer(plugin *dgwatch.Plugin, host Host, opts ...Option) *Server {
	s := &Server{
		plugin: plugin,
		host:   host,
		name:   "default",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/nodes", s.ListNodes)
	r.Get("/nodes/{name}", s.GetNode)
	r.Put("/nodes/{name}/attributes/{attr}", s.SetAttribute)
	r.Post("/apply", s.Apply)
	r.Post("/undo", s.Undo)
	r.Post("/redo", s.Redo)
	r.Get("/subscriptions", s.ListSubscriptions)
	r.Get("/graph", s.GetGraph)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NodeSummary is an entry of GET /nodes.
type NodeSummary struct {
	Name string          `json:"name"`
	Type domain.NodeType `json:"type"`
}

// SetAttributeRequest is the body of PUT /nodes/{name}/attributes/{attr}.
type SetAttributeRequest struct {
	Value any `json:"value"`
}

// ApplyRequest is the body of POST /apply. An empty node uses the scene selection.
type ApplyRequest struct {
	Node string `json:"node,omitempty"`
}

// ApplyResponse describes a successful install.
type ApplyResponse struct {
	Target string   `json:"target"`
	Node   string   `json:"node"`
	Steps  []string `json:"steps"`
}

// SubscriptionView is an entry of GET /subscriptions.
type SubscriptionView struct {
	Handle string                  `json:"handle"`
	Target string                  `json:"target"`
	Kind   domain.SubscriptionKind `json:"kind"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": strings.TrimSpace(dgwatch.Version)})
}

// ListNodes handles the GET /nodes request.
func (s *Server) ListNodes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	scene := s.host.Snapshot(s.name)
	s.mu.Unlock()

	out := make([]NodeSummary, 0, len(scene.Nodes))
	for _, n := range scene.Nodes {
		out = append(out, NodeSummary{Name: n.Name, Type: n.Type})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetNode handles the GET /nodes/{name} request.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	scene := s.host.Snapshot(s.name)
	s.mu.Unlock()

	node, ok := scene.Node(chi.URLParam(r, "name"))
	if !ok {
		s.fail(w, fmt.Errorf("%w: node %s", domain.ErrNotFound, chi.URLParam(r, "name")))
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// SetAttribute handles the PUT /nodes/{name}/attributes/{attr} request.
// Reactions run before the response, so the returned node reflects them.
func (s *Server) SetAttribute(w http.ResponseWriter, r *http.Request) {
	var body SetAttributeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SetAttribute: invalid request body", "error", err)
		return
	}
	name, attr := chi.URLParam(r, "name"), chi.URLParam(r, "attr")

	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.host.Lookup(name)
	if err != nil {
		s.fail(w, err)
		return
	}
	plug := domain.PlugOf(ref, attr)
	switch v := body.Value.(type) {
	case bool:
		err = s.host.SetBool(plug, v)
	default:
		f, ok := domain.AsFloat(v)
		if !ok {
			http.Error(w, fmt.Sprintf("value must be a number or a boolean, got %T", v), http.StatusBadRequest)
			return
		}
		err = s.host.SetDouble(plug, f)
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	scene, err := s.save(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	node, _ := scene.Node(name)
	writeJSON(w, http.StatusOK, node)
}

// Apply handles the POST /apply request.
func (s *Server) Apply(w http.ResponseWriter, r *http.Request) {
	var body ApplyRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	selection := s.host.Selection()
	if body.Node != "" {
		ref, err := s.host.Lookup(body.Node)
		if err != nil {
			s.fail(w, err)
			return
		}
		selection = []domain.NodeRef{ref}
	}

	res, err := s.plugin.Apply(dgwatch.Args{Selection: selection})
	if err != nil {
		s.fail(w, err)
		return
	}
	if _, err := s.save(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ApplyResponse{Target: res.Target.Name, Node: res.Node.Name, Steps: res.Steps})
}

// Undo handles the POST /undo request.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.plugin.Undo(); err != nil {
		s.fail(w, err)
		return
	}
	if _, err := s.save(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Redo handles the POST /redo request.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.plugin.Redo()
	if err != nil {
		s.fail(w, err)
		return
	}
	if _, err := s.save(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplyResponse{Target: res.Target.Name, Node: res.Node.Name, Steps: res.Steps})
}

// ListSubscriptions handles the GET /subscriptions request.
func (s *Server) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	subs := s.plugin.Registry().Subscriptions()
	s.mu.Unlock()

	out := make([]SubscriptionView, 0, len(subs))
	for _, sub := range subs {
		out = append(out, SubscriptionView{Handle: string(sub.Handle), Target: sub.Target.Name, Kind: sub.Kind})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetGraph handles the GET /graph request with a Mermaid diagram.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	scene := s.host.Snapshot(s.name)
	overlay := Overlay(scene, s.plugin.Registry().Subscriptions())
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(scene, overlay))
}

// Overlay marks watched targets and the selection.
func Overlay(scene *domain.Scene, subs []registry.Subscription) *graph.Overlay {
	overlay := &graph.Overlay{Selected: scene.Selection}
	for _, sub := range subs {
		if sub.Kind == domain.ValueWatch {
			overlay.Watched = append(overlay.Watched, sub.Target.Name)
		}
	}
	return overlay
}

// SubscribeEvents handles the GET /events request (SSE).
// The optional "topics" query parameter is a comma separated topic filter.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	topics := []string{TopicSubscription, TopicReaction, TopicWatcher}
	if q := r.URL.Query().Get("topics"); q != "" {
		topics = nil
		for _, t := range strings.Split(q, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(topics...)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// save snapshots the graph and persists it. Callers hold mu.
func (s *Server) save(ctx context.Context) (*domain.Scene, error) {
	scene := s.host.Snapshot(s.name)
	if s.persist != nil {
		if err := s.persist(ctx, scene); err != nil {
			return nil, fmt.Errorf("failed to persist scene: %w", err)
		}
	}
	return scene, nil
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSceneNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyInstalled):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSelection), errors.Is(err, domain.ErrInvalidNode),
		errors.Is(err, domain.ErrTypeMismatch), errors.Is(err, domain.ErrUnknownNodeType):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
