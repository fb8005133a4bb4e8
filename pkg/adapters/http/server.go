// Package http exposes the engine as a JSON API over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/cracklens"
	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/memory"
	"github.com/aretw0/cracklens/pkg/plan"
	"github.com/go-chi/chi/v5"
)

// maxBodySize bounds plan request bodies.
const maxBodySize = 1 << 20

// Engine defines what the HTTP server needs from the cracklens core.
type Engine interface {
	Execute(ctx context.Context, steps []domain.Step) []domain.StepResult
	ExecutePlanID(ctx context.Context, id string) ([]domain.StepResult, error)
	Plans(ctx context.Context) ([]string, error)
	Metrics(subject string, scale *float64) map[string]any
	Layers(ctx context.Context, subject string, layers []string) map[string]string
	Snapshot() memory.Snapshot
	Reset(ctx context.Context) error
	Tools() []domain.ToolInfo
}

// PlanRequest is the body of POST /plans: either a saved plan ID or inline steps.
type PlanRequest struct {
	ID    string        `json:"id,omitempty"`
	Steps []domain.Step `json:"steps,omitempty"`
}

// PlanResponse carries one result per executed step.
type PlanResponse struct {
	Results []domain.StepResult `json:"results"`
}

// Server serves the API.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a stream manager whose hooks were given to the engine.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.Streams = sm
		}
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	server := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/healthz", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/tools", server.ListTools)
	r.Route("/plans", func(r chi.Router) {
		r.Get("/", server.ListPlans)
		r.Post("/", server.ExecutePlan)
	})
	r.Route("/subjects/{subject}", func(r chi.Router) {
		r.Get("/metrics", server.GetMetrics)
		r.Get("/layers", server.GetLayers)
	})
	r.Get("/memory/snapshot", server.GetSnapshot)
	r.Delete("/memory", server.ResetMemory)
	r.Get("/events", server.SubscribeEvents)
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExecutePlan handles the POST /plans request.
func (s *Server) ExecutePlan(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var req PlanRequest
	if err := json.Unmarshal(data, &req); err == nil && req.ID != "" && len(req.Steps) == 0 {
		results, err := s.Engine.ExecutePlanID(r.Context(), req.ID)
		if err != nil {
			if errors.Is(err, domain.ErrPlanNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, fmt.Sprintf("Plan error: %v", err), http.StatusInternalServerError)
			s.logger.Error("Plan execution failed", "plan_id", req.ID, "err", err)
			return
		}
		s.writeJSON(w, PlanResponse{Results: results})
		return
	}

	p, err := plan.ParsePlan(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid plan: %v", err), http.StatusBadRequest)
		s.logger.Warn("ExecutePlan: Invalid plan", "err", err)
		return
	}
	s.writeJSON(w, PlanResponse{Results: s.Engine.Execute(r.Context(), p.Steps)})
}

// ListPlans handles the GET /plans request.
func (s *Server) ListPlans(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Plans(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("ListPlans failed", "err", err)
		return
	}
	s.writeJSON(w, map[string]any{"plans": ids})
}

// GetMetrics handles the GET /subjects/{subject}/metrics request.
// An optional ?scale= restricts the lookup to one pixel size.
func (s *Server) GetMetrics(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	var scale *float64
	if raw := r.URL.Query().Get("scale"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "Invalid scale", http.StatusBadRequest)
			return
		}
		scale = domain.Scale(v)
	}

	metrics := s.Engine.Metrics(subject, scale)
	if len(metrics) == 0 {
		http.Error(w, fmt.Sprintf("No metrics for %s", subject), http.StatusNotFound)
		return
	}
	s.writeJSON(w, map[string]any{"subject": subject, "metrics": metrics})
}

// GetLayers handles the GET /subjects/{subject}/layers request. Layers are given as
// repeated or comma separated ?layer= values; none means "all".
func (s *Server) GetLayers(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	var layers []string
	for _, v := range r.URL.Query()["layer"] {
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				layers = append(layers, l)
			}
		}
	}
	if len(layers) == 0 {
		layers = []string{domain.LayerAll}
	}

	resolved := s.Engine.Layers(r.Context(), subject, layers)
	s.writeJSON(w, map[string]any{"subject": subject, "layers": resolved})
}

// GetSnapshot handles the GET /memory/snapshot request.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Engine.Snapshot())
}

// ResetMemory handles the DELETE /memory request.
func (s *Server) ResetMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Reset(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("Reset error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Memory reset failed", "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTools handles the GET /tools request.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{"tools": s.Engine.Tools()})
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"app":     "cracklens-http",
		"version": strings.TrimSpace(cracklens.Version),
	})
}

// SubscribeEvents handles the GET /events request (SSE). Every finished step is
// sent as a JSON step event.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected")
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

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
