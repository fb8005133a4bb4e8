// Package mcp exposes the engine as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/cracklens"
	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/memory"
	"github.com/aretw0/cracklens/pkg/plan"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// SnapshotURI is the resource holding the memory snapshot.
const SnapshotURI = "cracklens://memory/snapshot"

// Engine defines what the MCP server needs from the cracklens core.
type Engine interface {
	Execute(ctx context.Context, steps []domain.Step) []domain.StepResult
	ExecutePlanID(ctx context.Context, id string) ([]domain.StepResult, error)
	Ask(ctx context.Context, text string) (cracklens.Answer, error)
	Metrics(subject string, scale *float64) map[string]any
	Layers(ctx context.Context, subject string, layers []string) map[string]string
	Snapshot() memory.Snapshot
	Tools() []domain.ToolInfo
}

// PlanArgs are the arguments of execute_plan.
type PlanArgs struct {
	Plan   string `json:"plan,omitempty"`
	PlanID string `json:"plan_id,omitempty"`
}

// PlanResult is the output of execute_plan and ask.
type PlanResult struct {
	Results []domain.StepResult `json:"results" jsonschema_description:"One result per executed step"`
	Reply   string              `json:"reply,omitempty" jsonschema_description:"Natural-language summary"`
}

// MetricsArgs are the arguments of get_metrics.
type MetricsArgs struct {
	Subject string   `json:"subject"`
	Scale   *float64 `json:"pixel_size_mm,omitempty"`
}

// MetricsResult is the output of get_metrics.
type MetricsResult struct {
	Subject string         `json:"subject"`
	Metrics map[string]any `json:"metrics" jsonschema_description:"Newest metrics, keyed by label"`
}

// LayersArgs are the arguments of resolve_layers.
type LayersArgs struct {
	Subject string `json:"subject"`
	Layers  string `json:"layers,omitempty"`
}

// LayersResult is the output of resolve_layers.
type LayersResult struct {
	Subject string            `json:"subject"`
	Layers  map[string]string `json:"layers" jsonschema_description:"Image path per resolved layer"`
}

// AskArgs are the arguments of ask.
type AskArgs struct {
	Text string `json:"text"`
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("cracklens-mcp", strings.TrimSpace(cracklens.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("execute_plan",
		mcp.WithDescription("Run a plan of crack analysis steps. Pass either an inline plan (JSON or YAML list of {tool, args}) or the ID of a saved plan."),
		mcp.WithString("plan", mcp.Description("Inline plan document")),
		mcp.WithString("plan_id", mcp.Description("ID of a saved plan")),
		mcp.WithOutputSchema[PlanResult](),
	), mcp.NewStructuredToolHandler(s.handleExecutePlan))

	s.mcpServer.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Handle a natural-language request such as 'segment and quantify image 2'."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The request")),
		mcp.WithOutputSchema[PlanResult](),
	), mcp.NewStructuredToolHandler(s.handleAsk))

	s.mcpServer.AddTool(mcp.NewTool("get_metrics",
		mcp.WithDescription("Get the newest remembered metrics of a subject (image name without extension)."),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject name, e.g. img01")),
		mcp.WithNumber("pixel_size_mm", mcp.Description("Only return metrics computed at this pixel size")),
		mcp.WithOutputSchema[MetricsResult](),
	), mcp.NewStructuredToolHandler(s.handleGetMetrics))

	s.mcpServer.AddTool(mcp.NewTool("resolve_layers",
		mcp.WithDescription("Find image files for display layers of a subject, regenerating missing overlays."),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject name, e.g. img01")),
		mcp.WithString("layers", mcp.Description("Comma separated layers: original, ground_truth, mask, skeleton, max_width, normals or all")),
		mcp.WithOutputSchema[LayersResult](),
	), mcp.NewStructuredToolHandler(s.handleResolveLayers))

	s.mcpServer.AddTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List the tools plan steps can use."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.engine.Tools())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleExecutePlan(ctx context.Context, request mcp.CallToolRequest, args PlanArgs) (PlanResult, error) {
	if strings.TrimSpace(args.Plan) != "" {
		p, err := plan.ParsePlan([]byte(args.Plan))
		if err != nil {
			return PlanResult{}, fmt.Errorf("invalid plan: %w", err)
		}
		results := s.engine.Execute(ctx, p.Steps)
		return PlanResult{Results: results, Reply: cracklens.Summarize(results)}, nil
	}
	if args.PlanID != "" {
		results, err := s.engine.ExecutePlanID(ctx, args.PlanID)
		if err != nil {
			return PlanResult{}, err
		}
		return PlanResult{Results: results, Reply: cracklens.Summarize(results)}, nil
	}
	return PlanResult{}, fmt.Errorf("either plan or plan_id is required")
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args AskArgs) (PlanResult, error) {
	if strings.TrimSpace(args.Text) == "" {
		return PlanResult{}, fmt.Errorf("text is required")
	}
	ans, err := s.engine.Ask(ctx, args.Text)
	if err != nil {
		s.logger.Error("MCP Ask failed", "err", err)
		return PlanResult{}, err
	}
	return PlanResult{Results: ans.Results, Reply: ans.Reply}, nil
}

func (s *Server) handleGetMetrics(ctx context.Context, request mcp.CallToolRequest, args MetricsArgs) (MetricsResult, error) {
	if args.Subject == "" {
		return MetricsResult{}, fmt.Errorf("subject is required")
	}
	metrics := s.engine.Metrics(args.Subject, args.Scale)
	if metrics == nil {
		metrics = map[string]any{}
	}
	return MetricsResult{Subject: args.Subject, Metrics: metrics}, nil
}

func (s *Server) handleResolveLayers(ctx context.Context, request mcp.CallToolRequest, args LayersArgs) (LayersResult, error) {
	if args.Subject == "" {
		return LayersResult{}, fmt.Errorf("subject is required")
	}
	var layers []string
	for _, l := range strings.Split(args.Layers, ",") {
		if l = strings.TrimSpace(l); l != "" {
			layers = append(layers, l)
		}
	}
	if len(layers) == 0 {
		layers = []string{domain.LayerAll}
	}
	return LayersResult{Subject: args.Subject, Layers: s.engine.Layers(ctx, args.Subject, layers)}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SnapshotURI, "Memory Snapshot",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Snapshot())
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SnapshotURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
