package cracklens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/internal/runtime"
	"github.com/aretw0/cracklens/pkg/adapters/process"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/memory"
	"github.com/aretw0/cracklens/pkg/objects"
	"github.com/aretw0/cracklens/pkg/plan"
	"github.com/aretw0/cracklens/pkg/ports"
	"github.com/aretw0/cracklens/pkg/registry"
	"github.com/aretw0/cracklens/pkg/tools"
)

// Engine is the high-level entry point of the library.
// It composes the tool registry, memory, the executor and the layer resolver.
type Engine struct {
	registry *registry.Registry
	memory   *memory.Controller
	objects  *objects.Store
	executor *runtime.Executor
	resolver *runtime.Resolver
	expander *plan.Expander

	planner   plan.Planner
	plans     ports.PlanLibrary
	processes *process.Runner
	deps      tools.Deps
	memOpts   []memory.Option
	layout    runtime.Layout
	scale     float64
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLayout sets the directories inputs and artifacts live in.
func WithLayout(layout runtime.Layout) Option {
	return func(e *Engine) {
		e.layout = layout
	}
}

// WithDefaultScale sets the pixel size (mm) assumed for subjects without one.
func WithDefaultScale(mm float64) Option {
	return func(e *Engine) {
		if mm > 0 {
			e.scale = mm
		}
	}
}

// WithAliases extends the metric synonyms of memory and the quantify tools.
func WithAliases(aliases map[string]string) Option {
	return func(e *Engine) {
		e.deps.Aliases = aliases
		e.memOpts = append(e.memOpts, memory.WithAliases(aliases))
	}
}

// WithLocker guards memory writes with a distributed lock.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.memOpts = append(e.memOpts, memory.WithLocker(locker))
	}
}

// WithSegmenter replaces the built-in threshold segmenter.
func WithSegmenter(s tools.Segmenter) Option {
	return func(e *Engine) {
		e.deps.Segmenter = s
	}
}

// WithGeometry replaces the built-in raster geometry.
func WithGeometry(g tools.Geometry) Option {
	return func(e *Engine) {
		e.deps.Geometry = g
	}
}

// WithKnowledgeBase enables the rag_answer tool.
func WithKnowledgeBase(r tools.Retriever, a tools.Answerer) Option {
	return func(e *Engine) {
		e.deps.Retriever = r
		e.deps.Answerer = a
	}
}

// WithPlanner sets the planner used by Ask. Defaults to plan.KeywordPlanner.
func WithPlanner(p plan.Planner) Option {
	return func(e *Engine) {
		if p != nil {
			e.planner = p
		}
	}
}

// WithPlanLibrary enables ExecutePlanID.
func WithPlanLibrary(lib ports.PlanLibrary) Option {
	return func(e *Engine) {
		e.plans = lib
	}
}

// WithProcesses wires external processes: collaborator roles replace the
// built-in implementations and every other process becomes a tool.
func WithProcesses(r *process.Runner) Option {
	return func(e *Engine) {
		e.processes = r
	}
}

// New initializes an Engine over the given record log, replaying it into memory.
func New(ctx context.Context, log ports.RecordLog, opts ...Option) (*Engine, error) {
	eng := &Engine{
		registry: registry.NewRegistry(),
		objects:  objects.NewStore(),
		planner:  plan.KeywordPlanner{},
		layout:   runtime.DefaultLayout(),
		scale:    domain.DefaultPixelSizeMM,
		logger:   logging.NewNop(),
		deps: tools.Deps{
			Segmenter: tools.ThresholdSegmenter{Threshold: tools.DefaultDarkThreshold},
			Geometry:  tools.RasterGeometry{},
		},
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.processes != nil {
		eng.applyProcesses()
	}

	memOpts := append([]memory.Option{memory.WithLogger(eng.logger)}, eng.memOpts...)
	mem, err := memory.NewController(ctx, log, memOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	eng.memory = mem

	eng.resolver = runtime.NewResolver(eng.registry,
		runtime.WithLayout(eng.layout),
		runtime.WithResolverScale(eng.scale),
		runtime.WithResolverLogger(eng.logger),
	)
	eng.executor = runtime.NewExecutor(eng.registry,
		runtime.WithObjectStore(eng.objects),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithInputDir(eng.layout.ImagesDir),
		runtime.WithDefaultScale(eng.scale),
		runtime.WithLogger(eng.logger),
	)
	eng.expander = plan.NewExpander(plan.WithLayout(eng.layout), plan.WithLogger(eng.logger))

	eng.deps.Memory = mem
	eng.deps.Resolver = eng.resolver
	eng.deps.Layout = eng.layout
	eng.deps.Logger = eng.logger
	if err := tools.RegisterAll(eng.registry, eng.deps); err != nil {
		eng.logger.Warn("Tool registration reported collisions", "err", err)
	}
	if eng.processes != nil {
		if err := process.RegisterTools(eng.registry, eng.processes); err != nil {
			eng.logger.Warn("Process tools replaced built-in tools", "err", err)
		}
	}
	return eng, nil
}

func (e *Engine) applyProcesses() {
	r := e.processes
	if r.Has(process.RoleSegmenter) {
		e.deps.Segmenter = process.Segmenter{Runner: r}
	}
	if r.Has(process.RoleGeometry) {
		e.deps.Geometry = process.Geometry{Runner: r}
	}
	if r.Has(process.RoleRetriever) {
		e.deps.Retriever = process.Retriever{Runner: r}
	}
	if r.Has(process.RoleAnswerer) {
		e.deps.Answerer = process.Answerer{Runner: r}
	}
	if r.Has(process.RolePlanner) {
		e.planner = process.Planner{Runner: r}
	}
}

// Execute runs steps in order with memory as cache and recorder.
// Plans are serialized; concurrent callers wait.
func (e *Engine) Execute(ctx context.Context, steps []domain.Step) []domain.StepResult {
	return e.executor.ExecutePlan(ctx, steps, e.memory)
}

// ExecutePlanID loads a saved plan from the plan library and runs it.
func (e *Engine) ExecutePlanID(ctx context.Context, id string) ([]domain.StepResult, error) {
	if e.plans == nil {
		return nil, fmt.Errorf("%w: %s (no plan library configured)", domain.ErrPlanNotFound, id)
	}
	p, err := e.plans.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, p.Steps), nil
}

// Answer is what Ask did for a request.
type Answer struct {
	Intents []plan.Intent       `json:"intents"`
	Steps   []domain.Step       `json:"steps"`
	Results []domain.StepResult `json:"results"`
	Reply   string              `json:"reply"`
}

// Ask plans a natural-language request, expands it over the input images and runs it.
// Steps answered during expansion come first in Results.
func (e *Engine) Ask(ctx context.Context, text string) (Answer, error) {
	intents, err := e.planner.Plan(ctx, text)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to plan request: %w", err)
	}
	exp, err := e.expander.Expand(ctx, text, intents)
	if err != nil {
		return Answer{}, err
	}

	results := append([]domain.StepResult{}, exp.Resolved...)
	results = append(results, e.Execute(ctx, exp.Steps)...)

	ans := Answer{Intents: intents, Steps: exp.Steps, Results: results}
	ans.Reply = e.reply(ctx, text, exp.Steps, results)
	return ans, nil
}

// reply prefers a knowledge-base answer, then an answerer summary, then a plain listing.
func (e *Engine) reply(ctx context.Context, text string, steps []domain.Step, results []domain.StepResult) string {
	for _, r := range results {
		if r.Tool == domain.ToolRAG && r.Status == domain.ResultSuccess {
			if answer, ok := r.Outputs["answer"].(string); ok && answer != "" {
				return answer
			}
		}
	}

	if e.deps.Answerer != nil && len(results) > 0 {
		stepsJSON, _ := json.Marshal(steps)
		resultsJSON, _ := json.Marshal(results)
		prompt := "You are an AI assistant focused on crack image analysis.\n" +
			"Summarize the task results using natural language.\n" +
			"Keep the reply short and mention image indices, operations and key results when possible.\n\n" +
			"User request: " + text + "\n" +
			"Plan: " + string(stepsJSON) + "\n" +
			"Results: " + string(resultsJSON) + "\n\n" +
			"Provide the answer only, no additional explanations or formatting."
		summary, err := e.deps.Answerer.Answer(ctx, prompt)
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			e.logger.WarnContext(ctx, "Summary generation failed", "err", err)
		}
	}
	return Summarize(results)
}

// Summarize lists one line per result.
func Summarize(results []domain.StepResult) string {
	if len(results) == 0 {
		return "Nothing to do."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteByte('\n')
		}
		subject := r.Subject
		if subject == "" {
			subject = "-"
		}
		fmt.Fprintf(&b, "[%s] %s %s: %s", r.Status, r.Tool, subject, r.Summary)
	}
	return b.String()
}

// Metrics returns the newest metrics of subject at scale (nil means any scale).
func (e *Engine) Metrics(subject string, scale *float64) map[string]any {
	return e.memory.MetricsFor(subject, scale)
}

// Layers resolves display layers of subject, regenerating missing overlays.
func (e *Engine) Layers(ctx context.Context, subject string, layers []string) map[string]string {
	return e.resolver.Resolve(ctx, subject, layers, e.memory)
}

// Snapshot summarizes memory.
func (e *Engine) Snapshot() memory.Snapshot {
	return e.memory.Snapshot()
}

// Reset clears memory and its log.
func (e *Engine) Reset(ctx context.Context) error {
	return e.memory.Reset(ctx)
}

// Tools describes the registered tools.
func (e *Engine) Tools() []domain.ToolInfo {
	return e.registry.Describe()
}

// Plans lists the saved plan IDs. It is empty without a plan library.
func (e *Engine) Plans(ctx context.Context) ([]string, error) {
	if e.plans == nil {
		return []string{}, nil
	}
	return e.plans.ListPlans(ctx)
}

// Memory returns the memory controller.
func (e *Engine) Memory() *memory.Controller {
	return e.memory
}

// Objects returns the lineage of the images processed by this engine.
func (e *Engine) Objects() *objects.Store {
	return e.objects
}

// Registry returns the tool registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Layout returns the directory layout.
func (e *Engine) Layout() runtime.Layout {
	return e.layout
}

// IsPlanNotFound reports whether err means a plan ID is unknown.
func IsPlanNotFound(err error) bool {
	return errors.Is(err, domain.ErrPlanNotFound)
}
