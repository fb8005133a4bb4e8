package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/objects"
	"github.com/aretw0/cracklens/pkg/registry"
	"github.com/google/uuid"
)

// MemoryHook receives the result of every executed step.
type MemoryHook interface {
	HandleResult(ctx context.Context, step domain.Step, result domain.ToolResult) error
}

// Cache answers a step without invoking its tool. A MemoryHook that also
// implements Cache is consulted before dispatch.
type Cache interface {
	Lookup(step domain.Step) (domain.ToolResult, bool)
}

// ConfigSource provides the known pixel scale of a subject.
type ConfigSource interface {
	ConfigFor(subject string) (float64, bool)
}

// Executor runs plans step by step against a tool registry.
//
// A failing step never aborts the plan: unregistered tools, tool errors and panics
// all become error results for that step only. Plans are serialized.
type Executor struct {
	registry *registry.Registry
	objects  *objects.Store
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	inputDir string
	scale    float64

	mu sync.Mutex
}

// NewExecutor creates an executor dispatching to reg.
func NewExecutor(reg *registry.Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: reg,
		objects:  objects.NewStore(),
		logger:   logging.NewNop(),
		scale:    domain.DefaultPixelSizeMM,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Objects returns the object store updated by executed steps.
func (e *Executor) Objects() *objects.Store {
	return e.objects
}

// Registry returns the tool registry.
func (e *Executor) Registry() *registry.Registry {
	return e.registry
}

// ExecutePlan runs steps in order and returns one result per step.
// hook may be nil.
func (e *Executor) ExecutePlan(ctx context.Context, steps []domain.Step, hook MemoryHook) []domain.StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	logger.InfoContext(ctx, "Plan started", "steps", len(steps))
	e.emitPlanStart(ctx, runID, len(steps))

	results := make([]domain.StepResult, 0, len(steps))
	failures := 0
	for i, step := range steps {
		e.emitStepStart(ctx, runID, i, step)

		start := time.Now()
		res := e.executeStep(ctx, logger, step, hook)
		res.Duration = time.Since(start)
		if res.Status == domain.ResultError {
			failures++
		}
		results = append(results, res)

		e.emitStepEnd(ctx, runID, i, res)
	}

	logger.InfoContext(ctx, "Plan finished", "steps", len(steps), "failures", failures)
	e.emitPlanEnd(ctx, runID, len(steps), failures)
	return results
}

func (e *Executor) executeStep(ctx context.Context, logger *slog.Logger, step domain.Step, hook MemoryHook) domain.StepResult {
	args := step.CloneArgs()
	subject := domain.SubjectOf(step)
	logger = logger.With("tool", step.Tool, "subject", subject)

	res := domain.StepResult{
		Tool:           step.Tool,
		Subject:        subject,
		Action:         step.Tag(),
		Args:           args,
		Outputs:        map[string]any{},
		Visualizations: map[string]string{},
	}

	fn, ok := e.registry.Lookup(step.Tool)
	if !ok {
		logger.WarnContext(ctx, "Tool not registered")
		res.Status = domain.ResultError
		res.Summary = fmt.Sprintf("tool not registered: %s", step.Tool)
		res.Error = fmt.Errorf("%w: %s", domain.ErrToolNotRegistered, step.Tool).Error()
		return res
	}

	e.prepareArgs(step.Tool, subject, args, hook)
	patched := step
	patched.Args = args

	if cache, ok := hook.(Cache); ok {
		if cached, hit := cache.Lookup(patched); hit {
			logger.InfoContext(ctx, "Step answered from memory")
			e.trackObjects(logger, step.Tool, args, cached)
			mergeResult(&res, cached)
			res.Status = domain.ResultCached
			return res
		}
	}

	out, err := invoke(ctx, fn, args)
	if err == nil {
		err = out.Validate()
	}
	if err != nil {
		attrs := []any{"err", err}
		var p *PanicError
		if errors.As(err, &p) {
			attrs = append(attrs, "stack", string(p.Stack))
		}
		logger.ErrorContext(ctx, "Tool failed", attrs...)
		res.Status = domain.ResultError
		res.Summary = fmt.Sprintf("%s failed", step.Tool)
		res.Error = err.Error()
		return res
	}

	mergeResult(&res, out)
	if out.Status == domain.ResultError {
		logger.WarnContext(ctx, "Tool reported an error", "summary", out.Summary, "err", out.Error)
		return res
	}

	e.trackObjects(logger, step.Tool, args, out)

	if hook != nil {
		if err := hook.HandleResult(ctx, patched, out); err != nil {
			logger.ErrorContext(ctx, "Failed to record step result", "err", err)
			res.Error = err.Error()
		}
	}
	return res
}

// prepareArgs patches arguments in place before dispatch: empty visual lists are
// dropped, bare file names are resolved against the input directory and the pixel
// scale of geometry steps is filled from memory or the default.
func (e *Executor) prepareArgs(tool, subject string, args map[string]any, hook MemoryHook) {
	if visuals, present := domain.StringsArg(args, domain.ArgVisuals); present && len(visuals) == 0 {
		delete(args, domain.ArgVisuals)
	}

	e.resolvePaths(args)

	if tool != domain.ToolQuantify && tool != domain.ToolGenerate {
		return
	}
	if _, ok := domain.FloatArg(args, domain.ArgPixelSize); ok {
		return
	}
	scale := e.scale
	if src, ok := hook.(ConfigSource); ok && subject != "" {
		if v, found := src.ConfigFor(subject); found {
			scale = v
		}
	}
	args[domain.ArgPixelSize] = scale
}

// resolvePaths rewrites path arguments that name a missing file in the working
// directory but an existing one in the input directory.
func (e *Executor) resolvePaths(args map[string]any) {
	if e.inputDir == "" {
		return
	}
	for k, v := range args {
		if !strings.Contains(k, "path") {
			continue
		}
		p, ok := v.(string)
		if !ok || p == "" || filepath.IsAbs(p) || filepath.Base(p) != p {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			continue
		}
		candidate := filepath.Join(e.inputDir, p)
		if _, err := os.Stat(candidate); err == nil {
			args[k] = candidate
		}
	}
}

// trackObjects records produced artifacts against the originating image.
func (e *Executor) trackObjects(logger *slog.Logger, tool string, args map[string]any, out domain.ToolResult) {
	switch tool {
	case domain.ToolSegment:
		mask, _ := out.Outputs[domain.KeyMaskPath].(string)
		if mask == "" {
			return
		}
		id := e.objectFor(args)
		if id == "" {
			return
		}
		e.updateObject(logger, id, domain.FieldSegmentationPath, mask)
		e.addStatus(logger, id, domain.StatusSegmented)

	case domain.ToolQuantify, domain.ToolGenerate:
		id := e.objectFor(args)
		if id == "" {
			return
		}
		e.addStatus(logger, id, domain.StatusQuantified)
		if p := out.Visualizations[domain.OverlayKey(domain.LayerMaxWidth)]; p != "" {
			e.updateObject(logger, id, domain.FieldVisualizationPath, p)
		}
		if p := out.Visualizations[domain.OverlayKey(domain.LayerSkeleton)]; p != "" {
			e.updateObject(logger, id, domain.FieldSkeletonPath, p)
		}
	}
}

// objectFor finds the object of a step by image path, then by mask path. An image
// path that is not yet tracked is registered.
func (e *Executor) objectFor(args map[string]any) string {
	if img := domain.StringArg(args, domain.ArgImagePath); img != "" {
		if id, ok := e.objects.FindByImagePath(img); ok {
			return id
		}
		return e.objects.RegisterImage(img)
	}
	if mask := domain.StringArg(args, domain.ArgMaskPath); mask != "" {
		if id, ok := e.objects.FindByMaskPath(mask); ok {
			return id
		}
		if id, ok := e.objects.FindBySubject(domain.Stem(mask)); ok {
			return id
		}
	}
	return ""
}

func (e *Executor) updateObject(logger *slog.Logger, id, field, value string) {
	if err := e.objects.Update(id, field, value); err != nil {
		logger.Warn("Failed to update object", "object_id", id, "field", field, "err", err)
	}
}

func (e *Executor) addStatus(logger *slog.Logger, id, status string) {
	if err := e.objects.AddStatus(id, status); err != nil {
		logger.Warn("Failed to tag object", "object_id", id, "status", status, "err", err)
	}
}

// invoke calls the tool, turning a panic into an error.
func invoke(ctx context.Context, fn registry.ToolFunc, args map[string]any) (res domain.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, args)
}

// PanicError wraps a panic raised by a tool.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("tool panicked: %v", e.Value)
}

func mergeResult(dst *domain.StepResult, src domain.ToolResult) {
	dst.Status = src.Status
	dst.Summary = src.Summary
	dst.Error = src.Error
	for k, v := range src.Outputs {
		dst.Outputs[k] = v
	}
	for k, v := range src.Visualizations {
		dst.Visualizations[k] = v
	}
}
