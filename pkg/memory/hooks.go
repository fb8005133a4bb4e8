package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/cracklens/pkg/domain"
)

// HandleResult records what a successful step produced.
//
// Segmentation stores the mask path, quantification merges its metrics into the
// (subject, scale) observation, and any tool that produced overlays updates the
// subject's save record. Cached, failed and empty results are ignored.
func (c *Controller) HandleResult(ctx context.Context, step domain.Step, result domain.ToolResult) error {
	if result.Status != domain.ResultSuccess {
		return nil
	}
	subject := domain.SubjectOf(step)
	if subject == "" {
		c.logger.Debug("Result without subject not recorded", "tool", step.Tool)
		return nil
	}
	scale := domain.ScaleArg(step.Args)

	var errs []error
	switch step.Tool {
	case domain.ToolSegment:
		if mask, ok := result.Outputs[domain.KeyMaskPath].(string); ok && mask != "" {
			rec := domain.NewRecord(subject, domain.TaskSegment, nil, map[string]any{domain.KeyMaskPath: mask})
			if _, err := c.AppendIfAbsent(ctx, rec); err != nil {
				errs = append(errs, err)
			}
		}
	case domain.ToolQuantify, domain.ToolGenerate:
		key := domain.CacheKey{Subject: subject, Task: domain.TaskQuantify, Scale: scale}
		if err := c.merge(ctx, key, result.Outputs); err != nil {
			errs = append(errs, err)
		}
	}

	if len(result.Visualizations) > 0 {
		if err := c.SaveVisualizations(ctx, subject, scale, result.Visualizations); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to record result of %s: %w", step.Tool, err)
	}
	return nil
}

// Lookup answers a step from memory when possible.
//
// A quantify or generate step hits when every requested metric is cached at the
// step's scale and every requested overlay is recorded and still on disk. A segment step hits when a
// segmentation was recorded and its mask is still on disk.
func (c *Controller) Lookup(step domain.Step) (domain.ToolResult, bool) {
	subject := domain.SubjectOf(step)
	if subject == "" {
		return domain.ToolResult{}, false
	}

	switch step.Tool {
	case domain.ToolSegment:
		return c.lookupSegment(subject)
	case domain.ToolQuantify:
		return c.lookupQuantify(subject, step.Args, domain.AllMetrics(), nil)
	case domain.ToolGenerate:
		return c.lookupQuantify(subject, step.Args, []string{}, []string{domain.LayerSkeleton, domain.LayerMaxWidth})
	}
	return domain.ToolResult{}, false
}

func (c *Controller) lookupSegment(subject string) (domain.ToolResult, bool) {
	if !c.RecordExists(subject, domain.TaskSegment, nil) {
		return domain.ToolResult{}, false
	}
	mask := c.MaskPath(subject)
	if !c.exists(mask) {
		return domain.ToolResult{}, false
	}
	return domain.ToolResult{
		Status:  domain.ResultCached,
		Summary: fmt.Sprintf("Segmentation of %s loaded from memory", subject),
		Outputs: map[string]any{domain.KeyMaskPath: mask},
	}, true
}

// lookupQuantify applies the same argument defaults as the tool it answers for:
// an absent metrics or visuals argument takes defaultMetrics or defaultVisuals,
// an explicitly empty one requests nothing.
func (c *Controller) lookupQuantify(subject string, args map[string]any, defaultMetrics, defaultVisuals []string) (domain.ToolResult, bool) {
	scale := domain.ScaleArg(args)

	metrics, present := domain.StringsArg(args, domain.ArgMetrics)
	if !present {
		metrics = defaultMetrics
	}
	visuals, present := domain.StringsArg(args, domain.ArgVisuals)
	if !present {
		visuals = defaultVisuals
	}
	visuals = domain.ExpandLayers(visuals)

	if len(metrics) == 0 && len(visuals) == 0 {
		return domain.ToolResult{}, false
	}

	outputs := map[string]any{}
	if len(metrics) > 0 {
		if !c.HasMetrics(subject, metrics, scale) {
			return domain.ToolResult{}, false
		}
		for key, value := range c.MetricsFor(subject, scale) {
			for _, name := range metrics {
				if c.aliases.Matches(name, key) {
					outputs[key] = value
					break
				}
			}
		}
	}

	overlays := map[string]string{}
	for _, layer := range visuals {
		path := c.PathFor(subject, layer)
		if !c.exists(path) {
			return domain.ToolResult{}, false
		}
		overlays[domain.OverlayKey(layer)] = path
	}

	return domain.ToolResult{
		Status:         domain.ResultCached,
		Summary:        fmt.Sprintf("Loaded %d metrics and %d overlays of %s from memory", len(outputs), len(overlays), subject),
		Outputs:        outputs,
		Visualizations: overlays,
	}, true
}
