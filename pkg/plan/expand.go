package plan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/internal/runtime"
	"github.com/aretw0/cracklens/pkg/domain"
)

// KnowledgeSubject is the subject of chat steps.
const KnowledgeSubject = "knowledge_query"

// DefaultVisualTypes are shown when a visualize intent names no layer.
var DefaultVisualTypes = []string{domain.LayerOriginal, domain.LayerMask}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Expansion is the result of expanding intents.
type Expansion struct {
	// Steps must be executed, in order.
	Steps []domain.Step `json:"steps"`
	// Resolved holds steps answered during expansion without running a tool.
	Resolved []domain.StepResult `json:"resolved,omitempty"`
}

// Expander turns intents into tool steps for the images of a layout.
type Expander struct {
	layout runtime.Layout
	logger *slog.Logger
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithLayout sets the directories images and masks are found in.
func WithLayout(layout runtime.Layout) ExpanderOption {
	return func(e *Expander) {
		e.layout = layout
	}
}

// WithLogger sets the expander logger.
func WithLogger(logger *slog.Logger) ExpanderOption {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExpander creates an expander over the default layout.
func NewExpander(opts ...ExpanderOption) *Expander {
	e := &Expander{
		layout: runtime.DefaultLayout(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Images lists the input images, sorted by file name. Index i of an intent refers
// to the i-th entry.
func (e *Expander) Images() ([]string, error) {
	entries, err := os.ReadDir(e.layout.ImagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		out = append(out, filepath.Join(e.layout.ImagesDir, entry.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Expand converts intents into steps. text is the original request, used as the
// query of chat intents that carry none.
//
// Segmentation of an image whose mask is already on disk is resolved immediately.
// Image actions without targets are skipped with a warning.
func (e *Expander) Expand(ctx context.Context, text string, intents []Intent) (Expansion, error) {
	images, err := e.Images()
	if err != nil {
		return Expansion{}, err
	}

	var out Expansion
	for _, in := range intents {
		switch in.Action {
		case ActionChat:
			out.Steps = append(out.Steps, chatStep(in, text))
			continue
		case ActionCompare:
			out.Steps = append(out.Steps, domain.Step{Tool: domain.ToolCompare, Action: ActionCompare, Args: map[string]any{}})
			continue
		case ActionSegment, ActionQuantify, ActionGenerate, ActionVisualize:
		default:
			e.logger.WarnContext(ctx, "Unknown action skipped", "action", in.Action)
			continue
		}

		indices := in.Indices(len(images))
		if len(indices) == 0 {
			e.logger.WarnContext(ctx, "Step has no image targets", "action", in.Action, "targets", in.TargetIndices, "images", len(images))
			continue
		}

		for _, idx := range indices {
			image := images[idx]
			subject := domain.Stem(image)
			mask := e.layout.MaskPath(subject)

			switch in.Action {
			case ActionSegment:
				args := map[string]any{domain.ArgImagePath: image}
				if _, err := os.Stat(mask); err == nil {
					out.Resolved = append(out.Resolved, domain.StepResult{
						Tool:           domain.ToolSegment,
						Status:         domain.ResultCached,
						Summary:        "Mask already exists on disk, skipping",
						Outputs:        map[string]any{domain.KeyMaskPath: mask},
						Visualizations: map[string]string{},
						Args:           args,
						Subject:        subject,
						Action:         ActionSegment,
					})
					continue
				}
				out.Steps = append(out.Steps, domain.Step{Tool: domain.ToolSegment, Subject: subject, Action: ActionSegment, Args: args})

			case ActionQuantify:
				metrics := in.Metrics
				if len(metrics) == 0 {
					metrics = domain.AllMetrics()
				}
				args := map[string]any{domain.ArgMaskPath: mask, domain.ArgMetrics: metrics}
				if in.PixelSizeMM != nil {
					args[domain.ArgPixelSize] = *in.PixelSizeMM
				}
				if len(in.VisualTypes) > 0 {
					args[domain.ArgVisuals] = in.VisualTypes
				}
				out.Steps = append(out.Steps, domain.Step{Tool: domain.ToolQuantify, Subject: subject, Action: ActionQuantify, Args: args})

			case ActionGenerate:
				args := map[string]any{domain.ArgMaskPath: mask, domain.ArgMetrics: []string{}}
				if in.PixelSizeMM != nil {
					args[domain.ArgPixelSize] = *in.PixelSizeMM
				}
				if len(in.VisualTypes) > 0 {
					args[domain.ArgVisuals] = in.VisualTypes
				}
				out.Steps = append(out.Steps, domain.Step{Tool: domain.ToolGenerate, Subject: subject, Action: ActionGenerate, Args: args})

			case ActionVisualize:
				layers := in.VisualTypes
				if len(layers) == 0 {
					layers = DefaultVisualTypes
				}
				out.Steps = append(out.Steps, domain.Step{
					Tool:    domain.ToolVisualize,
					Subject: subject,
					Action:  ActionVisualize,
					Args:    map[string]any{domain.ArgSubjectName: subject, domain.ArgVisualTypes: layers},
				})
			}
		}
	}
	return out, nil
}

func chatStep(in Intent, text string) domain.Step {
	tool := in.Tool
	if tool == "" {
		tool = domain.ToolRAG
	}
	args := make(map[string]any, len(in.Args)+1)
	for k, v := range in.Args {
		args[k] = v
	}
	if q, _ := args["query"].(string); strings.TrimSpace(q) == "" {
		args["query"] = strings.TrimSpace(text)
	}
	return domain.Step{Tool: tool, Subject: KnowledgeSubject, Action: ActionChat, Args: args}
}
