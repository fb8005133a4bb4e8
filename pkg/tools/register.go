package tools

import (
	"errors"
	"log/slog"

	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/internal/runtime"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/memory"
	"github.com/aretw0/cracklens/pkg/registry"
)

// Deps are the collaborators shared by the tool set. Nil collaborators make the
// tools that need them return error results.
type Deps struct {
	Segmenter Segmenter
	Geometry  Geometry
	Retriever Retriever
	Answerer  Answerer

	// Memory and Resolver back the visualize tool.
	Memory   runtime.LayerMemory
	Resolver *runtime.Resolver

	// Aliases extends the metric synonyms understood when selecting metrics.
	Aliases map[string]string

	Layout runtime.Layout
	Logger *slog.Logger
}

func (d Deps) aliases() *memory.AliasTable {
	merged := memory.DefaultAliases()
	for k, v := range d.Aliases {
		merged[k] = v
	}
	return memory.NewAliasTable(merged)
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return logging.NewNop()
	}
	return d.Logger
}

// RegisterAll binds every tool of the set into reg.
// Name collisions are reported but do not stop registration.
func RegisterAll(reg *registry.Registry, deps Deps) error {
	if deps.Layout == (runtime.Layout{}) {
		deps.Layout = runtime.DefaultLayout()
	}
	csv := NewMetricsCSV(deps.Layout.PredictedCSV())

	bindings := []struct {
		name string
		desc string
		fn   registry.ToolFunc
	}{
		{domain.ToolSegment, "Segment cracks in an image and save a binary mask.", Segment(deps)},
		{domain.ToolQuantify, "Measure crack length, area and widths from a mask, optionally drawing overlays.", Quantify(deps, csv)},
		{domain.ToolGenerate, "Draw crack overlays (skeleton, normals, max width) from a mask.", Generate(deps, csv)},
		{domain.ToolVisualize, "Resolve image layers of a subject, regenerating missing overlays.", Visualize(deps)},
		{domain.ToolCompare, "Compare ground truth and predicted metric CSV files.", Compare(deps)},
		{domain.ToolRAG, "Answer a question from the crack knowledge base.", RAGAnswer(deps)},
	}

	var errs []error
	for _, b := range bindings {
		if err := reg.RegisterWithDescription(b.name, b.desc, b.fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
