package tools

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/memory"
	"github.com/aretw0/cracklens/pkg/registry"
)

// Reported metric names, with units.
const (
	LabelLength   = "Length (mm)"
	LabelArea     = "Area (mm^2)"
	LabelMaxWidth = "Max Width (mm)"
	LabelAvgWidth = "Avg Width (mm)"
)

var metricLabels = []string{LabelLength, LabelArea, LabelMaxWidth, LabelAvgWidth}

type quantifyArgs struct {
	MaskPath    string   `mapstructure:"mask_path"`
	PixelSizeMM float64  `mapstructure:"pixel_size_mm"`
	Metrics     []string `mapstructure:"metrics"`
	Visuals     []string `mapstructure:"visuals"`
}

// Quantify returns the quantification tool.
//
// An absent metrics argument selects every metric; an explicitly empty list selects
// none, which is how visualization-only calls are made. Computed metrics are also
// upserted into the predicted metrics CSV.
func Quantify(deps Deps, csv *MetricsCSV) registry.ToolFunc {
	return func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
		return quantify(ctx, deps, csv, args, domain.AllMetrics(), nil)
	}
}

// Generate returns the visual generation tool: quantification that by default
// computes no metrics and draws the skeleton and max width overlays.
func Generate(deps Deps, csv *MetricsCSV) registry.ToolFunc {
	return func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
		return quantify(ctx, deps, csv, args, []string{}, []string{domain.LayerSkeleton, domain.LayerMaxWidth})
	}
}

func quantify(ctx context.Context, deps Deps, csv *MetricsCSV, args map[string]any, defaultMetrics, defaultVisuals []string) (domain.ToolResult, error) {
	var a quantifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return domain.Failure("quantification failed", err), nil
	}
	if a.MaskPath == "" {
		return required(domain.ToolQuantify, domain.ArgMaskPath), nil
	}
	if _, err := os.Stat(a.MaskPath); err != nil {
		return domain.Failure("quantification failed", fmt.Errorf("%w: mask %s", domain.ErrMissingArtifact, a.MaskPath)), nil
	}
	if a.PixelSizeMM <= 0 {
		a.PixelSizeMM = domain.DefaultPixelSizeMM
	}
	if _, present := domain.StringsArg(args, domain.ArgMetrics); !present {
		a.Metrics = defaultMetrics
	}
	if _, present := domain.StringsArg(args, domain.ArgVisuals); !present {
		a.Visuals = defaultVisuals
	}

	labels := selectMetrics(deps.aliases(), a.Metrics)
	visuals := domain.ExpandLayers(a.Visuals)
	if len(labels) == 0 && len(visuals) == 0 {
		return domain.ToolResult{Status: domain.ResultNoOutput, Summary: "Nothing requested"}, nil
	}
	if deps.Geometry == nil {
		return domain.Failure("quantification failed", fmt.Errorf("no geometry collaborator configured")), nil
	}

	subject := domain.Stem(a.MaskPath)
	m, err := deps.Geometry.Measure(ctx, MeasureRequest{
		MaskPath:  a.MaskPath,
		Subject:   subject,
		Visuals:   visuals,
		OutputDir: deps.Layout.VisualsDir,
	})
	if err != nil {
		return domain.Failure("quantification failed", err), nil
	}

	values := scaleMeasurement(m, a.PixelSizeMM)
	outputs := make(map[string]any, len(labels))
	row := make(map[string]float64, len(labels))
	for _, label := range labels {
		outputs[label] = values[label]
		row[label] = values[label]
	}

	if len(row) > 0 && csv != nil {
		if err := csv.Upsert(subject, row); err != nil {
			deps.logger().WarnContext(ctx, "Failed to write metrics CSV", "path", csv.Path(), "err", err)
		}
	}

	overlays := make(map[string]string, len(visuals))
	for _, layer := range visuals {
		if p := m.Overlays[layer]; p != "" {
			overlays[domain.OverlayKey(layer)] = p
		}
	}

	return domain.ToolResult{
		Status:         domain.ResultSuccess,
		Summary:        fmt.Sprintf("Quantified %d metrics and drew %d overlays", len(outputs), len(overlays)),
		Outputs:        outputs,
		Visualizations: overlays,
	}, nil
}

// selectMetrics maps requested names to reported labels with the same approximate
// matching memory uses, keeping label order and dropping duplicates.
func selectMetrics(aliases *memory.AliasTable, requested []string) []string {
	var out []string
	for _, label := range metricLabels {
		for _, r := range requested {
			if memory.Normalize(r) != "" && aliases.Matches(r, label) {
				out = append(out, label)
				break
			}
		}
	}
	return out
}

func scaleMeasurement(m Measurement, pixelSize float64) map[string]float64 {
	return map[string]float64{
		LabelLength:   round(m.LengthPx*pixelSize, 2),
		LabelArea:     round(m.AreaPx*pixelSize*pixelSize, 2),
		LabelMaxWidth: round(m.MaxWidthPx*pixelSize, 2),
		LabelAvgWidth: round(m.AvgWidthPx*pixelSize, 2),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
