package runtime

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/cracklens/internal/logging"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/registry"
)

// LayerMemory is what the resolver needs from memory.
type LayerMemory interface {
	PathFor(subject, layer string) string
	MaskPath(subject string) string
	ConfigFor(subject string) (float64, bool)
	UpdateVisualizationPath(ctx context.Context, subject, layer, path string) error
	SaveMaskPath(ctx context.Context, subject, path string) error
}

// ImageLoader checks that a file is a readable image.
type ImageLoader func(path string) error

// DecodeImageHeader opens path and decodes its PNG or JPEG header.
func DecodeImageHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Layout locates inputs and derived artifacts on disk.
type Layout struct {
	ImagesDir      string `yaml:"images" mapstructure:"images"`
	GroundTruthDir string `yaml:"ground_truth" mapstructure:"ground_truth"`
	MasksDir       string `yaml:"masks" mapstructure:"masks"`
	VisualsDir     string `yaml:"visuals" mapstructure:"visuals"`
	CSVDir         string `yaml:"csv" mapstructure:"csv"`
}

// DefaultLayout returns the conventional data/ and outputs/ directories.
func DefaultLayout() Layout {
	return Layout{
		ImagesDir:      filepath.Join("data", "Test_images"),
		GroundTruthDir: filepath.Join("data", "Test_images_GT"),
		MasksDir:       filepath.Join("outputs", "masks"),
		VisualsDir:     filepath.Join("outputs", "visuals"),
		CSVDir:         filepath.Join("outputs", "csv"),
	}
}

// OriginalPath is the input image of subject.
func (l Layout) OriginalPath(subject string) string {
	return filepath.Join(l.ImagesDir, subject+".jpg")
}

// GroundTruthPath is the reference mask of subject.
func (l Layout) GroundTruthPath(subject string) string {
	return filepath.Join(l.GroundTruthDir, subject+".png")
}

// MaskPath is where the predicted mask of subject is written.
func (l Layout) MaskPath(subject string) string {
	return filepath.Join(l.MasksDir, subject+".png")
}

// VisualPath is where an overlay layer of subject is written.
func (l Layout) VisualPath(subject, layer string) string {
	return filepath.Join(l.VisualsDir, subject+"_"+layer+".png")
}

// PredictedCSV is the file quantification appends metrics to.
func (l Layout) PredictedCSV() string {
	return filepath.Join(l.CSVDir, "predicted_metrics.csv")
}

// GroundTruthCSV is the reference metrics file used by comparisons.
func (l Layout) GroundTruthCSV() string {
	return filepath.Join(l.CSVDir, "ground_truth_metrics.csv")
}

// Resolver finds image files for visualization layers, regenerating derived layers
// through the geometry tool when they are missing.
type Resolver struct {
	registry *registry.Registry
	layout   Layout
	load     ImageLoader
	scale    float64
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLayout overrides the default directory layout.
func WithLayout(layout Layout) ResolverOption {
	return func(r *Resolver) {
		r.layout = layout
	}
}

// WithImageLoader replaces the image check, mostly for tests.
func WithImageLoader(load ImageLoader) ResolverOption {
	return func(r *Resolver) {
		if load != nil {
			r.load = load
		}
	}
}

// WithResolverScale sets the pixel scale used to regenerate layers of subjects
// memory has no scale for.
func WithResolverScale(mm float64) ResolverOption {
	return func(r *Resolver) {
		if mm > 0 {
			r.scale = mm
		}
	}
}

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver that regenerates layers with the quantify tool of reg.
func NewResolver(reg *registry.Registry, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry: reg,
		layout:   DefaultLayout(),
		load:     DecodeImageHeader,
		scale:    domain.DefaultPixelSizeMM,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Layout returns the directory layout of the resolver.
func (r *Resolver) Layout() Layout {
	return r.layout
}

// Resolve returns a path for every requested layer it can find or regenerate.
// Missing layers are omitted; the result may be empty but is never nil.
func (r *Resolver) Resolve(ctx context.Context, subject string, layers []string, mem LayerMemory) map[string]string {
	resolved := map[string]string{}
	var regenerate []string

	for _, layer := range domain.ExpandLayers(layers) {
		path := r.candidate(subject, layer, mem)

		if !exists(path) {
			switch layer {
			case domain.LayerMask:
				path = r.layout.MaskPath(subject)
			case domain.LayerSkeleton, domain.LayerMaxWidth, domain.LayerNormals:
				path = r.layout.VisualPath(subject, layer)
			}
		}

		if !exists(path) {
			if isDerived(layer) {
				regenerate = append(regenerate, layer)
			} else {
				r.logger.WarnContext(ctx, "Layer not found", "subject", subject, "layer", layer)
			}
			continue
		}

		r.accept(ctx, subject, layer, path, mem, resolved)
	}

	if len(regenerate) > 0 {
		r.regenerate(ctx, subject, regenerate, mem, resolved)
	}
	return resolved
}

// candidate returns the remembered or conventional path of a layer, or "".
func (r *Resolver) candidate(subject, layer string, mem LayerMemory) string {
	switch layer {
	case domain.LayerMask:
		return mem.MaskPath(subject)
	case domain.LayerSkeleton, domain.LayerMaxWidth, domain.LayerNormals:
		return mem.PathFor(subject, layer)
	case domain.LayerOriginal:
		return r.layout.OriginalPath(subject)
	case domain.LayerGroundTruth:
		return r.layout.GroundTruthPath(subject)
	}
	return ""
}

func (r *Resolver) regenerate(ctx context.Context, subject string, layers []string, mem LayerMemory, resolved map[string]string) {
	mask := mem.MaskPath(subject)
	if !exists(mask) {
		mask = r.layout.MaskPath(subject)
	}
	if !exists(mask) {
		r.logger.WarnContext(ctx, "Mask not found, cannot regenerate layers", "subject", subject, "layers", layers)
		return
	}

	scale, ok := mem.ConfigFor(subject)
	if !ok {
		scale = r.scale
	}

	visuals := make([]any, len(layers))
	for i, l := range layers {
		visuals[i] = l
	}
	args := map[string]any{
		domain.ArgMaskPath:  mask,
		domain.ArgPixelSize: scale,
		domain.ArgMetrics:   []any{},
		domain.ArgVisuals:   visuals,
	}

	r.logger.InfoContext(ctx, "Regenerating layers", "subject", subject, "layers", layers)
	out, err := r.registry.Execute(ctx, domain.ToolQuantify, args)
	if err != nil {
		r.logger.ErrorContext(ctx, "Layer regeneration failed", "subject", subject, "err", err)
		return
	}
	if out.Status != domain.ResultSuccess {
		r.logger.ErrorContext(ctx, "Layer regeneration failed", "subject", subject, "summary", out.Summary, "err", out.Error)
		return
	}

	for _, layer := range layers {
		path := out.Visualizations[domain.OverlayKey(layer)]
		if !exists(path) {
			r.logger.WarnContext(ctx, "Regenerated layer missing", "subject", subject, "layer", layer)
			continue
		}
		r.accept(ctx, subject, layer, path, mem, resolved)
	}
}

// accept loads path and, when it is a readable image, records it and writes it back.
func (r *Resolver) accept(ctx context.Context, subject, layer, path string, mem LayerMemory, resolved map[string]string) {
	if err := r.load(path); err != nil {
		r.logger.WarnContext(ctx, "Unable to read image", "subject", subject, "layer", layer, "path", path, "err", err)
		return
	}
	resolved[layer] = path

	// Masks are read back through MaskPath, overlays through PathFor.
	var err error
	if layer == domain.LayerMask {
		err = mem.SaveMaskPath(ctx, subject, path)
	} else {
		err = mem.UpdateVisualizationPath(ctx, subject, layer, path)
	}
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to write back layer path", "subject", subject, "layer", layer, "err", err)
	}
}

func isDerived(layer string) bool {
	switch layer {
	case domain.LayerSkeleton, domain.LayerMaxWidth, domain.LayerNormals:
		return true
	}
	return false
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
