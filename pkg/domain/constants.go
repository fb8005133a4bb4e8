package domain

import "strconv"

// Tool names registered by the default tool set.
const (
	ToolSegment   = "segment_crack_image"
	ToolQuantify  = "quantify_crack_geometry"
	ToolGenerate  = "generate_crack_visuals"
	ToolVisualize = "visualize_crack_result"
	ToolCompare   = "compare_results_csv"
	ToolRAG       = "rag_answer"
)

// Argument and observation keys shared between tools, engine and memory.
const (
	ArgImagePath   = "image_path"
	ArgMaskPath    = "mask_path"
	ArgPixelSize   = "pixel_size_mm"
	ArgMetrics     = "metrics"
	ArgVisuals     = "visuals"
	ArgSubjectName = "subject_name"
	ArgVisualTypes = "visual_types"

	KeyMaskPath = "mask_path"

	// OverlaySuffix is appended to a layer name to form its observation key.
	OverlaySuffix = "_overlay"
)

// Visualization layers.
const (
	LayerOriginal    = "original"
	LayerGroundTruth = "ground_truth"
	LayerMask        = "mask"
	LayerSkeleton    = "skeleton"
	LayerMaxWidth    = "max_width"
	LayerNormals     = "normals"
	LayerAll         = "all"
)

// Object status tags.
const (
	StatusSegmented  = "segmented"
	StatusQuantified = "quantified"
)

// DefaultPixelSizeMM is used when neither the step nor memory provide a scale.
const DefaultPixelSizeMM = 0.5

// OverlayKey returns the observation key holding the overlay path of a layer.
func OverlayKey(layer string) string {
	return layer + OverlaySuffix
}

func formatScale(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
