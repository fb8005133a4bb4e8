package tools

import "context"

// Segmenter writes a binary crack mask (0/255) for an image.
type Segmenter interface {
	Segment(ctx context.Context, imagePath, maskPath string) error
}

// MeasureRequest asks a Geometry to measure a mask and draw overlays.
type MeasureRequest struct {
	MaskPath  string   `json:"mask_path"`
	Subject   string   `json:"subject"`
	Visuals   []string `json:"visuals,omitempty"`
	OutputDir string   `json:"output_dir"`
}

// Measurement holds pixel measurements and the overlay files written, keyed by layer.
type Measurement struct {
	LengthPx   float64           `json:"length_px"`
	AreaPx     float64           `json:"area_px"`
	MaxWidthPx float64           `json:"max_width_px"`
	AvgWidthPx float64           `json:"avg_width_px"`
	Overlays   map[string]string `json:"overlays,omitempty"`
}

// Geometry measures crack masks.
type Geometry interface {
	Measure(ctx context.Context, req MeasureRequest) (Measurement, error)
}

// Passage is one retrieved knowledge base paragraph, in both languages.
type Passage struct {
	Source    string `json:"source"`
	SectionZH string `json:"section_zh,omitempty"`
	SectionEN string `json:"section_en,omitempty"`
	TextZH    string `json:"text_zh,omitempty"`
	TextEN    string `json:"text_en,omitempty"`
}

// Retriever finds passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query, lang string, topK int) ([]Passage, error)
}

// Answerer generates an answer for a prompt.
type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
}
