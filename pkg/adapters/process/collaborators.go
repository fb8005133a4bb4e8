package process

import (
	"context"
	"encoding/json"

	"github.com/aretw0/cracklens/pkg/plan"
	"github.com/aretw0/cracklens/pkg/tools"
)

// Process names of the collaborators in tools.yaml.
const (
	RoleSegmenter = "segmenter"
	RoleGeometry  = "geometry"
	RoleRetriever = "retriever"
	RoleAnswerer  = "answerer"
	RolePlanner   = "planner"
)

// Roles lists every collaborator process name.
func Roles() []string {
	return []string{RoleSegmenter, RoleGeometry, RoleRetriever, RoleAnswerer, RolePlanner}
}

// Segmenter runs the segmenter process. It receives {"image_path", "mask_path"}
// and must write the mask.
type Segmenter struct{ Runner *Runner }

// Segment implements tools.Segmenter.
func (s Segmenter) Segment(ctx context.Context, imagePath, maskPath string) error {
	req := map[string]string{"image_path": imagePath, "mask_path": maskPath}
	return s.Runner.Call(ctx, RoleSegmenter, req, nil)
}

// Geometry runs the geometry process with a tools.MeasureRequest and reads back a
// tools.Measurement.
type Geometry struct{ Runner *Runner }

// Measure implements tools.Geometry.
func (g Geometry) Measure(ctx context.Context, req tools.MeasureRequest) (tools.Measurement, error) {
	var m tools.Measurement
	if err := g.Runner.Call(ctx, RoleGeometry, req, &m); err != nil {
		return tools.Measurement{}, err
	}
	return m, nil
}

// Retriever runs the retriever process. It receives {"query", "lang", "top_k"} and
// answers {"passages": [...]}.
type Retriever struct{ Runner *Runner }

// Retrieve implements tools.Retriever.
func (r Retriever) Retrieve(ctx context.Context, query, lang string, topK int) ([]tools.Passage, error) {
	req := map[string]any{"query": query, "lang": lang, "top_k": topK}
	var resp struct {
		Passages []tools.Passage `json:"passages"`
	}
	if err := r.Runner.Call(ctx, RoleRetriever, req, &resp); err != nil {
		return nil, err
	}
	return resp.Passages, nil
}

// Answerer runs the answerer process. It receives {"prompt"} and answers {"answer"}.
type Answerer struct{ Runner *Runner }

// Answer implements tools.Answerer.
func (a Answerer) Answer(ctx context.Context, prompt string) (string, error) {
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := a.Runner.Call(ctx, RoleAnswerer, map[string]string{"prompt": prompt}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// Planner runs the planner process. It receives {"text"} and answers a list of
// intents or {"steps": [...]}.
type Planner struct{ Runner *Runner }

// Plan implements plan.Planner.
func (p Planner) Plan(ctx context.Context, text string) ([]plan.Intent, error) {
	var raw json.RawMessage
	if err := p.Runner.Call(ctx, RolePlanner, map[string]string{"text": text}, &raw); err != nil {
		return nil, err
	}
	return plan.ParseIntents(raw)
}
