package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/cracklens"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/memory"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	executed [][]domain.Step
	layers   []string
	scale    *float64
}

func (f *fakeEngine) Execute(ctx context.Context, steps []domain.Step) []domain.StepResult {
	f.executed = append(f.executed, steps)
	out := make([]domain.StepResult, len(steps))
	for i, s := range steps {
		out[i] = domain.StepResult{Tool: s.Tool, Status: domain.ResultSuccess, Summary: "ok"}
	}
	return out
}

func (f *fakeEngine) ExecutePlanID(ctx context.Context, id string) ([]domain.StepResult, error) {
	if id != "inspect" {
		return nil, domain.ErrPlanNotFound
	}
	return []domain.StepResult{{Tool: domain.ToolSegment, Status: domain.ResultCached}}, nil
}

func (f *fakeEngine) Ask(ctx context.Context, text string) (cracklens.Answer, error) {
	return cracklens.Answer{Reply: "done: " + text}, nil
}

func (f *fakeEngine) Metrics(subject string, scale *float64) map[string]any {
	f.scale = scale
	if subject != "img01" {
		return nil
	}
	return map[string]any{"Length (mm)": 12.5}
}

func (f *fakeEngine) Layers(ctx context.Context, subject string, layers []string) map[string]string {
	f.layers = layers
	return map[string]string{"mask": "outputs/masks/img01.png"}
}

func (f *fakeEngine) Snapshot() memory.Snapshot {
	return memory.Snapshot{KnownSubjects: []string{"img01"}}
}

func (f *fakeEngine) Tools() []domain.ToolInfo {
	return []domain.ToolInfo{{Name: domain.ToolSegment}}
}

func TestExecutePlan(t *testing.T) {
	eng := &fakeEngine{}
	s := NewServer(eng)
	ctx := context.Background()

	res, err := s.handleExecutePlan(ctx, mcp.CallToolRequest{}, PlanArgs{
		Plan: "- tool: segment_crack_image\n  args:\n    image_path: img01.jpg\n",
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "[success] segment_crack_image -: ok", res.Reply)
	assert.Equal(t, "img01.jpg", eng.executed[0][0].Args["image_path"])

	res, err = s.handleExecutePlan(ctx, mcp.CallToolRequest{}, PlanArgs{PlanID: "inspect"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultCached, res.Results[0].Status)

	_, err = s.handleExecutePlan(ctx, mcp.CallToolRequest{}, PlanArgs{PlanID: "missing"})
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	_, err = s.handleExecutePlan(ctx, mcp.CallToolRequest{}, PlanArgs{})
	assert.Error(t, err)
}

func TestAsk(t *testing.T) {
	s := NewServer(&fakeEngine{})
	res, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Text: "segment image 1"})
	require.NoError(t, err)
	assert.Equal(t, "done: segment image 1", res.Reply)

	_, err = s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Text: "  "})
	assert.Error(t, err)
}

func TestGetMetrics(t *testing.T) {
	eng := &fakeEngine{}
	s := NewServer(eng)
	scale := 0.5

	res, err := s.handleGetMetrics(context.Background(), mcp.CallToolRequest{}, MetricsArgs{Subject: "img01", Scale: &scale})
	require.NoError(t, err)
	assert.Equal(t, 12.5, res.Metrics["Length (mm)"])
	assert.Equal(t, &scale, eng.scale)

	res, err = s.handleGetMetrics(context.Background(), mcp.CallToolRequest{}, MetricsArgs{Subject: "img09"})
	require.NoError(t, err)
	assert.NotNil(t, res.Metrics)
	assert.Empty(t, res.Metrics)

	_, err = s.handleGetMetrics(context.Background(), mcp.CallToolRequest{}, MetricsArgs{})
	assert.Error(t, err)
}

func TestResolveLayers(t *testing.T) {
	eng := &fakeEngine{}
	s := NewServer(eng)

	res, err := s.handleResolveLayers(context.Background(), mcp.CallToolRequest{}, LayersArgs{Subject: "img01", Layers: "mask, skeleton"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mask", "skeleton"}, eng.layers)
	assert.Equal(t, "outputs/masks/img01.png", res.Layers["mask"])

	_, err = s.handleResolveLayers(context.Background(), mcp.CallToolRequest{}, LayersArgs{Subject: "img01"})
	require.NoError(t, err)
	assert.Equal(t, []string{"all"}, eng.layers)
}
