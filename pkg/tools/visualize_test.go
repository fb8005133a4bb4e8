package tools_test

import (
	"context"
	"testing"

	"github.com/aretw0/cracklens/internal/runtime"
	memlog "github.com/aretw0/cracklens/pkg/adapters/memory"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/memory"
	"github.com/aretw0/cracklens/pkg/registry"
	"github.com/aretw0/cracklens/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newVisualizeDeps wires the real tool set with in-process raster collaborators.
func newVisualizeDeps(t *testing.T) (tools.Deps, *memory.Controller) {
	t.Helper()
	mem, err := memory.NewController(context.Background(), memlog.NewLog())
	require.NoError(t, err)

	layout := testLayout(t.TempDir())
	reg := registry.NewRegistry()
	deps := tools.Deps{
		Geometry: tools.RasterGeometry{},
		Memory:   mem,
		Resolver: runtime.NewResolver(reg, runtime.WithLayout(layout)),
		Layout:   layout,
	}
	require.NoError(t, tools.RegisterAll(reg, deps))
	return deps, mem
}

func TestVisualize_RegeneratesAndRemembers(t *testing.T) {
	deps, mem := newVisualizeDeps(t)
	mask := writeMask(t, deps.Layout, "img01")

	res, err := tools.Visualize(deps)(context.Background(), map[string]any{
		"subject_name": "img01",
		"visual_types": []any{"mask", "skeleton"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.ResultSuccess, res.Status)
	assert.Equal(t, []string{"mask", "skeleton"}, res.Outputs["layers"])
	assert.Equal(t, mask, res.Visualizations["mask_overlay"])
	assert.Equal(t, deps.Layout.VisualPath("img01", "skeleton"), res.Visualizations["skeleton_overlay"])
	assert.FileExists(t, res.Visualizations["skeleton_overlay"])

	assert.Equal(t, deps.Layout.VisualPath("img01", "skeleton"), mem.PathFor("img01", domain.LayerSkeleton))
}

func TestVisualize_NoOutput(t *testing.T) {
	deps, _ := newVisualizeDeps(t)

	res, err := tools.Visualize(deps)(context.Background(), map[string]any{"subject_name": "img01"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultNoOutput, res.Status)

	res, err = tools.Visualize(deps)(context.Background(), map[string]any{
		"subject_name": "img02",
		"visual_types": []any{"skeleton"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultNoOutput, res.Status)

	res, err = tools.Visualize(deps)(context.Background(), map[string]any{"visual_types": []any{"mask"}})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultError, res.Status)
}

var _ runtime.LayerMemory = (*memory.Controller)(nil)
