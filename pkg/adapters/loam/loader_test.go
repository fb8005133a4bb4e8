package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/ports"
	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inspectDoc = `---
id: inspect
description: Segment and measure img01
defaults:
  pixel_size_mm: 0.5
steps:
  - tool: segment_crack_image
    args:
      image_path: data/Test_images/img01.jpg
  - tool: quantify_crack_geometry
    args:
      mask_path: outputs/masks/img01.png
---
Runs the basic pipeline on the first image.`

// newLibrary seeds a temporary repository with files and opens it.
func newLibrary(t *testing.T, files map[string]string) *Library {
	t.Helper()
	tmpDir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(tmpDir, name)), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0644))
	}
	repo, err := loam.Init(tmpDir, loam.WithVersioning(false))
	require.NoError(t, err)
	return New(loam.NewTypedRepository[PlanMetadata](repo))
}

func TestLibrary_Contract(t *testing.T) {
	lib := newLibrary(t, map[string]string{"inspect.md": inspectDoc})
	ports.RunPlanLibraryContract(t, lib)
}

func TestLibrary_DefaultsDoNotOverrideArgs(t *testing.T) {
	lib := newLibrary(t, map[string]string{"fine.yaml": `
description: Fine scale quantification
defaults:
  pixel_size_mm: 0.5
steps:
  - tool: quantify_crack_geometry
    args:
      mask_path: outputs/masks/img02.png
      pixel_size_mm: 0.1
`})

	plan, err := lib.GetPlan(context.Background(), "fine")
	require.NoError(t, err)
	assert.Equal(t, "fine", plan.ID)
	assert.Equal(t, "Fine scale quantification", plan.Description)
	require.Len(t, plan.Steps, 1)

	scale, ok := domain.FloatArg(plan.Steps[0].Args, domain.ArgPixelSize)
	require.True(t, ok)
	assert.InDelta(t, 0.1, scale, domain.ConfigTolerance)
}

func TestLibrary_ListPlans_NormalizesIDs(t *testing.T) {
	lib := newLibrary(t, map[string]string{
		"inspect.md":   inspectDoc,
		"compare.json": `{"steps": [{"tool": "compare_results_csv"}]}`,
	})

	ids, err := lib.ListPlans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"compare", "inspect"}, ids)
}

func TestLibrary_ListPlans_DetectsCollisions(t *testing.T) {
	lib := newLibrary(t, map[string]string{
		"foo.md":   "---\nid: foo\n---\nExplicit ID",
		"foo.json": `{"id": "foo"}`,
	})

	_, err := lib.ListPlans(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}
