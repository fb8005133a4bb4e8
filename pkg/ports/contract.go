package ports

import (
	"context"
	"testing"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecordLogContract runs a suite of tests to verify that a RecordLog implementation
// adheres to the defined interface contract. The log must start empty.
func RunRecordLogContract(t *testing.T, log RecordLog) {
	ctx := context.Background()

	t.Run("Replay Empty", func(t *testing.T) {
		records, skipped, err := log.Replay(ctx)
		require.NoError(t, err, "Replay of an empty log should not fail")
		assert.Empty(t, records)
		assert.Zero(t, skipped)
	})

	t.Run("Append and Replay In Order", func(t *testing.T) {
		first := domain.NewRecord("img01", domain.TaskSegment, nil, map[string]any{"mask_path": "outputs/masks/img01.png"})
		second := domain.NewRecord("img01", domain.TaskQuantify, domain.Scale(0.5), map[string]any{"Area (mm^2)": 12.3})
		third := domain.NewRecord("img02", domain.TaskSave, domain.Scale(0.5), map[string]any{"skeleton_overlay": "outputs/visuals/img02_skeleton.png"})

		for _, r := range []domain.Record{first, second, third} {
			require.NoError(t, log.Append(ctx, r))
		}

		records, skipped, err := log.Replay(ctx)
		require.NoError(t, err)
		assert.Zero(t, skipped)
		require.Len(t, records, 3)

		assert.Equal(t, "img01", records[0].Subject)
		assert.Equal(t, domain.TaskSegment, records[0].Context.Task)
		assert.Nil(t, records[0].Context.PixelSizeMM)
		assert.Equal(t, "outputs/masks/img01.png", records[0].Observation["mask_path"])

		assert.Equal(t, domain.TaskQuantify, records[1].Context.Task)
		require.NotNil(t, records[1].Context.PixelSizeMM)
		assert.InDelta(t, 0.5, *records[1].Context.PixelSizeMM, domain.ConfigTolerance)
		assert.InDelta(t, 12.3, records[1].Observation["Area (mm^2)"], 1e-9)
		assert.True(t, second.Context.Timestamp.Equal(records[1].Context.Timestamp), "timestamps survive persistence")

		assert.Equal(t, "img02", records[2].Subject)
	})

	t.Run("Truncate", func(t *testing.T) {
		require.NoError(t, log.Truncate(ctx))

		records, _, err := log.Replay(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		// Truncating twice is harmless.
		require.NoError(t, log.Truncate(ctx))
	})

	t.Run("Append After Truncate", func(t *testing.T) {
		require.NoError(t, log.Append(ctx, domain.NewRecord("img03", domain.TaskSegment, nil, nil)))

		records, _, err := log.Replay(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "img03", records[0].Subject)

		require.NoError(t, log.Truncate(ctx))
	})
}

// ContractPlanID is the plan every library under RunPlanLibraryContract must hold:
// a segment step for img01 followed by a quantify step at 0.5 mm per pixel.
const ContractPlanID = "inspect"

// RunPlanLibraryContract verifies a PlanLibrary seeded with the ContractPlanID plan.
func RunPlanLibraryContract(t *testing.T, lib PlanLibrary) {
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		ids, err := lib.ListPlans(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, ContractPlanID)
		assert.IsNonDecreasing(t, ids)
	})

	t.Run("Get", func(t *testing.T) {
		plan, err := lib.GetPlan(ctx, ContractPlanID)
		require.NoError(t, err)
		assert.Equal(t, ContractPlanID, plan.ID)
		require.Len(t, plan.Steps, 2)

		assert.Equal(t, domain.ToolSegment, plan.Steps[0].Tool)
		assert.Equal(t, "img01", domain.SubjectOf(plan.Steps[0]))

		assert.Equal(t, domain.ToolQuantify, plan.Steps[1].Tool)
		scale, ok := domain.FloatArg(plan.Steps[1].Args, domain.ArgPixelSize)
		require.True(t, ok)
		assert.InDelta(t, 0.5, scale, domain.ConfigTolerance)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := lib.GetPlan(ctx, "does-not-exist")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})
}
