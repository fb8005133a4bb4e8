package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestCacheKey_Matches(t *testing.T) {
	quantify := domain.NewRecord("img01", domain.TaskQuantify, domain.Scale(0.5), nil)
	segment := domain.NewRecord("img01", domain.TaskSegment, nil, nil)

	tests := []struct {
		name   string
		key    domain.CacheKey
		record domain.Record
		want   bool
	}{
		{"same scale", domain.CacheKey{Subject: "img01", Task: domain.TaskQuantify, Scale: domain.Scale(0.5)}, quantify, true},
		{"within tolerance", domain.CacheKey{Subject: "img01", Task: domain.TaskQuantify, Scale: domain.Scale(0.5 + 1e-8)}, quantify, true},
		{"different scale", domain.CacheKey{Subject: "img01", Task: domain.TaskQuantify, Scale: domain.Scale(1.0)}, quantify, false},
		{"no scale requested", domain.CacheKey{Subject: "img01", Task: domain.TaskQuantify}, quantify, true},
		{"scale requested on unscaled record", domain.CacheKey{Subject: "img01", Task: domain.TaskSegment, Scale: domain.Scale(0.5)}, segment, false},
		{"other subject", domain.CacheKey{Subject: "img02", Task: domain.TaskQuantify}, quantify, false},
		{"other task", domain.CacheKey{Subject: "img01", Task: domain.TaskSave}, quantify, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.Matches(tt.record))
		})
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := domain.NewRecord("img01", domain.TaskSave, domain.Scale(0.5), map[string]any{"skeleton_overlay": "a.png"})
	c := r.Clone()
	c.Observation["max_width_overlay"] = "b.png"
	*c.Context.PixelSizeMM = 1.0

	assert.NotContains(t, r.Observation, "max_width_overlay")
	assert.Equal(t, 0.5, *r.Context.PixelSizeMM)
}

func TestCacheKey_String(t *testing.T) {
	assert.Equal(t, "img01/segment", domain.CacheKey{Subject: "img01", Task: domain.TaskSegment}.String())
	assert.Equal(t, "img01/quantify/0.5", domain.CacheKey{Subject: "img01", Task: domain.TaskQuantify, Scale: domain.Scale(0.5)}.String())
}

func TestToolResult_Validate(t *testing.T) {
	assert.NoError(t, domain.Success("ok", nil).Validate())
	assert.NoError(t, domain.Failure("boom", nil).Validate())
	assert.ErrorIs(t, domain.ToolResult{}.Validate(), domain.ErrInvalidResult)
	assert.ErrorIs(t, domain.ToolResult{Status: "weird"}.Validate(), domain.ErrInvalidResult)
	assert.ErrorIs(t, domain.ToolResult{Status: domain.ResultError}.Validate(), domain.ErrInvalidResult)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnStepEnd: func(context.Context, *domain.StepEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnStepEnd: func(context.Context, *domain.StepEvent) { calls = append(calls, "b") }}

	merged := a.Merge(b)
	merged.OnStepEnd(context.Background(), &domain.StepEvent{})

	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, merged.OnPlanStart)
}
