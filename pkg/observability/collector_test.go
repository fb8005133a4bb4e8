package observability_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Hooks(t *testing.T) {
	c := observability.NewCollector(nil)
	hooks := c.Hooks()
	ctx := context.Background()

	hooks.OnPlanStart(ctx, &domain.PlanEvent{Steps: 2})
	hooks.OnStepEnd(ctx, &domain.StepEvent{ToolName: "segment_crack_image", Status: domain.ResultCached, Duration: time.Millisecond})
	hooks.OnStepEnd(ctx, &domain.StepEvent{ToolName: "quantify_crack_geometry", Status: domain.ResultError, Duration: 2 * time.Millisecond})
	hooks.OnPlanEnd(ctx, &domain.PlanEvent{Steps: 2, Failures: 1})

	count, err := testutil.GatherAndCount(c.Registry(), "cracklens_steps_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP cracklens_plans_total Total number of executed plans
# TYPE cracklens_plans_total counter
cracklens_plans_total 1
# HELP cracklens_plan_step_failures_total Total number of failed steps across plans
# TYPE cracklens_plan_step_failures_total counter
cracklens_plan_step_failures_total 1
# HELP cracklens_plans_in_flight Number of plans currently running
# TYPE cracklens_plans_in_flight gauge
cracklens_plans_in_flight 0
`
	assert.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"cracklens_plans_total", "cracklens_plan_step_failures_total", "cracklens_plans_in_flight"))
}

func TestCollector_Handler(t *testing.T) {
	c := observability.NewCollector(nil)
	c.Hooks().OnStepEnd(context.Background(), &domain.StepEvent{ToolName: "visualize_crack_result", Status: domain.ResultSuccess})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `cracklens_steps_total{status="success",tool="visualize_crack_result"} 1`)
}
