package runtime

import (
	"context"
	"time"

	"github.com/aretw0/cracklens/pkg/domain"
)

func (e *Executor) emitPlanStart(ctx context.Context, runID string, steps int) {
	if e.hooks.OnPlanStart == nil {
		return
	}
	e.hooks.OnPlanStart(ctx, &domain.PlanEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventPlanStart, RunID: runID},
		Steps:     steps,
	})
}

func (e *Executor) emitPlanEnd(ctx context.Context, runID string, steps, failures int) {
	if e.hooks.OnPlanEnd == nil {
		return
	}
	e.hooks.OnPlanEnd(ctx, &domain.PlanEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventPlanEnd, RunID: runID},
		Steps:     steps,
		Failures:  failures,
	})
}

func (e *Executor) emitStepStart(ctx context.Context, runID string, index int, step domain.Step) {
	if e.hooks.OnStepStart == nil {
		return
	}
	e.hooks.OnStepStart(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepStart, RunID: runID},
		Index:     index,
		ToolName:  step.Tool,
		Subject:   domain.SubjectOf(step),
	})
}

func (e *Executor) emitStepEnd(ctx context.Context, runID string, index int, res domain.StepResult) {
	if e.hooks.OnStepEnd == nil {
		return
	}
	e.hooks.OnStepEnd(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnd, RunID: runID},
		Index:     index,
		ToolName:  res.Tool,
		Subject:   res.Subject,
		Status:    res.Status,
		Duration:  res.Duration,
	})
}
