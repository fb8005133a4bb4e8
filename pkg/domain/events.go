package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPlanStart EventType = "plan_start"
	EventPlanEnd   EventType = "plan_end"
	EventStepStart EventType = "step_start"
	EventStepEnd   EventType = "step_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// PlanEvent is emitted when a plan starts or finishes.
type PlanEvent struct {
	EventBase
	Steps    int `json:"steps"`
	Failures int `json:"failures,omitempty"`
}

// StepEvent is emitted around each step.
type StepEvent struct {
	EventBase
	Index    int           `json:"index"`
	ToolName string        `json:"tool_name"`
	Subject  string        `json:"subject,omitempty"`
	Status   ResultStatus  `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnPlanStart func(context.Context, *PlanEvent)
	OnPlanEnd   func(context.Context, *PlanEvent)
	OnStepStart func(context.Context, *StepEvent)
	OnStepEnd   func(context.Context, *StepEvent)
}

// Merge combines two hook sets; both callbacks fire when both are set.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPlanStart: chainPlan(h.OnPlanStart, other.OnPlanStart),
		OnPlanEnd:   chainPlan(h.OnPlanEnd, other.OnPlanEnd),
		OnStepStart: chainStep(h.OnStepStart, other.OnStepStart),
		OnStepEnd:   chainStep(h.OnStepEnd, other.OnStepEnd),
	}
}

func chainPlan(a, b func(context.Context, *PlanEvent)) func(context.Context, *PlanEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *PlanEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainStep(a, b func(context.Context, *StepEvent)) func(context.Context, *StepEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *StepEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
