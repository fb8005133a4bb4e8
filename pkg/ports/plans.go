package ports

import (
	"context"

	"github.com/aretw0/cracklens/pkg/domain"
)

// PlanLibrary stores reusable plans addressed by ID.
type PlanLibrary interface {
	// GetPlan returns the plan with the given ID, or an error wrapping domain.ErrPlanNotFound.
	GetPlan(ctx context.Context, id string) (domain.Plan, error)

	// ListPlans returns the IDs of every stored plan, sorted.
	ListPlans(ctx context.Context) ([]string, error)
}
