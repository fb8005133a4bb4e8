package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/cracklens/pkg/domain"
)

// Plans implements ports.PlanLibrary using an in-memory map.
type Plans struct {
	plans map[string]domain.Plan
	mu    sync.RWMutex
}

// NewPlans creates a library holding the given plans.
func NewPlans(plans ...domain.Plan) (*Plans, error) {
	l := &Plans{plans: make(map[string]domain.Plan, len(plans))}
	for _, p := range plans {
		if err := l.Add(p); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add stores a plan, replacing any plan with the same ID.
func (l *Plans) Add(p domain.Plan) error {
	if p.ID == "" {
		return fmt.Errorf("plan missing ID")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.plans[p.ID] = clonePlan(p)
	return nil
}

// GetPlan returns a copy of the plan with the given ID.
func (l *Plans) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.plans[id]
	if !ok {
		return domain.Plan{}, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, id)
	}
	return clonePlan(p), nil
}

// ListPlans returns all plan IDs, sorted.
func (l *Plans) ListPlans(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.plans))
	for id := range l.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func clonePlan(p domain.Plan) domain.Plan {
	out := p
	out.Steps = make([]domain.Step, len(p.Steps))
	for i, s := range p.Steps {
		s.Args = s.CloneArgs()
		out.Steps[i] = s
	}
	return out
}
