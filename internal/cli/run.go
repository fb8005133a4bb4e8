package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/cracklens/internal/presentation/tui"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/plan"
)

// Executor runs plans.
type Executor interface {
	Execute(ctx context.Context, steps []domain.Step) []domain.StepResult
	ExecutePlanID(ctx context.Context, id string) ([]domain.StepResult, error)
}

// StepsFailedError reports a plan that ran with failing steps.
type StepsFailedError struct {
	Failed int
	Total  int
}

func (e *StepsFailedError) Error() string {
	return fmt.Sprintf("%d of %d steps failed", e.Failed, e.Total)
}

// LoadPlanFile reads a JSON or YAML plan file.
func LoadPlanFile(path string) (domain.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("failed to read plan: %w", err)
	}
	p, err := plan.ParsePlan(data)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return p, nil
}

// RunPlan executes steps and writes the rendered report to out.
// The plan always runs to the end; failing steps are reported as a StepsFailedError.
func RunPlan(ctx context.Context, eng Executor, steps []domain.Step, out io.Writer, render tui.Renderer) error {
	results := eng.Execute(ctx, steps)
	return report(results, out, render)
}

// RunPlanID executes a saved plan and writes the rendered report to out.
func RunPlanID(ctx context.Context, eng Executor, id string, out io.Writer, render tui.Renderer) error {
	results, err := eng.ExecutePlanID(ctx, id)
	if err != nil {
		return err
	}
	return report(results, out, render)
}

func report(results []domain.StepResult, out io.Writer, render tui.Renderer) error {
	if render == nil {
		render = tui.Plain
	}
	rendered, err := render(tui.Report(results))
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	fmt.Fprint(out, rendered)

	failed := 0
	for _, r := range results {
		if r.Status == domain.ResultError {
			failed++
		}
	}
	if failed > 0 {
		return &StepsFailedError{Failed: failed, Total: len(results)}
	}
	return nil
}
