package loam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/loam"
)

// Library adapts a Loam repository to the PlanLibrary port.
// Each Markdown, YAML or JSON document is one plan; its ID is the file path without
// extension unless the document sets one.
type Library struct {
	Repo *loam.TypedRepository[PlanMetadata]
}

// New creates a library over repo.
func New(repo *loam.TypedRepository[PlanMetadata]) *Library {
	return &Library{Repo: repo}
}

// Open initializes a read-only Loam repository at dir.
// Strict mode keeps numbers as json.Number so pixel sizes are not rounded.
func Open(dir string) (*Library, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[PlanMetadata](repo)), nil
}

// GetPlan loads the plan with the given ID.
func (l *Library) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || strings.Contains(strings.ToLower(err.Error()), "not found") {
			return domain.Plan{}, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, id)
		}
		return domain.Plan{}, fmt.Errorf("loam get failed for %s: %w", id, err)
	}

	rawID := doc.Data.ID
	if rawID == "" {
		rawID = doc.ID
	}
	plan := domain.Plan{
		ID:          trimExtension(rawID),
		Description: doc.Data.Description,
		Steps:       make([]domain.Step, 0, len(doc.Data.Steps)),
	}
	if plan.Description == "" {
		plan.Description = strings.TrimSpace(doc.Content)
	}
	for _, s := range doc.Data.Steps {
		args := s.CloneArgs()
		for k, v := range doc.Data.Defaults {
			if _, ok := args[k]; !ok {
				args[k] = v
			}
		}
		s.Args = args
		plan.Steps = append(plan.Steps, s)
	}
	return plan, nil
}

// ListPlans lists all plans in the repository.
func (l *Library) ListPlans(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
