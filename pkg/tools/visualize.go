package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/registry"
)

type visualizeArgs struct {
	Subject string   `mapstructure:"subject_name"`
	Layers  []string `mapstructure:"visual_types"`
}

// Visualize returns the tool that resolves display layers of a subject.
// Missing derived layers are regenerated by the resolver. Visualizations are keyed
// by overlay key, like the ones quantification produces.
func Visualize(deps Deps) registry.ToolFunc {
	return func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
		var a visualizeArgs
		if err := decodeArgs(args, &a); err != nil {
			return domain.Failure("Visualization failed", err), nil
		}
		if a.Subject == "" {
			return required(domain.ToolVisualize, domain.ArgSubjectName), nil
		}
		if len(a.Layers) == 0 {
			return domain.ToolResult{Status: domain.ResultNoOutput, Summary: "No visual types requested"}, nil
		}
		if deps.Resolver == nil || deps.Memory == nil {
			return domain.Failure("Visualization failed", fmt.Errorf("no resolver configured")), nil
		}

		resolved := deps.Resolver.Resolve(ctx, a.Subject, a.Layers, deps.Memory)
		if len(resolved) == 0 {
			return domain.ToolResult{
				Status:  domain.ResultNoOutput,
				Summary: fmt.Sprintf("No layers of %s could be resolved", a.Subject),
			}, nil
		}

		layers := make([]string, 0, len(resolved))
		overlays := make(map[string]string, len(resolved))
		for l, p := range resolved {
			layers = append(layers, l)
			overlays[domain.OverlayKey(l)] = p
		}
		sort.Strings(layers)

		return domain.ToolResult{
			Status:         domain.ResultSuccess,
			Summary:        fmt.Sprintf("Resolved %s for %s", strings.Join(layers, ", "), a.Subject),
			Outputs:        map[string]any{"layers": layers},
			Visualizations: overlays,
		}, nil
	}
}
