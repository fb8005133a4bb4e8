package process

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/registry"
)

// Tool adapts the process registered as name into a registry tool. The step args
// are sent as the request and the response must be a tool result object.
func Tool(r *Runner, name string) registry.ToolFunc {
	return func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
		var res domain.ToolResult
		if err := r.Call(ctx, name, args, &res); err != nil {
			return domain.Failure(fmt.Sprintf("%s failed", name), err), nil
		}
		return res, nil
	}
}

// RegisterTools binds every allow-listed process that is not a collaborator role as
// a tool in reg. Existing tools with the same name are replaced and reported.
func RegisterTools(reg *registry.Registry, r *Runner) error {
	var errs []error
	for _, name := range r.Names() {
		if slices.Contains(Roles(), name) {
			continue
		}
		if err := reg.RegisterWithDescription(name, r.Describe(name), Tool(r, name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
