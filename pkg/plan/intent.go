// Package plan turns requests into executable plans.
//
// A Planner reads free text into intents: an action applied to images picked by
// index. An Expander turns intents into concrete tool steps against the images on
// disk, answering what it can without running a tool. ParsePlan reads plans that
// are already structured.
package plan

import (
	"context"
	"strconv"
	"strings"
)

// Actions a planner may request.
const (
	ActionSegment   = "segment"
	ActionQuantify  = "quantify"
	ActionGenerate  = "generate"
	ActionVisualize = "visualize"
	ActionCompare   = "compare"
	ActionChat      = "chat"
)

// Intent is one planner decision.
type Intent struct {
	Action string `json:"action" yaml:"action" mapstructure:"action"`

	// TargetIndices selects images by zero-based index. The strings "all" and "last"
	// select every image and the last one.
	TargetIndices []any `json:"target_indices,omitempty" yaml:"target_indices,omitempty" mapstructure:"target_indices"`

	PixelSizeMM *float64 `json:"pixel_size_mm,omitempty" yaml:"pixel_size_mm,omitempty" mapstructure:"pixel_size_mm"`
	Metrics     []string `json:"metrics,omitempty" yaml:"metrics,omitempty" mapstructure:"metrics"`
	VisualTypes []string `json:"visual_types,omitempty" yaml:"visual_types,omitempty" mapstructure:"visual_types"`

	// Tool and Args are set on chat intents routed to a specific tool.
	Tool string         `json:"tool,omitempty" yaml:"tool,omitempty" mapstructure:"tool"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
}

// Indices resolves TargetIndices against n available images. "all" expands to every
// index; out of range and unparseable entries are dropped. Order is kept and
// duplicates removed.
func (i Intent) Indices(n int) []int {
	seen := make(map[int]bool, n)
	var out []int
	add := func(idx int) {
		if idx < 0 || idx >= n || seen[idx] {
			return
		}
		seen[idx] = true
		out = append(out, idx)
	}

	for _, raw := range i.TargetIndices {
		switch v := raw.(type) {
		case int:
			add(v)
		case int64:
			add(int(v))
		case float64:
			add(int(v))
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "all":
				for idx := 0; idx < n; idx++ {
					add(idx)
				}
				continue
			case "last":
				add(n - 1)
				continue
			}
			if idx, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				add(idx)
			}
		case interface{ Int64() (int64, error) }:
			if idx, err := v.Int64(); err == nil {
				add(int(idx))
			}
		}
	}
	return out
}

// Planner reads a request into intents.
type Planner interface {
	Plan(ctx context.Context, text string) ([]Intent, error)
}
