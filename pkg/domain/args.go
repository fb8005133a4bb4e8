package domain

import (
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Standard metric names understood by the quantify tool.
const (
	MetricLength   = "length"
	MetricArea     = "area"
	MetricMaxWidth = "max_width"
	MetricAvgWidth = "avg_width"
)

// AllMetrics returns every standard metric, in reporting order.
func AllMetrics() []string {
	return []string{MetricLength, MetricArea, MetricMaxWidth, MetricAvgWidth}
}

// DerivedLayers are the layers produced by the geometry tool from a mask.
func DerivedLayers() []string {
	return []string{LayerSkeleton, LayerNormals, LayerMaxWidth}
}

// ExpandLayers replaces "all" with every derived layer and removes duplicates.
func ExpandLayers(layers []string) []string {
	seen := make(map[string]bool, len(layers))
	out := make([]string, 0, len(layers))
	add := func(l string) {
		if l == "" || seen[l] {
			return
		}
		seen[l] = true
		out = append(out, l)
	}
	for _, l := range layers {
		if l == LayerAll {
			for _, d := range DerivedLayers() {
				add(d)
			}
			continue
		}
		add(l)
	}
	return out
}

// StringsArg reads a list argument. It accepts []string, []any and a single string.
// The boolean is false when the key is absent or nil.
func StringsArg(args map[string]any, key string) ([]string, bool) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, false
	}
	if s, ok := raw.(string); ok {
		if s == "" {
			return []string{}, true
		}
		return []string{s}, true
	}
	out := []string{}
	if err := mapstructure.WeakDecode(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// StringArg reads a string argument, empty when absent.
func StringArg(args map[string]any, key string) string {
	raw, ok := args[key]
	if !ok || raw == nil {
		return ""
	}
	var s string
	if err := mapstructure.WeakDecode(raw, &s); err != nil {
		return ""
	}
	return s
}

// FloatArg reads a numeric argument. Strings and integers are converted.
func FloatArg(args map[string]any, key string) (float64, bool) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false
	}
	var f float64
	if err := mapstructure.WeakDecode(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

// ScaleArg returns the pixel size argument as a scale pointer, nil when absent.
func ScaleArg(args map[string]any) *float64 {
	if v, ok := FloatArg(args, ArgPixelSize); ok {
		return Scale(v)
	}
	return nil
}

// SubjectOf returns the subject a step operates on: the explicit subject, else the
// file stem of its image or mask path.
func SubjectOf(step Step) string {
	if step.Subject != "" {
		return step.Subject
	}
	for _, key := range []string{ArgSubjectName, ArgImagePath, ArgMaskPath} {
		if v := StringArg(step.Args, key); v != "" {
			return Stem(v)
		}
	}
	return ""
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
