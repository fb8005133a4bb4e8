// Package tui renders engine output for terminals.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/memory"
)

var statusIcons = map[domain.ResultStatus]string{
	domain.ResultSuccess:  "ok",
	domain.ResultCached:   "cached",
	domain.ResultError:    "FAILED",
	domain.ResultNoOutput: "no output",
}

// Report formats the results of a plan as markdown: a summary table followed by
// the metrics and overlays each step produced.
func Report(results []domain.StepResult) string {
	var b strings.Builder
	b.WriteString("## Run report\n\n")
	if len(results) == 0 {
		b.WriteString("_Nothing to do._\n")
		return b.String()
	}

	b.WriteString("| # | Tool | Subject | Status | Time | Summary |\n")
	b.WriteString("|---|------|---------|--------|------|---------|\n")
	for i, r := range results {
		subject := r.Subject
		if subject == "" {
			subject = "-"
		}
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %s | %s |\n",
			i+1, r.Tool, subject, statusLabel(r.Status), r.Duration.Round(time.Millisecond), cell(r.Summary))
	}

	for i, r := range results {
		if r.Status == domain.ResultError && r.Error != "" {
			fmt.Fprintf(&b, "\n### Step %d failed\n\n```\n%s\n```\n", i+1, r.Error)
			continue
		}
		metrics := numericOutputs(r.Outputs)
		if len(metrics) == 0 && len(r.Visualizations) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### Step %d: %s\n\n", i+1, r.Tool)
		for _, k := range metrics {
			fmt.Fprintf(&b, "- **%s**: %v\n", k, r.Outputs[k])
		}
		for _, k := range sortedKeys(r.Visualizations) {
			fmt.Fprintf(&b, "- %s: `%s`\n", k, r.Visualizations[k])
		}
	}
	return b.String()
}

// SnapshotReport formats a memory snapshot as markdown.
func SnapshotReport(s memory.Snapshot) string {
	var b strings.Builder
	b.WriteString("## Memory\n\n")
	fmt.Fprintf(&b, "- Records: %d\n", s.Records)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "- Skipped corrupt lines: %d\n", s.Skipped)
	}
	if s.LastTask != "" {
		fmt.Fprintf(&b, "- Last task: %s\n", s.LastTask)
	}
	if len(s.KnownSubjects) > 0 {
		fmt.Fprintf(&b, "- Known subjects: %s\n", strings.Join(s.KnownSubjects, ", "))
	}

	subjects := make([]string, 0, len(s.RecentMetrics))
	for subject := range s.RecentMetrics {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	for _, subject := range subjects {
		obs := s.RecentMetrics[subject]
		fmt.Fprintf(&b, "\n### %s\n\n", subject)
		for _, k := range numericOutputs(obs) {
			fmt.Fprintf(&b, "- **%s**: %v\n", k, obs[k])
		}
	}
	return b.String()
}

func statusLabel(s domain.ResultStatus) string {
	if label, ok := statusIcons[s]; ok {
		return label
	}
	return string(s)
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// numericOutputs returns the sorted keys of values that are numbers.
func numericOutputs(m map[string]any) []string {
	var keys []string
	for k, v := range m {
		switch v.(type) {
		case float64, float32, int, int64:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
