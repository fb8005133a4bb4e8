package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aretw0/cracklens/pkg/domain"
)

// DefaultRecentMetrics is how many subjects a Snapshot reports metrics for.
const DefaultRecentMetrics = 3

// Snapshot is a compact summary of memory for display and export.
type Snapshot struct {
	LastTask      domain.Task               `json:"last_task,omitempty"`
	KnownSubjects []string                  `json:"known_subjects"`
	RecentMetrics map[string]map[string]any `json:"recent_metrics"`
	Records       int                       `json:"records"`
	Skipped       int                       `json:"skipped,omitempty"`
}

// Snapshot summarizes the current memory.
func (c *Controller) Snapshot() Snapshot {
	recent := c.LastMetrics(DefaultRecentMetrics)

	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		KnownSubjects: []string{},
		RecentMetrics: recent,
		Records:       len(c.records),
		Skipped:       c.skipped,
	}
	if n := len(c.records); n > 0 {
		s.LastTask = c.records[n-1].Context.Task
	}

	seen := map[string]bool{}
	for _, r := range c.records {
		if !seen[r.Subject] {
			seen[r.Subject] = true
			s.KnownSubjects = append(s.KnownSubjects, r.Subject)
		}
	}
	sort.Strings(s.KnownSubjects)
	return s
}

// LastMetrics returns the newest quantify observation of the n most recently
// quantified subjects.
func (c *Controller) LastMetrics(n int) map[string]map[string]any {
	out := map[string]map[string]any{}
	if n <= 0 {
		return out
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.records) - 1; i >= 0 && len(out) < n; i-- {
		r := c.records[i]
		if r.Context.Task != domain.TaskQuantify {
			continue
		}
		if _, ok := out[r.Subject]; ok {
			continue
		}
		out[r.Subject] = r.Clone().Observation
	}
	return out
}

// ExportSnapshot writes the snapshot as indented JSON to path.
func (c *Controller) ExportSnapshot(path string) error {
	data, err := json.MarshalIndent(c.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to ensure snapshot directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
