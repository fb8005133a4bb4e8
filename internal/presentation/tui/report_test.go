package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/memory"
	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	results := []domain.StepResult{
		{
			Tool:     domain.ToolQuantify,
			Subject:  "img01",
			Status:   domain.ResultSuccess,
			Summary:  "Measured img01",
			Duration: 1500 * time.Millisecond,
			Outputs: map[string]any{
				"Length (mm)": 12.5,
				"mask_path":   "outputs/masks/img01.png",
			},
			Visualizations: map[string]string{"skeleton_overlay": "outputs/visuals/img01_skeleton.png"},
		},
		{
			Tool:    "missing_tool",
			Status:  domain.ResultError,
			Summary: "tool not registered: missing_tool",
			Error:   "tool not registered | missing_tool",
		},
	}

	out := Report(results)
	assert.Contains(t, out, "| 1 | `quantify_crack_geometry` | img01 | ok | 1.5s | Measured img01 |")
	assert.Contains(t, out, "| 2 | `missing_tool` | - | FAILED |")
	assert.Contains(t, out, "- **Length (mm)**: 12.5")
	assert.NotContains(t, out, "**mask_path**")
	assert.Contains(t, out, "- skeleton_overlay: `outputs/visuals/img01_skeleton.png`")
	assert.Contains(t, out, "### Step 2 failed")
}

func TestReportEmpty(t *testing.T) {
	assert.Contains(t, Report(nil), "_Nothing to do._")
}

func TestSnapshotReport(t *testing.T) {
	out := SnapshotReport(memory.Snapshot{
		LastTask:      domain.TaskQuantify,
		KnownSubjects: []string{"img01", "img02"},
		RecentMetrics: map[string]map[string]any{
			"img02": {"Area (mm^2)": 3.25},
			"img01": {"Length (mm)": 10.0},
		},
		Records: 4,
	})
	assert.Contains(t, out, "- Records: 4")
	assert.Contains(t, out, "- Known subjects: img01, img02")
	assert.Less(t, strings.Index(out, "### img01"), strings.Index(out, "### img02"))
	assert.Contains(t, out, "- **Area (mm^2)**: 3.25")
	assert.NotContains(t, out, "Skipped")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")
	assert.Contains(t, buf.String(), "v0.1.0")
}

func TestPlainRenderer(t *testing.T) {
	out, err := Plain("# title")
	assert.NoError(t, err)
	assert.Equal(t, "# title", out)
}
