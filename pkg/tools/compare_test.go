package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	gt := filepath.Join(dir, "gt.csv")
	pred := filepath.Join(dir, "pred.csv")
	require.NoError(t, os.WriteFile(gt, []byte("Image,Length (mm),Area (mm^2)\na,10,20\nb,20,40\nc,5,\n"), 0644))
	require.NoError(t, os.WriteFile(pred, []byte("Image,Length (mm),Area (mm^2)\na,12,20\nb,18,40\nc,5,10\nd,1,1\n"), 0644))

	res, err := tools.Compare(tools.Deps{})(context.Background(), map[string]any{
		"gt_csv_path":   gt,
		"pred_csv_path": pred,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ResultSuccess, res.Status, res.Error)
	assert.Equal(t, "Comparison completed for 2 images", res.Summary)

	length := res.Outputs["Length (mm)"].(map[string]any)
	assert.Equal(t, 2.0, length[tools.StatMAE])
	assert.Equal(t, 4.0, length[tools.StatMSE])
	assert.Equal(t, 0.84, length[tools.StatR2])
	assert.Equal(t, 15.0, length[tools.StatMAPE])
	assert.Equal(t, 15.0, length[tools.StatRelErr])

	area := res.Outputs["Area (mm^2)"].(map[string]any)
	assert.Equal(t, 0.0, area[tools.StatMAE])
	assert.Equal(t, 1.0, area[tools.StatR2])
}

func TestCompare_DefaultsToLayoutFiles(t *testing.T) {
	layout := testLayout(t.TempDir())
	csv := tools.NewMetricsCSV(layout.PredictedCSV())
	require.NoError(t, csv.Upsert("a", map[string]float64{tools.LabelLength: 9}))
	require.NoError(t, tools.NewMetricsCSV(layout.GroundTruthCSV()).Upsert("a", map[string]float64{tools.LabelLength: 10}))

	res, err := tools.Compare(tools.Deps{Layout: layout})(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.Equal(t, domain.ResultSuccess, res.Status, res.Error)
	assert.Equal(t, 1.0, res.Outputs[tools.LabelLength].(map[string]any)[tools.StatMAE])
}

func TestCompare_Failures(t *testing.T) {
	dir := t.TempDir()
	gt := filepath.Join(dir, "gt.csv")
	pred := filepath.Join(dir, "pred.csv")
	require.NoError(t, os.WriteFile(gt, []byte("Image,Length (mm)\na,10\n"), 0644))

	res, err := tools.Compare(tools.Deps{})(context.Background(), map[string]any{"gt_csv_path": gt, "pred_csv_path": pred})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultError, res.Status)
	assert.Equal(t, "Comparison failed", res.Summary)

	require.NoError(t, os.WriteFile(pred, []byte("Image,Length (mm)\nb,10\n"), 0644))
	res, err = tools.Compare(tools.Deps{})(context.Background(), map[string]any{"gt_csv_path": gt, "pred_csv_path": pred})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultError, res.Status)
	assert.Contains(t, res.Error, "no comparable images")
}

func TestMetricsCSV_Upsert(t *testing.T) {
	csv := tools.NewMetricsCSV(filepath.Join(t.TempDir(), "out", "metrics.csv"))

	require.NoError(t, csv.Upsert("a", map[string]float64{tools.LabelLength: 1}))
	require.NoError(t, csv.Upsert("b", map[string]float64{tools.LabelArea: 2}))
	require.NoError(t, csv.Upsert("a", map[string]float64{tools.LabelLength: 3, tools.LabelArea: 4}))

	rows, err := csv.Rows()
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]string{
		"a": {tools.LabelLength: "3", tools.LabelArea: "4"},
		"b": {tools.LabelLength: "", tools.LabelArea: "2"},
	}, rows)

	data, err := os.ReadFile(csv.Path())
	require.NoError(t, err)
	assert.Equal(t, "Image,Length (mm),Area (mm^2)\nb,,2\na,3,4\n", string(data))
}
