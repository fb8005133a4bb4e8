package tools_test

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/cracklens/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRasterGeometry_Bar(t *testing.T) {
	dir := t.TempDir()
	mask := filepath.Join(dir, "bar.png")
	writeGray(t, mask, barMask(30, 11, 3))

	m, err := tools.RasterGeometry{}.Measure(context.Background(), tools.MeasureRequest{
		MaskPath:  mask,
		Subject:   "bar",
		Visuals:   []string{"skeleton", "normals", "max_width"},
		OutputDir: filepath.Join(dir, "visuals"),
	})
	require.NoError(t, err)

	assert.Equal(t, 90.0, m.AreaPx)
	assert.Greater(t, m.LengthPx, 20.0)
	assert.LessOrEqual(t, m.LengthPx, 30.0)
	assert.InDelta(t, m.AreaPx/m.LengthPx, m.AvgWidthPx, 0.01)
	assert.InDelta(t, 3.0, m.MaxWidthPx, 0.01)

	require.Len(t, m.Overlays, 3)
	for layer, p := range m.Overlays {
		assert.Equal(t, filepath.Join(dir, "visuals", "bar_"+layer+".png"), p)
		f, err := os.Open(p)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(f)
		require.NoError(t, err)
		require.NoError(t, f.Close())
		assert.Equal(t, 30, cfg.Width)
	}
}

func TestRasterGeometry_EmptyMask(t *testing.T) {
	mask := filepath.Join(t.TempDir(), "empty.png")
	writeGray(t, mask, image.NewGray(image.Rect(0, 0, 5, 5)))

	m, err := tools.RasterGeometry{}.Measure(context.Background(), tools.MeasureRequest{MaskPath: mask})
	require.NoError(t, err)
	assert.Zero(t, m.AreaPx)
	assert.Zero(t, m.LengthPx)
	assert.Zero(t, m.AvgWidthPx)
	assert.Zero(t, m.MaxWidthPx)
}

func TestRasterGeometry_UnknownLayer(t *testing.T) {
	dir := t.TempDir()
	mask := filepath.Join(dir, "bar.png")
	writeGray(t, mask, barMask(10, 5, 1))

	_, err := tools.RasterGeometry{}.Measure(context.Background(), tools.MeasureRequest{
		MaskPath: mask, Subject: "bar", Visuals: []string{"heatmap"}, OutputDir: dir,
	})
	assert.Error(t, err)
}

func TestThresholdSegmenter(t *testing.T) {
	dir := t.TempDir()
	src := image.NewGray(image.Rect(0, 0, 6, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			src.SetGray(x, y, color.Gray{Y: 230})
		}
	}
	for x := 0; x < 6; x++ {
		src.SetGray(x, 3, color.Gray{Y: 20})
	}
	in := filepath.Join(dir, "in.png")
	writeGray(t, in, src)
	out := filepath.Join(dir, "masks", "in.png")

	require.NoError(t, tools.ThresholdSegmenter{}.Segment(context.Background(), in, out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	gray := color.GrayModel.Convert(img.At(2, 3)).(color.Gray)
	assert.Equal(t, uint8(255), gray.Y)
	gray = color.GrayModel.Convert(img.At(2, 1)).(color.Gray)
	assert.Equal(t, uint8(0), gray.Y)
}
