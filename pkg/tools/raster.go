package tools

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/aretw0/cracklens/pkg/domain"
)

// DefaultDarkThreshold is the gray level below which ThresholdSegmenter marks a crack.
const DefaultDarkThreshold = 90

// ThresholdSegmenter marks dark pixels as cracks. It is a model-free stand-in for a
// trained segmenter, good enough for clean, high-contrast surfaces.
type ThresholdSegmenter struct {
	// Threshold is the gray level (0-255) below which a pixel is a crack.
	Threshold uint8
}

// Segment implements Segmenter.
func (s ThresholdSegmenter) Segment(ctx context.Context, imagePath, maskPath string) error {
	img, err := readImage(imagePath)
	if err != nil {
		return err
	}
	threshold := s.Threshold
	if threshold == 0 {
		threshold = DefaultDarkThreshold
	}

	b := img.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < threshold {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return writePNG(maskPath, mask)
}

// RasterGeometry measures binary crack masks in process.
//
// Length is the skeleton pixel count, average width is area over length and maximum
// width is the widest span across a skeleton pixel, from its chamfer distance
// to the background.
type RasterGeometry struct{}

// Measure implements Geometry.
func (RasterGeometry) Measure(ctx context.Context, req MeasureRequest) (Measurement, error) {
	img, err := readImage(req.MaskPath)
	if err != nil {
		return Measurement{}, err
	}
	grid := binarize(img)
	skel := grid.skeleton()
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}
	dist := grid.distance()

	var m Measurement
	m.AreaPx = float64(grid.count())
	m.LengthPx = float64(skel.count())
	if m.LengthPx > 0 {
		m.AvgWidthPx = round(m.AreaPx/m.LengthPx, 2)
	}
	widest := image.Point{-1, -1}
	for i, on := range skel.px {
		// The skeleton pixel itself counts once.
		if w := 2*dist[i] - 1; on && w > m.MaxWidthPx {
			m.MaxWidthPx = w
			widest = image.Point{i % skel.w, i / skel.w}
		}
	}
	m.MaxWidthPx = round(m.MaxWidthPx, 2)

	if len(req.Visuals) == 0 {
		return m, nil
	}
	m.Overlays = make(map[string]string, len(req.Visuals))
	for _, layer := range req.Visuals {
		var out *image.RGBA
		switch layer {
		case domain.LayerSkeleton:
			out = overlay(grid, skel, color.RGBA{R: 255, A: 255})
		case domain.LayerNormals:
			out = overlay(grid, skel, color.RGBA{B: 255, A: 255})
			drawNormals(out, skel, dist)
		case domain.LayerMaxWidth:
			out = overlay(grid, skel, color.RGBA{G: 200, A: 255})
			if widest.X >= 0 {
				drawCircle(out, widest, m.MaxWidthPx/2, color.RGBA{R: 255, A: 255})
			}
		default:
			return Measurement{}, fmt.Errorf("unknown overlay layer %q", layer)
		}
		path := filepath.Join(req.OutputDir, req.Subject+"_"+layer+".png")
		if err := writePNG(path, out); err != nil {
			return Measurement{}, err
		}
		m.Overlays[layer] = path
	}
	return m, nil
}

// bitmap is a binary raster, row-major.
type bitmap struct {
	w, h int
	px   []bool
}

func binarize(img image.Image) *bitmap {
	b := img.Bounds()
	bm := &bitmap{w: b.Dx(), h: b.Dy(), px: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < bm.h; y++ {
		for x := 0; x < bm.w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			bm.px[y*bm.w+x] = g.Y > 127
		}
	}
	return bm
}

func (b *bitmap) at(x, y int) bool {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return false
	}
	return b.px[y*b.w+x]
}

func (b *bitmap) count() int {
	n := 0
	for _, on := range b.px {
		if on {
			n++
		}
	}
	return n
}

// skeleton thins the foreground to one pixel wide lines (Zhang-Suen).
func (b *bitmap) skeleton() *bitmap {
	s := &bitmap{w: b.w, h: b.h, px: append([]bool(nil), b.px...)}
	for {
		changed := false
		for pass := 0; pass < 2; pass++ {
			var clear []int
			for y := 0; y < s.h; y++ {
				for x := 0; x < s.w; x++ {
					if !s.at(x, y) {
						continue
					}
					// Neighbours clockwise from north.
					n := [8]bool{
						s.at(x, y-1), s.at(x+1, y-1), s.at(x+1, y), s.at(x+1, y+1),
						s.at(x, y+1), s.at(x-1, y+1), s.at(x-1, y), s.at(x-1, y-1),
					}
					count, transitions := 0, 0
					for i := 0; i < 8; i++ {
						if n[i] {
							count++
						}
						if !n[i] && n[(i+1)%8] {
							transitions++
						}
					}
					if count < 2 || count > 6 || transitions != 1 {
						continue
					}
					if pass == 0 && (n[0] && n[2] && n[4] || n[2] && n[4] && n[6]) {
						continue
					}
					if pass == 1 && (n[0] && n[2] && n[6] || n[0] && n[4] && n[6]) {
						continue
					}
					clear = append(clear, y*s.w+x)
				}
			}
			for _, i := range clear {
				s.px[i] = false
			}
			changed = changed || len(clear) > 0
		}
		if !changed {
			return s
		}
	}
}

// distance returns, per pixel, the chamfer (3-4) distance to the nearest background
// pixel, in pixels. Pixels outside the raster count as background.
func (b *bitmap) distance() []float64 {
	const straight, diagonal = 3, 4
	inf := math.MaxInt32 / 2
	d := make([]int, len(b.px))
	for i, on := range b.px {
		if on {
			d[i] = inf
		}
	}
	get := func(x, y int) int {
		if x < 0 || y < 0 || x >= b.w || y >= b.h {
			return 0
		}
		return d[y*b.w+x]
	}
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			i := y*b.w + x
			if d[i] == 0 {
				continue
			}
			d[i] = min(d[i], get(x-1, y)+straight, get(x, y-1)+straight, get(x-1, y-1)+diagonal, get(x+1, y-1)+diagonal)
		}
	}
	for y := b.h - 1; y >= 0; y-- {
		for x := b.w - 1; x >= 0; x-- {
			i := y*b.w + x
			if d[i] == 0 {
				continue
			}
			d[i] = min(d[i], get(x+1, y)+straight, get(x, y+1)+straight, get(x+1, y+1)+diagonal, get(x-1, y+1)+diagonal)
		}
	}
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = float64(v) / straight
	}
	return out
}

// overlay draws the mask in gray and the skeleton in c.
func overlay(mask, skel *bitmap, c color.RGBA) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, mask.w, mask.h))
	for y := 0; y < mask.h; y++ {
		for x := 0; x < mask.w; x++ {
			switch {
			case skel.at(x, y):
				out.SetRGBA(x, y, c)
			case mask.at(x, y):
				out.SetRGBA(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
			default:
				out.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return out
}

// drawNormals marks the local half width across every skeleton pixel.
func drawNormals(out *image.RGBA, skel *bitmap, dist []float64) {
	tick := color.RGBA{R: 255, G: 255, A: 255}
	for i, on := range skel.px {
		if !on {
			continue
		}
		x, y := i%skel.w, i/skel.w
		dx, dy := 0, 1
		if skel.at(x, y-1) || skel.at(x, y+1) {
			dx, dy = 1, 0
		}
		r := int(math.Round(dist[i]))
		for k := -r; k <= r; k++ {
			px, py := x+k*dx, y+k*dy
			if image.Pt(px, py).In(out.Rect) && !skel.at(px, py) {
				out.SetRGBA(px, py, tick)
			}
		}
	}
}

func drawCircle(out *image.RGBA, center image.Point, radius float64, c color.RGBA) {
	r := math.Max(radius, 1)
	for a := 0.0; a < 2*math.Pi; a += 1 / (2 * r) {
		p := image.Pt(center.X+int(math.Round(r*math.Cos(a))), center.Y+int(math.Round(r*math.Sin(a))))
		if p.In(out.Rect) {
			out.SetRGBA(p.X, p.Y, c)
		}
	}
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to ensure image directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
