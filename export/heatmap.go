package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

// viridis colormap anchors, interpolated linearly in between.
var viridisAnchors = []color.RGBA{
	{68, 1, 84, 255},
	{72, 40, 120, 255},
	{62, 74, 137, 255},
	{49, 104, 142, 255},
	{38, 130, 142, 255},
	{31, 158, 137, 255},
	{53, 183, 121, 255},
	{109, 205, 89, 255},
	{180, 222, 44, 255},
	{253, 231, 37, 255},
}

// viridis maps t in [0, 1] to a colormap entry.
func viridis(t float64) color.RGBA {
	if math.IsNaN(t) {
		return color.RGBA{0, 0, 0, 255}
	}
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(viridisAnchors)-1)
	lo := int(pos)
	if lo >= len(viridisAnchors)-1 {
		return viridisAnchors[len(viridisAnchors)-1]
	}
	f := pos - float64(lo)
	a, b := viridisAnchors[lo], viridisAnchors[lo+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + f*(float64(y)-float64(x)))
	}
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 255}
}

// Heatmap renders a run's patterns as a false-color image, one row per
// frame with frame 0 at the bottom, intensity normalized over all
// finite values. Missing frames (nil patterns) and NaN bins are black.
func Heatmap(patterns [][]float64) (*image.RGBA, error) {
	height := len(patterns)
	width := 0
	for _, p := range patterns {
		if len(p) > width {
			width = len(p)
		}
	}
	if height == 0 || width == 0 {
		return nil, fmt.Errorf("no data to render")
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range patterns {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo > hi {
		return nil, fmt.Errorf("no finite values to render")
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y, p := range patterns {
		for x := 0; x < width; x++ {
			t := math.NaN()
			if x < len(p) {
				v := p[x]
				if !math.IsNaN(v) && !math.IsInf(v, 0) {
					t = (v - lo) / span
				}
			}
			img.SetRGBA(x, height-1-y, viridis(t))
		}
	}
	return img, nil
}

// WriteHeatmap encodes the heatmap of a run as PNG.
func WriteHeatmap(w io.Writer, patterns [][]float64) error {
	img, err := Heatmap(patterns)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
