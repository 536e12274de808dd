package integrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/hampusnasstrom/myspot-analysis/frame"
	"github.com/hampusnasstrom/myspot-analysis/pattern"
	"github.com/hampusnasstrom/myspot-analysis/poni"
)

// DefaultPoints is the number of radial bins used when none is set.
const DefaultPoints = 3000

// Integrator turns detector frames into 1D patterns for a fixed
// geometry. Mask and Flatfield, when set, must match the frame shape:
// nonzero mask pixels are excluded, flatfield values divide the signal
// through the normalization. An Integrator caches its pixel maps and
// is safe for concurrent Integrate1D calls once the first call has
// completed, or after a Prepare call for the frame shape.
type Integrator struct {
	Geometry  *poni.Geometry
	Unit      Unit
	Points    int
	Mask      *frame.Frame
	Flatfield *frame.Frame

	maps *pixelMaps
}

// New returns an Integrator for the given geometry with default
// settings.
func New(g *poni.Geometry) *Integrator {
	return &Integrator{Geometry: g, Points: DefaultPoints}
}

// Prepare computes and caches the pixel maps for a detector shape.
func (it *Integrator) Prepare(width, height int) {
	if it.maps == nil || it.maps.width != width || it.maps.height != height {
		it.maps = computeMaps(it.Geometry, width, height, it.Unit)
	}
}

// Integrate1D azimuthally integrates one frame. Pixels with a
// non-finite value or a nonzero mask entry are skipped; radial bins
// that receive no pixels are NaN in the result.
func (it *Integrator) Integrate1D(f *frame.Frame) (*pattern.Pattern, error) {
	if it.Mask != nil && (it.Mask.Width != f.Width || it.Mask.Height != f.Height) {
		return nil, fmt.Errorf("mask shape %dx%d does not match frame %dx%d",
			it.Mask.Width, it.Mask.Height, f.Width, f.Height)
	}
	if it.Flatfield != nil && (it.Flatfield.Width != f.Width || it.Flatfield.Height != f.Height) {
		return nil, fmt.Errorf("flatfield shape %dx%d does not match frame %dx%d",
			it.Flatfield.Width, it.Flatfield.Height, f.Width, f.Height)
	}
	it.Prepare(f.Width, f.Height)

	npt := it.Points
	if npt <= 0 {
		npt = DefaultPoints
	}

	lo, hi, ok := it.radialRange()
	if !ok {
		return nil, fmt.Errorf("all %d pixels are masked", f.Len())
	}
	span := hi - lo
	if span == 0 {
		return nil, fmt.Errorf("degenerate radial range at %g", lo)
	}

	sumSig := make([]float64, npt)
	sumNorm := make([]float64, npt)
	counts := make([]int, npt)
	for idx, v := range f.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if it.Mask != nil && it.Mask.Data[idx] != 0 {
			continue
		}
		norm := it.maps.solid[idx]
		if it.Flatfield != nil {
			norm *= it.Flatfield.Data[idx]
		}
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			continue
		}
		bin := int(float64(npt) * (it.maps.radial[idx] - lo) / span)
		if bin == npt {
			bin = npt - 1
		}
		sumSig[bin] += v
		sumNorm[bin] += norm
		counts[bin]++
	}

	p := &pattern.Pattern{
		Q:     make([]float64, npt),
		I:     make([]float64, npt),
		Count: counts,
	}
	// Bin centers.
	if npt == 1 {
		p.Q[0] = lo + span/2
	} else {
		floats.Span(p.Q, lo+span/(2*float64(npt)), hi-span/(2*float64(npt)))
	}
	for i := 0; i < npt; i++ {
		if sumNorm[i] > 0 {
			p.I[i] = sumSig[i] / sumNorm[i]
		} else {
			p.I[i] = math.NaN()
		}
	}
	return p, nil
}

// radialRange finds the radial extent over unmasked pixels.
func (it *Integrator) radialRange() (lo, hi float64, ok bool) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for idx, r := range it.maps.radial {
		if it.Mask != nil && it.Mask.Data[idx] != 0 {
			continue
		}
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	return lo, hi, lo <= hi
}
