// Package pattern holds 1D scattering patterns and the numeric
// routines applied to them: asymmetric least squares baseline
// estimation and Gaussian peak fitting.
package pattern

import "math"

// Pattern is a 1D scattering pattern: intensity I over the radial
// coordinate Q, with the number of pixels that fell into each bin in
// Count. All slices have equal length; empty radial bins carry NaN
// intensity and count 0.
type Pattern struct {
	Q     []float64
	I     []float64
	Count []int
}

// Len returns the number of points.
func (p *Pattern) Len() int { return len(p.Q) }

// Clone returns a deep copy.
func (p *Pattern) Clone() *Pattern {
	c := &Pattern{
		Q: make([]float64, len(p.Q)),
		I: make([]float64, len(p.I)),
	}
	copy(c.Q, p.Q)
	copy(c.I, p.I)
	if p.Count != nil {
		c.Count = make([]int, len(p.Count))
		copy(c.Count, p.Count)
	}
	return c
}

// Subtract returns a new pattern with bgr subtracted point-wise from
// the intensity. Subtract panics if the lengths differ.
func (p *Pattern) Subtract(bgr []float64) *Pattern {
	if len(bgr) != len(p.I) {
		panic("pattern: background length mismatch")
	}
	c := p.Clone()
	for i, b := range bgr {
		c.I[i] -= b
	}
	return c
}

// Peak returns the radial position and intensity of the highest
// non-NaN point, or NaNs for an all-NaN pattern.
func (p *Pattern) Peak() (q, i float64) {
	q, i = math.NaN(), math.NaN()
	for k, v := range p.I {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(i) || v > i {
			q, i = p.Q[k], v
		}
	}
	return q, i
}
