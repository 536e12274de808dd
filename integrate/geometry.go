package integrate

import (
	"math"

	"github.com/hampusnasstrom/myspot-analysis/poni"
)

// Unit selects the radial coordinate of integrated patterns.
type Unit int

const (
	// QNanometer is momentum transfer in inverse nanometers.
	QNanometer Unit = iota
	// QAngstrom is momentum transfer in inverse angstroms.
	QAngstrom
	// TwoThetaDegrees is the scattering angle in degrees.
	TwoThetaDegrees
)

func (u Unit) String() string {
	switch u {
	case QNanometer:
		return "q_nm^-1"
	case QAngstrom:
		return "q_A^-1"
	case TwoThetaDegrees:
		return "2th_deg"
	}
	return "unknown"
}

// pixelMaps holds the per-pixel radial coordinate and solid angle for
// one detector shape.
type pixelMaps struct {
	width  int
	height int
	radial []float64
	solid  []float64
}

// computeMaps evaluates the scattering angle of every pixel center.
// Pixel (i, j) sits at p1 = (i+0.5)*pixelSize1 - poni1 along the slow
// axis and p2 = (j+0.5)*pixelSize2 - poni2 along the fast axis, at
// distance L from the sample. The three detector rotations tilt that
// plane before the angle is taken:
//
//	t1 = p1*c2*c3 + p2*(c3*s1*s2 - c1*s3) - L*(c1*c3*s2 + s1*s3)
//	t2 = p1*c2*s3 + p2*(c1*c3 + s1*s2*s3) - L*(-c3*s1 + c1*s2*s3)
//	t3 = -p1*s2 + p2*c2*s1 + L*c1*c2
//	2theta = atan2(sqrt(t1^2+t2^2), t3)
//
// The solid angle subtended by a pixel falls off as cos^3(2theta);
// the constant pixel-area/L^2 factor cancels in the normalization.
func computeMaps(g *poni.Geometry, width, height int, unit Unit) *pixelMaps {
	c1, s1 := math.Cos(g.Rot1), math.Sin(g.Rot1)
	c2, s2 := math.Cos(g.Rot2), math.Sin(g.Rot2)
	c3, s3 := math.Cos(g.Rot3), math.Sin(g.Rot3)
	dist := g.Distance

	m := &pixelMaps{
		width:  width,
		height: height,
		radial: make([]float64, width*height),
		solid:  make([]float64, width*height),
	}
	for i := 0; i < height; i++ {
		p1 := (float64(i)+0.5)*g.PixelSize1 - g.Poni1
		for j := 0; j < width; j++ {
			p2 := (float64(j)+0.5)*g.PixelSize2 - g.Poni2

			t1 := p1*c2*c3 + p2*(c3*s1*s2-c1*s3) - dist*(c1*c3*s2+s1*s3)
			t2 := p1*c2*s3 + p2*(c1*c3+s1*s2*s3) - dist*(-c3*s1+c1*s2*s3)
			t3 := -p1*s2 + p2*c2*s1 + dist*c1*c2

			tth := math.Atan2(math.Hypot(t1, t2), t3)
			idx := i*width + j
			m.radial[idx] = radialFromAngle(tth, g.Wavelength, unit)
			c := math.Cos(tth)
			m.solid[idx] = c * c * c
		}
	}
	return m
}

// radialFromAngle converts a scattering angle to the requested radial
// unit. Wavelength is in meters.
func radialFromAngle(tth, wavelength float64, unit Unit) float64 {
	switch unit {
	case QAngstrom:
		return 4 * math.Pi * math.Sin(tth/2) / (wavelength * 1e10)
	case TwoThetaDegrees:
		return tth * 180 / math.Pi
	default:
		return 4 * math.Pi * math.Sin(tth/2) / (wavelength * 1e9)
	}
}
