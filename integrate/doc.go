// Package integrate performs azimuthal integration of 2D detector
// frames into 1D scattering patterns. Pixel positions are derived from
// a PONI calibration geometry, converted to a radial coordinate
// (momentum transfer q or scattering angle 2theta) and histogrammed
// with solid-angle and flatfield normalization.
package integrate
