package myspot

import "github.com/hampusnasstrom/myspot-analysis/integrate"

// settings holds the configuration accumulated by the fluent methods.
type settings struct {
	points         int
	unit           integrate.Unit
	hotPixelCutoff float64
	workers        int

	subtractBaseline   bool
	baselineSmoothness float64
	baselineAsymmetry  float64

	progress ProgressFunc
}

// ProgressFunc receives progress updates during long operations.
type ProgressFunc func(done, total int, message string)

// DefaultHotPixelCutoff is the count above which a detector pixel is
// treated as hot and zeroed.
const DefaultHotPixelCutoff = 1e5

func defaultSettings() settings {
	return settings{
		points:             integrate.DefaultPoints,
		unit:               integrate.QNanometer,
		hotPixelCutoff:     DefaultHotPixelCutoff,
		workers:            1,
		baselineSmoothness: 1e6,
		baselineAsymmetry:  0.01,
	}
}

func (s settings) clone() settings {
	return s
}

// Points sets the number of radial bins of the integrated patterns.
func (m *Measurement) Points(n int) *Measurement {
	c := m.clone()
	c.options.points = n
	return c
}

// Unit sets the radial unit of the integrated patterns.
func (m *Measurement) Unit(u integrate.Unit) *Measurement {
	c := m.clone()
	c.options.unit = u
	return c
}

// HotPixelCutoff sets the count above which a pixel is zeroed before
// integration.
func (m *Measurement) HotPixelCutoff(v float64) *Measurement {
	c := m.clone()
	c.options.hotPixelCutoff = v
	return c
}

// SubtractBaseline enables asymmetric least squares baseline removal
// on every integrated pattern.
func (m *Measurement) SubtractBaseline() *Measurement {
	c := m.clone()
	c.options.subtractBaseline = true
	return c
}

// BaselineParams overrides the baseline smoothness and asymmetry and
// enables baseline removal.
func (m *Measurement) BaselineParams(smoothness, asymmetry float64) *Measurement {
	c := m.clone()
	c.options.subtractBaseline = true
	c.options.baselineSmoothness = smoothness
	c.options.baselineAsymmetry = asymmetry
	return c
}

// Workers sets the number of frames integrated concurrently.
func (m *Measurement) Workers(n int) *Measurement {
	c := m.clone()
	if n < 1 {
		n = 1
	}
	c.options.workers = n
	return c
}

// Progress installs a callback invoked as frames are integrated.
func (m *Measurement) Progress(fn ProgressFunc) *Measurement {
	c := m.clone()
	c.options.progress = fn
	return c
}
