// Package myspot provides a fluent API for reducing X-ray scattering
// measurements recorded at the mySpot beamline: it reads the SPEC scan
// log, detector calibration and correction files of a measurement and
// azimuthally integrates the Eiger detector frames of each run into 1D
// patterns.
//
// Basic usage:
//
//	results, err := myspot.Open("/messung/2020-10-13", "sample").
//	    IntegrateAll(ctx)
//	if err != nil {
//	    // handle error
//	}
//
// With options:
//
//	result, err := myspot.Open(root, "sample").
//	    Points(2000).
//	    Workers(8).
//	    SubtractBaseline().
//	    IntegrateRun(ctx, 3)
//
// For lower-level access the specfile, hdf5, edf, frame and integrate
// packages are also available.
package myspot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hampusnasstrom/myspot-analysis/edf"
	"github.com/hampusnasstrom/myspot-analysis/frame"
	"github.com/hampusnasstrom/myspot-analysis/integrate"
	"github.com/hampusnasstrom/myspot-analysis/poni"
	"github.com/hampusnasstrom/myspot-analysis/specfile"
)

// Measurement is a handle on one measurement directory, configured
// fluently and consumed by a terminal operation such as IntegrateRun
// or IntegrateAll. Calibration and log files are loaded lazily on the
// first terminal call.
type Measurement struct {
	root string
	name string

	options settings

	loaded     bool
	spec       *specfile.File
	integrator *integrate.Integrator
}

// Open points at the measurement directory <root>/<name>. The
// directory must hold <name>.poni and <name>.spec; <name>_mask.edf and
// <name>_flatfield.tiff are picked up when present.
func Open(root, name string) *Measurement {
	return &Measurement{
		root:    root,
		name:    name,
		options: defaultSettings(),
	}
}

// Must panics on a non-nil error. It is intended for scripts and tests
// where error handling would be cumbersome.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// Dir returns the measurement directory.
func (m *Measurement) Dir() string {
	return filepath.Join(m.root, m.name)
}

// clone backs the fluent option methods. The loaded state is dropped
// so that options changed after a terminal call rebuild the integrator
// instead of reusing one configured with the old settings.
func (m *Measurement) clone() *Measurement {
	c := *m
	c.options = m.options.clone()
	c.loaded = false
	c.spec = nil
	c.integrator = nil
	return &c
}

// ensureLoaded reads the scan log and calibration files and builds the
// integrator. Mask and flatfield are optional; everything else is
// required.
func (m *Measurement) ensureLoaded() error {
	if m.loaded {
		return nil
	}
	dir := m.Dir()

	geom, err := poni.Load(filepath.Join(dir, m.name+".poni"))
	if err != nil {
		return fmt.Errorf("loading calibration: %w", err)
	}

	spec, err := specfile.Load(filepath.Join(dir, m.name+".spec"))
	if err != nil {
		return fmt.Errorf("loading scan log: %w", err)
	}

	it := integrate.New(geom)
	it.Points = m.options.points
	it.Unit = m.options.unit

	mask, err := edf.Load(filepath.Join(dir, m.name+"_mask.edf"))
	switch {
	case err == nil:
		it.Mask = mask
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("loading mask: %w", err)
	}

	flat, err := frame.LoadTIFF(filepath.Join(dir, m.name+"_flatfield.tiff"))
	switch {
	case err == nil:
		// Dead or shadowed flatfield pixels read out far above the
		// real gain; reset them to unit gain.
		flat.SetAbove(flatfieldCutoff, 1)
		it.Flatfield = flat
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("loading flatfield: %w", err)
	}

	m.spec = spec
	m.integrator = it
	m.loaded = true
	return nil
}

const flatfieldCutoff = 1000
