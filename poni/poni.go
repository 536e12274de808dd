// Package poni reads pyFAI PONI calibration files. A PONI file stores
// the detector geometry of an azimuthal integration setup: the point of
// normal incidence on the detector, the sample-detector distance, three
// detector rotations and the beam wavelength, all in SI units.
package poni

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Geometry is a detector geometry. Distances and pixel sizes are in
// meters, rotations in radians, wavelength in meters.
type Geometry struct {
	Detector   string
	Distance   float64
	Poni1      float64
	Poni2      float64
	Rot1       float64
	Rot2       float64
	Rot3       float64
	Wavelength float64
	PixelSize1 float64
	PixelSize2 float64
}

// PONI files are `key: value` lines with `#` comments, which is valid
// YAML. Version 1 stores pixel sizes at the top level, version 2 moves
// them into a Detector_config flow mapping.
type poniFile struct {
	Version        int            `yaml:"poni_version"`
	Detector       string         `yaml:"Detector"`
	DetectorConfig detectorConfig `yaml:"Detector_config"`
	Distance       float64        `yaml:"Distance"`
	Poni1          float64        `yaml:"Poni1"`
	Poni2          float64        `yaml:"Poni2"`
	Rot1           float64        `yaml:"Rot1"`
	Rot2           float64        `yaml:"Rot2"`
	Rot3           float64        `yaml:"Rot3"`
	Wavelength     float64        `yaml:"Wavelength"`
	PixelSize1     float64        `yaml:"PixelSize1"`
	PixelSize2     float64        `yaml:"PixelSize2"`
}

type detectorConfig struct {
	Pixel1 float64 `yaml:"pixel1"`
	Pixel2 float64 `yaml:"pixel2"`
}

// Load reads a PONI file from disk.
func Load(path string) (*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes PONI file contents.
func Parse(data []byte) (*Geometry, error) {
	var pf poniFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing poni file: %w", err)
	}

	g := &Geometry{
		Detector:   pf.Detector,
		Distance:   pf.Distance,
		Poni1:      pf.Poni1,
		Poni2:      pf.Poni2,
		Rot1:       pf.Rot1,
		Rot2:       pf.Rot2,
		Rot3:       pf.Rot3,
		Wavelength: pf.Wavelength,
		PixelSize1: pf.PixelSize1,
		PixelSize2: pf.PixelSize2,
	}
	if pf.DetectorConfig.Pixel1 != 0 {
		g.PixelSize1 = pf.DetectorConfig.Pixel1
	}
	if pf.DetectorConfig.Pixel2 != 0 {
		g.PixelSize2 = pf.DetectorConfig.Pixel2
	}

	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Geometry) validate() error {
	switch {
	case g.Distance <= 0:
		return fmt.Errorf("invalid sample-detector distance %g", g.Distance)
	case g.Wavelength <= 0:
		return fmt.Errorf("invalid wavelength %g", g.Wavelength)
	case g.PixelSize1 <= 0 || g.PixelSize2 <= 0:
		return fmt.Errorf("invalid pixel size %g x %g", g.PixelSize1, g.PixelSize2)
	}
	return nil
}
