package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hampusnasstrom/myspot-analysis/integrate"
)

// Config holds the integration settings shared by the subcommands.
type Config struct {
	Points             int
	Unit               integrate.Unit
	Workers            int
	HotPixelCutoff     float64
	Baseline           bool
	BaselineSmoothness float64
	BaselineAsymmetry  float64
}

func defaultConfig() Config {
	return Config{
		Points:             integrate.DefaultPoints,
		Unit:               integrate.QNanometer,
		Workers:            4,
		HotPixelCutoff:     1e5,
		BaselineSmoothness: 1e6,
		BaselineAsymmetry:  0.01,
	}
}

type fileConfig struct {
	Points             int     `toml:"points"`
	Unit               string  `toml:"unit"`
	Workers            int     `toml:"workers"`
	HotPixelCutoff     float64 `toml:"hot_pixel_cutoff"`
	Baseline           bool    `toml:"baseline"`
	BaselineSmoothness float64 `toml:"baseline_smoothness"`
	BaselineAsymmetry  float64 `toml:"baseline_asymmetry"`
}

// loadConfig returns the defaults, overridden by the TOML file at path
// when one is given.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("points") {
		if raw.Points <= 0 {
			return Config{}, fmt.Errorf("config: points must be positive, got %d", raw.Points)
		}
		cfg.Points = raw.Points
	}
	if meta.IsDefined("unit") {
		u, err := parseUnit(raw.Unit)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		cfg.Unit = u
	}
	if meta.IsDefined("workers") {
		if raw.Workers < 1 {
			return Config{}, fmt.Errorf("config: workers must be at least 1, got %d", raw.Workers)
		}
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("hot_pixel_cutoff") {
		cfg.HotPixelCutoff = raw.HotPixelCutoff
	}
	if meta.IsDefined("baseline") {
		cfg.Baseline = raw.Baseline
	}
	if meta.IsDefined("baseline_smoothness") {
		cfg.BaselineSmoothness = raw.BaselineSmoothness
	}
	if meta.IsDefined("baseline_asymmetry") {
		cfg.BaselineAsymmetry = raw.BaselineAsymmetry
	}
	return cfg, nil
}

func parseUnit(s string) (integrate.Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "q_nm^-1", "q_nm":
		return integrate.QNanometer, nil
	case "q_a^-1", "q_a":
		return integrate.QAngstrom, nil
	case "2th_deg", "2theta":
		return integrate.TwoThetaDegrees, nil
	}
	return 0, fmt.Errorf("unknown unit %q", s)
}
