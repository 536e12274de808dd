package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hampusnasstrom/myspot-analysis/integrate"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "myspot.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, integrate.DefaultPoints, cfg.Points)
	assert.Equal(t, integrate.QNanometer, cfg.Unit)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.Baseline)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
points = 2000
unit = "2th_deg"
workers = 8
hot_pixel_cutoff = 5e4
baseline = true
baseline_smoothness = 1e5
baseline_asymmetry = 0.05
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Points)
	assert.Equal(t, integrate.TwoThetaDegrees, cfg.Unit)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 5e4, cfg.HotPixelCutoff)
	assert.True(t, cfg.Baseline)
	assert.Equal(t, 1e5, cfg.BaselineSmoothness)
	assert.Equal(t, 0.05, cfg.BaselineAsymmetry)
}

func TestLoadConfigPartial(t *testing.T) {
	path := writeConfig(t, `points = 100`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Points)
	// Untouched keys keep their defaults.
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 1e6, cfg.BaselineSmoothness)
}

func TestLoadConfigInvalid(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"zero points", `points = 0`},
		{"zero workers", `workers = 0`},
		{"bad unit", `unit = "furlongs"`},
		{"bad toml", `points = `},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tc.text))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestParseUnit(t *testing.T) {
	cases := map[string]integrate.Unit{
		"q_nm^-1": integrate.QNanometer,
		"Q_NM":    integrate.QNanometer,
		"q_A^-1":  integrate.QAngstrom,
		"2th_deg": integrate.TwoThetaDegrees,
		"2theta":  integrate.TwoThetaDegrees,
	}
	for in, want := range cases {
		got, err := parseUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseUnit("bogus")
	assert.Error(t, err)
}
