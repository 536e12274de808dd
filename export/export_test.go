package export

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hampusnasstrom/myspot-analysis/specfile"
)

func TestWritePatterns(t *testing.T) {
	var buf bytes.Buffer
	q := []float64{0.5, 1, 1.5}
	patterns := [][]float64{
		{10, 20, 30},
		nil,
		{1, 2, 3},
	}
	if err := WritePatterns(&buf, q, patterns); err != nil {
		t.Fatalf("WritePatterns: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if lines[0] != ",0.5,1,1.5" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0,10,20,30" {
		t.Errorf("row 0 = %q", lines[1])
	}
	if lines[2] != "1,,," {
		t.Errorf("nil row = %q", lines[2])
	}
	if lines[3] != "2,1,2,3" {
		t.Errorf("row 2 = %q", lines[3])
	}
}

func TestWritePatternsLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := WritePatterns(&buf, []float64{1, 2}, [][]float64{{1, 2, 3}})
	if err == nil {
		t.Error("expected error")
	}
}

func TestWriteMetadata(t *testing.T) {
	scan := &specfile.Scan{
		Columns: []string{"samx", "monitor"},
		Rows:    [][]string{{"0.0", "100"}, {"1.0", "101"}},
	}
	var buf bytes.Buffer
	if err := WriteMetadata(&buf, scan); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != ",samx,monitor" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "1,1.0,101" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestHeatmap(t *testing.T) {
	patterns := [][]float64{
		{0, 1, 2},
		nil,
		{2, math.NaN(), 0},
	}
	img, err := Heatmap(patterns)
	if err != nil {
		t.Fatalf("Heatmap: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 3 || b.Dy() != 3 {
		t.Fatalf("bounds = %v", b)
	}

	// Frame 0 is the bottom row. Its minimum maps to the darkest
	// anchor, its maximum to the brightest.
	if got := img.RGBAAt(0, 2); got != viridisAnchors[0] {
		t.Errorf("min color = %v", got)
	}
	if got := img.RGBAAt(2, 2); got != viridisAnchors[len(viridisAnchors)-1] {
		t.Errorf("max color = %v", got)
	}
	// Missing data is black.
	black := img.RGBAAt(0, 1)
	if black.R != 0 || black.G != 0 || black.B != 0 {
		t.Errorf("nil row color = %v", black)
	}
	nan := img.RGBAAt(1, 0)
	if nan.R != 0 || nan.G != 0 || nan.B != 0 {
		t.Errorf("NaN color = %v", nan)
	}
}

func TestHeatmapNoData(t *testing.T) {
	if _, err := Heatmap(nil); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := Heatmap([][]float64{{math.NaN()}}); err == nil {
		t.Error("expected error for all-NaN input")
	}
}

func TestWriteHeatmapEncodesPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeatmap(&buf, [][]float64{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("WriteHeatmap: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds().Dx() != 2 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestMakeOutputDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sample"), 0o755); err != nil {
		t.Fatal(err)
	}

	dir, err := MakeOutputDir(root, "sample")
	if err != nil {
		t.Fatalf("MakeOutputDir: %v", err)
	}
	if dir != filepath.Join(root, "sample", DirName) {
		t.Errorf("dir = %q", dir)
	}

	if _, err := MakeOutputDir(root, "sample"); err == nil {
		t.Error("expected error for existing output folder")
	}
}

func TestSaveRun(t *testing.T) {
	dir := t.TempDir()
	scan := &specfile.Scan{
		Number:  1,
		Columns: []string{"samx"},
		Rows:    [][]string{{"0.0"}, {"1.0"}},
	}
	q := []float64{1, 2}
	patterns := [][]float64{{5, 6}, {7, 8}}

	if err := SaveRun(dir, "sample", 3, q, patterns, scan); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	for _, name := range []string{
		"sample_run3_patterns.csv",
		"sample_run3_metadata.csv",
		"sample_run3_heatmap.png",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
