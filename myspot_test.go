package myspot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hampusnasstrom/myspot-analysis/frame"
	"github.com/hampusnasstrom/myspot-analysis/integrate"
)

const testPoni = `poni_version: 2
Detector: Eiger9M
Detector_config: {"pixel1": 7.5e-05, "pixel2": 7.5e-05}
Distance: 0.2387
Poni1: 0.1624
Poni2: 0.1132
Rot1: 0
Rot2: 0
Rot3: 0
Wavelength: 8.2656e-11
`

const testSpec = `#F /messung/sample.spec
#E 1602620263
#D Tue Oct 13 21:37:43 2020
#O0 samx samy

#S 1 loopscan 2 0.1
#D Tue Oct 13 21:40:00 2020
#L Time monitor
0.0 10000
0.1 10010

#S 2 ascan samx 0 1 1 1
#D Tue Oct 13 21:45:00 2020
#L samx monitor eiger_data_filename first_image_Nr
0.0 10023 sample_000001 1
1.0 10120 sample_000001 2
`

// newMeasurementDir lays out <root>/sample with calibration and scan
// log but no detector frames.
func newMeasurementDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "sample")
	if err := os.MkdirAll(filepath.Join(dir, "eiger"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sample.poni"), []byte(testPoni), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sample.spec"), []byte(testSpec), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestOptionsDoNotMutateReceiver(t *testing.T) {
	m := Open("/data", "sample")
	m2 := m.Points(500).Workers(4).Unit(integrate.TwoThetaDegrees).SubtractBaseline()

	if m.options.points != integrate.DefaultPoints {
		t.Error("Points mutated the receiver")
	}
	if m.options.subtractBaseline {
		t.Error("SubtractBaseline mutated the receiver")
	}
	if m2.options.points != 500 || m2.options.workers != 4 {
		t.Errorf("options = %+v", m2.options)
	}
	if m2.options.unit != integrate.TwoThetaDegrees {
		t.Errorf("unit = %v", m2.options.unit)
	}
}

func TestOptionsAfterTerminalCallRebuildIntegrator(t *testing.T) {
	root := newMeasurementDir(t)
	m := Open(root, "sample")
	if _, err := m.Runs(); err != nil {
		t.Fatalf("Runs: %v", err)
	}

	m2 := m.Points(500).Unit(integrate.TwoThetaDegrees)
	if _, err := m2.Runs(); err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if m2.integrator.Points != 500 {
		t.Errorf("integrator points = %d, want 500", m2.integrator.Points)
	}
	if m2.integrator.Unit != integrate.TwoThetaDegrees {
		t.Errorf("integrator unit = %v", m2.integrator.Unit)
	}
	// The original handle keeps its own settings.
	if m.integrator.Points != integrate.DefaultPoints {
		t.Errorf("receiver integrator points = %d", m.integrator.Points)
	}
}

func TestWorkersFloor(t *testing.T) {
	m := Open("/data", "sample").Workers(0)
	if m.options.workers != 1 {
		t.Errorf("workers = %d", m.options.workers)
	}
}

func TestRuns(t *testing.T) {
	root := newMeasurementDir(t)
	m := Open(root, "sample")

	scans, err := m.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(scans) != 2 {
		t.Fatalf("got %d scans", len(scans))
	}

	idxs, err := m.EigerRuns()
	if err != nil {
		t.Fatalf("EigerRuns: %v", err)
	}
	if len(idxs) != 1 || idxs[0] != 1 {
		t.Errorf("eiger runs = %v", idxs)
	}
}

func TestOpenMissingCalibration(t *testing.T) {
	m := Open(t.TempDir(), "nope")
	if _, err := m.Runs(); err == nil {
		t.Error("expected error for missing calibration")
	}
}

func TestIntegrateRunNoFrames(t *testing.T) {
	root := newMeasurementDir(t)
	m := Open(root, "sample")

	_, err := m.IntegrateRun(context.Background(), 0)
	if !errors.Is(err, ErrNoFrames) {
		t.Errorf("err = %v, want ErrNoFrames", err)
	}

	if _, err := m.IntegrateRun(context.Background(), 9); err == nil {
		t.Error("expected out of range error")
	}
}

func TestIntegrateRunMissingFiles(t *testing.T) {
	root := newMeasurementDir(t)
	m := Open(root, "sample")

	res, err := m.IntegrateRun(context.Background(), 1)
	if err != nil {
		t.Fatalf("IntegrateRun: %v", err)
	}
	if res.Q != nil {
		t.Error("Q should be nil when every frame is missing")
	}
	if len(res.Patterns) != 2 || res.Patterns[0] != nil || res.Patterns[1] != nil {
		t.Errorf("patterns = %v", res.Patterns)
	}
}

func TestIntegrateAllSkipsFramelessRuns(t *testing.T) {
	root := newMeasurementDir(t)
	m := Open(root, "sample")

	results, err := m.IntegrateAll(context.Background())
	if err != nil {
		t.Fatalf("IntegrateAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0] != nil {
		t.Error("frameless run should have nil result")
	}
	if results[1] == nil {
		t.Error("eiger run missing from results")
	}
}

func TestFramePath(t *testing.T) {
	m := Open("/data", "sample")
	got := m.framePath("sample_000001", 7)
	want := filepath.Join("/data", "sample", "eiger", "sample_000001_data_000007.h5")
	if got != want {
		t.Errorf("framePath = %q, want %q", got, want)
	}
}

func TestOpenFrameTIFF(t *testing.T) {
	dir := t.TempDir()
	fr := frame.New(4, 3)
	for i := range fr.Data {
		fr.Data[i] = float64(i)
	}
	path := filepath.Join(dir, "flat.tiff")
	if err := frame.WriteFloatTIFF(path, fr); err != nil {
		t.Fatalf("WriteFloatTIFF: %v", err)
	}

	got, err := OpenFrame(path)
	if err != nil {
		t.Fatalf("OpenFrame: %v", err)
	}
	if got.Width != 4 || got.Height != 3 || got.Data[5] != 5 {
		t.Errorf("frame = %dx%d, data[5] = %g", got.Width, got.Height, got.Data[5])
	}
}

func TestOpenFrameUnknownFormat(t *testing.T) {
	if _, err := OpenFrame("data.xyz"); err == nil {
		t.Error("expected error for unknown extension")
	}
}

func TestMust(t *testing.T) {
	if got := Must(42, nil); got != 42 {
		t.Errorf("Must = %d", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Must(0, errors.New("boom"))
}
