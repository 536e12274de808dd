package myspot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hampusnasstrom/myspot-analysis/export"
	"github.com/hampusnasstrom/myspot-analysis/pattern"
	"github.com/hampusnasstrom/myspot-analysis/specfile"
)

// Scan log columns identifying the detector frames of a run.
const (
	frameColumn = "eiger_data_filename"
	imageColumn = "first_image_Nr"
)

// ErrNoFrames is returned by IntegrateRun for a scan that recorded no
// detector frames.
var ErrNoFrames = errors.New("scan has no detector frames")

// RunResult holds the integrated patterns of one run. Patterns is
// aligned with the scan's data rows; a nil entry marks a frame whose
// data file was missing. Q is nil when no frame could be integrated.
type RunResult struct {
	Index    int
	Scan     *specfile.Scan
	Q        []float64
	Patterns [][]float64
}

// SpecFile returns the parsed scan log of the measurement.
func (m *Measurement) SpecFile() (*specfile.File, error) {
	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}
	return m.spec, nil
}

// Runs returns all scans of the measurement in log order.
func (m *Measurement) Runs() ([]*specfile.Scan, error) {
	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}
	return m.spec.Scans, nil
}

// EigerRuns returns the indices of the scans that recorded detector
// frames.
func (m *Measurement) EigerRuns() ([]int, error) {
	scans, err := m.Runs()
	if err != nil {
		return nil, err
	}
	var idxs []int
	for i, s := range scans {
		if s.HasColumn(frameColumn) {
			idxs = append(idxs, i)
		}
	}
	return idxs, nil
}

// framePath builds the path of the HDF5 file holding one frame.
func (m *Measurement) framePath(name string, imageNr int) string {
	return filepath.Join(m.Dir(), "eiger",
		fmt.Sprintf("%s_data_%06d.h5", name, imageNr))
}

// IntegrateRun integrates every frame of one run. Frames whose data
// file is missing leave a nil pattern so that row indices keep lining
// up with the scan table. Returns ErrNoFrames for a scan without
// detector frames.
func (m *Measurement) IntegrateRun(ctx context.Context, idx int) (*RunResult, error) {
	if err := m.ensureLoaded(); err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(m.spec.Scans) {
		return nil, fmt.Errorf("run %d out of range, log has %d scans", idx, len(m.spec.Scans))
	}
	scan := m.spec.Scans[idx]
	if !scan.HasColumn(frameColumn) {
		return nil, fmt.Errorf("run %d: %w", idx, ErrNoFrames)
	}

	names, err := scan.Column(frameColumn)
	if err != nil {
		return nil, err
	}
	nrs, err := scan.Ints(imageColumn)
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", idx, err)
	}

	res := &RunResult{
		Index:    idx,
		Scan:     scan,
		Patterns: make([][]float64, len(names)),
	}

	var mu sync.Mutex
	done := 0
	report := func() {
		mu.Lock()
		done++
		if m.options.progress != nil {
			m.options.progress(done, len(names), fmt.Sprintf("integrating run %d", idx))
		}
		mu.Unlock()
	}

	// The first existing frame is integrated synchronously so the
	// integrator's pixel maps are ready before workers start.
	first := -1
	for i := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := m.integrateFrame(names[i], nrs[i])
		if errors.Is(err, os.ErrNotExist) {
			report()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("run %d frame %d: %w", idx, i, err)
		}
		res.Q = p.Q
		res.Patterns[i] = p.I
		report()
		first = i
		break
	}
	if first < 0 {
		return res, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.options.workers)
	for i := first + 1; i < len(names); i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := m.integrateFrame(names[i], nrs[i])
			if errors.Is(err, os.ErrNotExist) {
				report()
				return nil
			}
			if err != nil {
				return fmt.Errorf("run %d frame %d: %w", idx, i, err)
			}
			res.Patterns[i] = p.I
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Measurement) integrateFrame(name string, imageNr int) (*pattern.Pattern, error) {
	f, err := OpenFrame(m.framePath(name, imageNr))
	if err != nil {
		return nil, err
	}
	f.SetAbove(m.options.hotPixelCutoff, 0)

	p, err := m.integrator.Integrate1D(f)
	if err != nil {
		return nil, err
	}
	if m.options.subtractBaseline {
		bgr := pattern.Baseline(p.I, m.options.baselineSmoothness, m.options.baselineAsymmetry)
		p = p.Subtract(bgr)
	}
	return p, nil
}

// IntegrateAll integrates every run that recorded detector frames. The
// result slice is aligned with the scan list; entries for runs without
// frames are nil.
func (m *Measurement) IntegrateAll(ctx context.Context) ([]*RunResult, error) {
	scans, err := m.Runs()
	if err != nil {
		return nil, err
	}
	results := make([]*RunResult, len(scans))
	for i := range scans {
		res, err := m.IntegrateRun(ctx, i)
		if errors.Is(err, ErrNoFrames) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// SaveAll integrates every run and writes the per-run CSV tables and
// heatmaps into a fresh integrated_data directory, whose path is
// returned. It fails without writing anything if the directory already
// exists.
func (m *Measurement) SaveAll(ctx context.Context) (string, error) {
	results, err := m.IntegrateAll(ctx)
	if err != nil {
		return "", err
	}
	dir, err := export.MakeOutputDir(m.root, m.name)
	if err != nil {
		return "", err
	}
	for _, res := range results {
		if res == nil || res.Q == nil {
			continue
		}
		if err := export.SaveRun(dir, m.name, res.Index, res.Q, res.Patterns, res.Scan); err != nil {
			return "", err
		}
	}
	return dir, nil
}
