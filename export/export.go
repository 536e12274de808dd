// Package export writes integration results to disk: per-run CSV
// tables of patterns and scan metadata, and a heatmap rendering of all
// patterns in a run.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hampusnasstrom/myspot-analysis/specfile"
)

// DirName is the output directory created under the measurement
// directory.
const DirName = "integrated_data"

// MakeOutputDir creates the output directory for a measurement. It
// fails if the directory already exists so that results of a previous
// run are never overwritten.
func MakeOutputDir(root, name string) (string, error) {
	dir := filepath.Join(root, name, DirName)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("output folder %s already exists", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// WritePatterns writes a pattern matrix as CSV. The header row holds
// an empty index cell followed by the radial coordinate of every bin;
// each data row starts with its frame index. A nil pattern, written
// for frames whose data file was missing, becomes a row of empty
// cells.
func WritePatterns(w io.Writer, q []float64, patterns [][]float64) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(q)+1)
	for i, v := range q {
		header[i+1] = formatFloat(v)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(q)+1)
	for idx, p := range patterns {
		row[0] = strconv.Itoa(idx)
		if p == nil {
			for i := range q {
				row[i+1] = ""
			}
		} else {
			if len(p) != len(q) {
				return fmt.Errorf("pattern %d has %d points, header has %d", idx, len(p), len(q))
			}
			for i, v := range p {
				row[i+1] = formatFloat(v)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetadata writes the data table of a scan as CSV with a leading
// index column.
func WriteMetadata(w io.Writer, scan *specfile.Scan) error {
	cw := csv.NewWriter(w)

	header := append([]string{""}, scan.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for idx, r := range scan.Rows {
		row := append([]string{strconv.Itoa(idx)}, r...)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SaveRun writes the three per-run artifacts into dir: the pattern
// CSV, the metadata CSV and a heatmap PNG.
func SaveRun(dir, name string, runIdx int, q []float64, patterns [][]float64, scan *specfile.Scan) error {
	base := fmt.Sprintf("%s_run%d", name, runIdx)

	if err := writeFile(filepath.Join(dir, base+"_patterns.csv"), func(w io.Writer) error {
		return WritePatterns(w, q, patterns)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, base+"_metadata.csv"), func(w io.Writer) error {
		return WriteMetadata(w, scan)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, base+"_heatmap.png"), func(w io.Writer) error {
		return WriteHeatmap(w, patterns)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
