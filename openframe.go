package myspot

import (
	"fmt"

	"github.com/hampusnasstrom/myspot-analysis/edf"
	"github.com/hampusnasstrom/myspot-analysis/format"
	"github.com/hampusnasstrom/myspot-analysis/frame"
	"github.com/hampusnasstrom/myspot-analysis/hdf5"
)

// eigerDataset is where the Eiger detector writes its image stack.
const eigerDataset = "entry/data/data"

// OpenFrame loads a single detector frame from any of the supported
// formats, chosen by file extension. HDF5 stacks yield their first
// frame.
func OpenFrame(path string) (*frame.Frame, error) {
	switch format.Detect(path) {
	case format.HDF5:
		return openHDF5Frame(path, 0)
	case format.EDF:
		return edf.Load(path)
	case format.TIFF:
		return frame.LoadTIFF(path)
	}
	return nil, fmt.Errorf("%s: unrecognized image format", path)
}

func openHDF5Frame(path string, idx int) (*frame.Frame, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := f.Dataset(eigerDataset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dims := ds.Dims()

	var data []float64
	switch len(dims) {
	case 2:
		data, _, err = ds.Read()
	case 3:
		data, err = ds.ReadFrame(idx)
	default:
		return nil, fmt.Errorf("%s: dataset has rank %d, want 2 or 3", path, len(dims))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	height := dims[len(dims)-2]
	width := dims[len(dims)-1]
	fr := frame.New(width, height)
	copy(fr.Data, data)
	return fr, nil
}
