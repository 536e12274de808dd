package hdf5

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hampusnasstrom/myspot-analysis/internal/filters"
)

// Dataset provides read access to one dataset in a file.
type Dataset struct {
	f        *File
	path     string
	dims     []uint64
	dtype    datatype
	layout   layout
	pipeline []filters.Entry
}

func newDataset(f *File, path string, hdr *objectHeader) (*Dataset, error) {
	spaceBody := hdr.find(msgDataspace)
	typeBody := hdr.find(msgDatatype)
	layoutBody := hdr.find(msgLayout)
	if spaceBody == nil || typeBody == nil || layoutBody == nil {
		return nil, fmt.Errorf("%s: %w: object is not a dataset", path, ErrNotFound)
	}

	space, err := parseDataspace(spaceBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dtype, err := parseDatatype(typeBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lay, err := parseLayout(layoutBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	ds := &Dataset{f: f, path: path, dims: space.dims, dtype: dtype, layout: lay}
	if body := hdr.find(msgFilters); body != nil {
		if ds.pipeline, err = parseFilterPipeline(body); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return ds, nil
}

// Dims returns the dataset dimensions, slowest varying first.
func (d *Dataset) Dims() []int {
	out := make([]int, len(d.dims))
	for i, v := range d.dims {
		out[i] = int(v)
	}
	return out
}

// Len returns the total number of elements.
func (d *Dataset) Len() int {
	n := 1
	for _, v := range d.dims {
		n *= int(v)
	}
	return n
}

// Read decodes the entire dataset into float64 values in row-major
// order, together with its dimensions.
func (d *Dataset) Read() ([]float64, []int, error) {
	start := make([]uint64, len(d.dims))
	raw, err := d.readRegion(start, d.dims)
	if err != nil {
		return nil, nil, err
	}
	values, err := d.convert(raw)
	if err != nil {
		return nil, nil, err
	}
	return values, d.Dims(), nil
}

// ReadFrame reads one frame of a 3D stack (or the whole array of a 2D
// dataset when idx is 0) as float64 values in row-major order.
func (d *Dataset) ReadFrame(idx int) ([]float64, error) {
	switch len(d.dims) {
	case 2:
		if idx != 0 {
			return nil, fmt.Errorf("%s: frame %d of 2D dataset", d.path, idx)
		}
		values, _, err := d.Read()
		return values, err
	case 3:
		if idx < 0 || uint64(idx) >= d.dims[0] {
			return nil, fmt.Errorf("%s: frame %d out of range [0,%d)", d.path, idx, d.dims[0])
		}
		start := []uint64{uint64(idx), 0, 0}
		shape := []uint64{1, d.dims[1], d.dims[2]}
		raw, err := d.readRegion(start, shape)
		if err != nil {
			return nil, err
		}
		return d.convert(raw)
	default:
		return nil, fmt.Errorf("%s: %w: rank-%d frame access", d.path, ErrUnsupported, len(d.dims))
	}
}

// readRegion reads the raw bytes of a hyperslab with the given start
// and shape.
func (d *Dataset) readRegion(start, shape []uint64) ([]byte, error) {
	elemSize := d.dtype.size
	n := uint64(1)
	for _, s := range shape {
		n *= s
	}
	out := make([]byte, n*uint64(elemSize))

	switch d.layout.class {
	case layoutCompact:
		return d.sliceRegion(d.layout.data, start, shape)

	case layoutContiguous:
		full := make([]byte, d.Len()*elemSize)
		if err := d.f.readAt(full, d.layout.address); err != nil {
			return nil, err
		}
		return d.sliceRegion(full, start, shape)

	case layoutChunked:
		if len(d.layout.chunkDims) != len(d.dims)+1 {
			return nil, fmt.Errorf("%s: %w: chunk rank %d for dataset rank %d",
				d.path, ErrCorrupt, len(d.layout.chunkDims), len(d.dims))
		}
		chunkShape := make([]uint64, len(d.dims))
		for i := range chunkShape {
			chunkShape[i] = uint64(d.layout.chunkDims[i])
		}
		err := d.f.walkChunkBTree(d.layout.btreeAddress, len(d.layout.chunkDims), func(ci chunkInfo) error {
			if !overlaps(start, shape, ci.offsets[:len(d.dims)], chunkShape) {
				return nil
			}
			raw := make([]byte, ci.size)
			if err := d.f.readAt(raw, ci.address); err != nil {
				return err
			}
			plain, err := filters.Decode(raw, d.pipeline, elemSize, ci.filterMask)
			if err != nil {
				return fmt.Errorf("chunk at %v: %w", ci.offsets, err)
			}
			want := uint64(elemSize)
			for _, s := range chunkShape {
				want *= s
			}
			if uint64(len(plain)) < want {
				return fmt.Errorf("%w: chunk at %v decoded to %d bytes, want %d",
					ErrCorrupt, ci.offsets, len(plain), want)
			}
			copyRegion(out, start, shape, plain, ci.offsets[:len(d.dims)], chunkShape, elemSize)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.path, err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%s: %w: layout class %d", d.path, ErrUnsupported, d.layout.class)
	}
}

// sliceRegion cuts a hyperslab out of a fully materialized row-major
// buffer.
func (d *Dataset) sliceRegion(full []byte, start, shape []uint64) ([]byte, error) {
	if uint64(len(full)) < uint64(d.Len()*d.dtype.size) {
		return nil, fmt.Errorf("%s: %w: dataset storage truncated", d.path, ErrCorrupt)
	}
	n := uint64(1)
	for _, s := range shape {
		n *= s
	}
	out := make([]byte, n*uint64(d.dtype.size))
	copyRegion(out, start, shape, full, make([]uint64, len(d.dims)), d.dims, d.dtype.size)
	return out, nil
}

// overlaps reports whether two hyperslabs intersect.
func overlaps(aStart, aShape, bStart, bShape []uint64) bool {
	for i := range aStart {
		if aStart[i]+aShape[i] <= bStart[i] || bStart[i]+bShape[i] <= aStart[i] {
			return false
		}
	}
	return true
}

// copyRegion copies the overlap of a source hyperslab into a
// destination hyperslab, both row-major. Runs along the fastest
// dimension are copied contiguously.
func copyRegion(dst []byte, dstStart, dstShape []uint64, src []byte, srcStart, srcShape []uint64, elemSize int) {
	rank := len(dstStart)
	lo := make([]uint64, rank)
	hi := make([]uint64, rank)
	for i := 0; i < rank; i++ {
		lo[i] = maxU64(dstStart[i], srcStart[i])
		hi[i] = minU64(dstStart[i]+dstShape[i], srcStart[i]+srcShape[i])
		if hi[i] <= lo[i] {
			return
		}
	}

	dstStride := strides(dstShape)
	srcStride := strides(srcShape)
	runLen := (hi[rank-1] - lo[rank-1]) * uint64(elemSize)

	coord := make([]uint64, rank)
	copy(coord, lo)
	for {
		var di, si uint64
		for k := 0; k < rank; k++ {
			di += (coord[k] - dstStart[k]) * dstStride[k]
			si += (coord[k] - srcStart[k]) * srcStride[k]
		}
		di *= uint64(elemSize)
		si *= uint64(elemSize)
		copy(dst[di:di+runLen], src[si:si+runLen])

		// Advance the odometer over all but the fastest dimension.
		k := rank - 2
		for ; k >= 0; k-- {
			coord[k]++
			if coord[k] < hi[k] {
				break
			}
			coord[k] = lo[k]
		}
		if k < 0 {
			return
		}
	}
}

// strides returns row-major element strides for a shape.
func strides(shape []uint64) []uint64 {
	out := make([]uint64, len(shape))
	s := uint64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		out[i] = s
		s *= shape[i]
	}
	return out
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// convert decodes raw element bytes into float64 values.
func (d *Dataset) convert(raw []byte) ([]float64, error) {
	elemSize := d.dtype.size
	if len(raw)%elemSize != 0 {
		return nil, fmt.Errorf("%s: %w: raw size %d not a multiple of element size %d",
			d.path, ErrCorrupt, len(raw), elemSize)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if d.dtype.bigEndian {
		order = binary.BigEndian
	}

	n := len(raw) / elemSize
	out := make([]float64, n)
	switch {
	case d.dtype.class == classFloat && elemSize == 4:
		for i := 0; i < n; i++ {
			out[i] = float64(math.Float32frombits(order.Uint32(raw[i*4:])))
		}
	case d.dtype.class == classFloat && elemSize == 8:
		for i := 0; i < n; i++ {
			out[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	case d.dtype.class == classFixed && d.dtype.signed:
		for i := 0; i < n; i++ {
			out[i] = float64(readInt(raw[i*elemSize:], elemSize, order))
		}
	case d.dtype.class == classFixed:
		for i := 0; i < n; i++ {
			out[i] = float64(readUint(raw[i*elemSize:], elemSize, order))
		}
	default:
		return nil, fmt.Errorf("%s: %w: datatype class %d size %d",
			d.path, ErrUnsupported, d.dtype.class, elemSize)
	}
	return out, nil
}

func readUint(b []byte, size int, order binary.ByteOrder) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}

func readInt(b []byte, size int, order binary.ByteOrder) int64 {
	switch size {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(order.Uint16(b)))
	case 4:
		return int64(int32(order.Uint32(b)))
	default:
		return int64(order.Uint64(b))
	}
}
