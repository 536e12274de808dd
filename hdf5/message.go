package hdf5

import (
	"fmt"

	"github.com/hampusnasstrom/myspot-analysis/internal/filters"
)

// dataspace describes the dimensions of a dataset.
type dataspace struct {
	dims []uint64
}

func parseDataspace(body []byte) (dataspace, error) {
	b := &buffer{data: body}
	version, err := b.uint8()
	if err != nil {
		return dataspace{}, err
	}
	rank, err := b.uint8()
	if err != nil {
		return dataspace{}, err
	}
	flags, err := b.uint8()
	if err != nil {
		return dataspace{}, err
	}
	switch version {
	case 1:
		if err := b.skip(5); err != nil { // reserved
			return dataspace{}, err
		}
	case 2:
		if err := b.skip(1); err != nil { // dataspace type
			return dataspace{}, err
		}
	default:
		return dataspace{}, fmt.Errorf("%w: dataspace version %d", ErrUnsupported, version)
	}

	ds := dataspace{dims: make([]uint64, rank)}
	for i := range ds.dims {
		if ds.dims[i], err = b.uint64(); err != nil {
			return dataspace{}, err
		}
	}
	// Max dimensions and permutation indices are irrelevant for reading.
	_ = flags
	return ds, nil
}

// Datatype classes.
const (
	classFixed uint8 = 0
	classFloat uint8 = 1
)

// datatype describes the element type of a dataset.
type datatype struct {
	class     uint8
	size      int
	bigEndian bool
	signed    bool
}

func parseDatatype(body []byte) (datatype, error) {
	b := &buffer{data: body}
	classVersion, err := b.uint8()
	if err != nil {
		return datatype{}, err
	}
	class := classVersion & 0x0f
	version := classVersion >> 4
	if version < 1 || version > 3 {
		return datatype{}, fmt.Errorf("%w: datatype version %d", ErrUnsupported, version)
	}

	bits0, err := b.uint8()
	if err != nil {
		return datatype{}, err
	}
	if err := b.skip(2); err != nil { // bit field bytes 1-2
		return datatype{}, err
	}
	size, err := b.uint32()
	if err != nil {
		return datatype{}, err
	}

	dt := datatype{
		class:     class,
		size:      int(size),
		bigEndian: bits0&0x01 != 0,
	}
	switch class {
	case classFixed:
		dt.signed = bits0&0x08 != 0
	case classFloat:
		// IEEE layouts only; the property fields are not needed to
		// decode standard float32/float64.
	default:
		return datatype{}, fmt.Errorf("%w: datatype class %d", ErrUnsupported, class)
	}
	switch dt.size {
	case 1, 2, 4, 8:
	default:
		return datatype{}, fmt.Errorf("%w: element size %d", ErrUnsupported, dt.size)
	}
	if dt.class == classFloat && dt.size < 4 {
		return datatype{}, fmt.Errorf("%w: float size %d", ErrUnsupported, dt.size)
	}
	return dt, nil
}

// Layout classes.
const (
	layoutCompact    uint8 = 0
	layoutContiguous uint8 = 1
	layoutChunked    uint8 = 2
)

// layout describes where dataset elements live in the file.
type layout struct {
	class uint8

	// contiguous
	address uint64
	size    uint64

	// compact
	data []byte

	// chunked: chunkDims has rank+1 entries, the last being the element
	// size in bytes; btreeAddress roots the version-1 chunk B-tree.
	chunkDims    []uint32
	btreeAddress uint64
}

func parseLayout(body []byte) (layout, error) {
	b := &buffer{data: body}
	version, err := b.uint8()
	if err != nil {
		return layout{}, err
	}
	if version != 3 {
		return layout{}, fmt.Errorf("%w: data layout version %d", ErrUnsupported, version)
	}
	class, err := b.uint8()
	if err != nil {
		return layout{}, err
	}

	l := layout{class: class}
	switch class {
	case layoutCompact:
		n, err := b.uint16()
		if err != nil {
			return layout{}, err
		}
		if l.data, err = b.bytes(int(n)); err != nil {
			return layout{}, err
		}
	case layoutContiguous:
		if l.address, err = b.uint64(); err != nil {
			return layout{}, err
		}
		if l.size, err = b.uint64(); err != nil {
			return layout{}, err
		}
	case layoutChunked:
		rank, err := b.uint8()
		if err != nil {
			return layout{}, err
		}
		if l.btreeAddress, err = b.uint64(); err != nil {
			return layout{}, err
		}
		l.chunkDims = make([]uint32, rank)
		for i := range l.chunkDims {
			if l.chunkDims[i], err = b.uint32(); err != nil {
				return layout{}, err
			}
		}
	default:
		return layout{}, fmt.Errorf("%w: data layout class %d", ErrUnsupported, class)
	}
	return l, nil
}

// parseFilterPipeline parses a filter pipeline message (v1 or v2).
func parseFilterPipeline(body []byte) ([]filters.Entry, error) {
	b := &buffer{data: body}
	version, err := b.uint8()
	if err != nil {
		return nil, err
	}
	nfilters, err := b.uint8()
	if err != nil {
		return nil, err
	}
	switch version {
	case 1:
		if err := b.skip(6); err != nil {
			return nil, err
		}
	case 2:
	default:
		return nil, fmt.Errorf("%w: filter pipeline version %d", ErrUnsupported, version)
	}

	pipeline := make([]filters.Entry, 0, nfilters)
	for i := 0; i < int(nfilters); i++ {
		id, err := b.uint16()
		if err != nil {
			return nil, err
		}
		var nameLen uint16
		if version == 1 || id >= 256 {
			if nameLen, err = b.uint16(); err != nil {
				return nil, err
			}
		}
		if err := b.skip(2); err != nil { // flags
			return nil, err
		}
		nvalues, err := b.uint16()
		if err != nil {
			return nil, err
		}

		namePad := int(nameLen)
		if version == 1 && namePad%8 != 0 {
			namePad += 8 - namePad%8
		}
		rawName, err := b.bytes(namePad)
		if err != nil {
			return nil, err
		}
		name := string(trimNul(rawName[:nameLen]))

		values := make([]uint32, nvalues)
		for j := range values {
			if values[j], err = b.uint32(); err != nil {
				return nil, err
			}
		}
		if version == 1 && nvalues%2 != 0 {
			if err := b.skip(4); err != nil {
				return nil, err
			}
		}
		pipeline = append(pipeline, filters.Entry{ID: id, Name: name, ClientData: values})
	}
	return pipeline, nil
}

func trimNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

// link is a parsed link message.
type link struct {
	name    string
	address uint64 // hard link target object header
	hard    bool
}

func parseLink(body []byte) (link, error) {
	b := &buffer{data: body}
	version, err := b.uint8()
	if err != nil {
		return link{}, err
	}
	if version != 1 {
		return link{}, fmt.Errorf("%w: link message version %d", ErrUnsupported, version)
	}
	flags, err := b.uint8()
	if err != nil {
		return link{}, err
	}

	linkType := uint8(0)
	if flags&0x08 != 0 {
		if linkType, err = b.uint8(); err != nil {
			return link{}, err
		}
	}
	if flags&0x04 != 0 {
		if err := b.skip(8); err != nil { // creation order
			return link{}, err
		}
	}
	if flags&0x10 != 0 {
		if err := b.skip(1); err != nil { // charset
			return link{}, err
		}
	}
	nameLen, err := b.varUint(1 << (flags & 0x03))
	if err != nil {
		return link{}, err
	}
	rawName, err := b.bytes(int(nameLen))
	if err != nil {
		return link{}, err
	}

	l := link{name: string(rawName)}
	if linkType == 0 {
		l.hard = true
		if l.address, err = b.uint64(); err != nil {
			return link{}, err
		}
	}
	return l, nil
}

// symbolTable is a parsed symbol table message.
type symbolTable struct {
	btreeAddress uint64
	heapAddress  uint64
}

func parseSymbolTable(body []byte) (symbolTable, error) {
	b := &buffer{data: body}
	btree, err := b.uint64()
	if err != nil {
		return symbolTable{}, err
	}
	heap, err := b.uint64()
	if err != nil {
		return symbolTable{}, err
	}
	return symbolTable{btreeAddress: btree, heapAddress: heap}, nil
}
