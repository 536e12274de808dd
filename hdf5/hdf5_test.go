package hdf5

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/hampusnasstrom/myspot-analysis/internal/filters"
)

// fileBuilder assembles a synthetic HDF5 file image in memory.
type fileBuilder struct {
	b []byte
}

// reserve appends n zero bytes and returns their offset.
func (w *fileBuilder) reserve(n int) int {
	off := len(w.b)
	w.b = append(w.b, make([]byte, n)...)
	return off
}

// add appends p at the next 8-byte boundary and returns its offset.
func (w *fileBuilder) add(p []byte) int {
	for len(w.b)%8 != 0 {
		w.b = append(w.b, 0)
	}
	off := len(w.b)
	w.b = append(w.b, p...)
	return off
}

func (w *fileBuilder) putU64(off int, v uint64) {
	binary.LittleEndian.PutUint64(w.b[off:], v)
}

func u16(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }
func u64(v uint64) []byte { b := make([]byte, 8); binary.LittleEndian.PutUint64(b, v); return b }

// msgV1 renders a version-1 object header message with the body padded
// to 8 bytes.
func msgV1(typ uint16, body []byte) []byte {
	padded := len(body)
	if padded%8 != 0 {
		padded += 8 - padded%8
	}
	out := make([]byte, 8+padded)
	binary.LittleEndian.PutUint16(out[0:], typ)
	binary.LittleEndian.PutUint16(out[2:], uint16(padded))
	copy(out[8:], body)
	return out
}

// objectHeaderV1 renders a version-1 object header from messages.
func objectHeaderV1(msgs ...[]byte) []byte {
	var body []byte
	for _, m := range msgs {
		body = append(body, m...)
	}
	out := make([]byte, 16+len(body))
	out[0] = 1
	binary.LittleEndian.PutUint16(out[2:], uint16(len(msgs)))
	binary.LittleEndian.PutUint32(out[4:], 1)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(body)))
	copy(out[16:], body)
	return out
}

func dataspaceV1(dims ...uint64) []byte {
	body := []byte{1, byte(len(dims)), 0, 0, 0, 0, 0, 0}
	for _, d := range dims {
		body = append(body, u64(d)...)
	}
	return body
}

// datatypeFixed renders a fixed-point datatype message body.
func datatypeFixed(size int, signed bool) []byte {
	bits0 := byte(0)
	if signed {
		bits0 |= 0x08
	}
	body := []byte{0x10, bits0, 0, 0}
	body = append(body, u32(uint32(size))...)
	body = append(body, u16(0)...)              // bit offset
	body = append(body, u16(uint16(size*8))...) // precision
	return body
}

func layoutContiguousMsg(addr, size uint64) []byte {
	body := []byte{3, 1}
	body = append(body, u64(addr)...)
	body = append(body, u64(size)...)
	return body
}

func layoutChunkedMsg(btreeAddr uint64, chunkDims ...uint32) []byte {
	body := []byte{3, 2, byte(len(chunkDims))}
	body = append(body, u64(btreeAddr)...)
	for _, d := range chunkDims {
		body = append(body, u32(d)...)
	}
	return body
}

// symbolTableGroup writes a one-entry symbol table group pointing name
// at childAddr, returning the rendered root object header.
func symbolTableGroup(w *fileBuilder, name string, childAddr uint64) []byte {
	// Local heap: 8 reserved bytes then the name.
	heapData := make([]byte, 8)
	heapData = append(heapData, []byte(name)...)
	heapData = append(heapData, 0)
	heapDataAddr := w.add(heapData)

	heap := []byte("HEAP")
	heap = append(heap, 0, 0, 0, 0) // version + reserved
	heap = append(heap, u64(uint64(len(heapData)))...)
	heap = append(heap, u64(0)...) // free list head
	heap = append(heap, u64(uint64(heapDataAddr))...)
	heapAddr := w.add(heap)

	snod := []byte("SNOD")
	snod = append(snod, 1, 0)
	snod = append(snod, u16(1)...)
	entry := make([]byte, 40)
	binary.LittleEndian.PutUint64(entry[0:], 8) // name offset in heap
	binary.LittleEndian.PutUint64(entry[8:], childAddr)
	snod = append(snod, entry...)
	snodAddr := w.add(snod)

	tree := []byte("TREE")
	tree = append(tree, 0, 0) // type 0, level 0
	tree = append(tree, u16(1)...)
	tree = append(tree, u64(undefinedAddress)...) // left sibling
	tree = append(tree, u64(undefinedAddress)...) // right sibling
	tree = append(tree, u64(0)...)                // key 0
	tree = append(tree, u64(uint64(snodAddr))...) // child
	tree = append(tree, u64(8)...)                // key 1
	treeAddr := w.add(tree)

	stBody := append(u64(uint64(treeAddr)), u64(uint64(heapAddr))...)
	return objectHeaderV1(msgV1(msgSymbolTable, stBody))
}

// writeSuperblockV0 fills the reserved leading bytes.
func writeSuperblockV0(w *fileBuilder, rootAddr uint64) {
	copy(w.b, signature)
	w.b[13] = 8 // size of offsets
	w.b[14] = 8 // size of lengths
	w.putU64(24, 0)                // base address
	w.putU64(40, undefinedAddress) // end of file address
	w.putU64(64, rootAddr)         // root object header address
}

func TestContiguousDatasetThroughSymbolTable(t *testing.T) {
	w := &fileBuilder{}
	w.reserve(96) // superblock

	raw := make([]byte, 6*4)
	for i := 0; i < 6; i++ {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(i+1))
	}
	dataAddr := w.add(raw)

	dsHeader := objectHeaderV1(
		msgV1(msgDataspace, dataspaceV1(2, 3)),
		msgV1(msgDatatype, datatypeFixed(4, true)),
		msgV1(msgLayout, layoutContiguousMsg(uint64(dataAddr), uint64(len(raw)))),
	)
	dsAddr := w.add(dsHeader)

	rootAddr := w.add(symbolTableGroup(w, "data", uint64(dsAddr)))
	writeSuperblockV0(w, uint64(rootAddr))

	f, err := NewReader(bytes.NewReader(w.b))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	ds, err := f.Dataset("/data")
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}

	values, dims, err := ds.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(dims) != 2 || dims[0] != 2 || dims[1] != 3 {
		t.Fatalf("dims = %v, want [2 3]", dims)
	}
	for i, v := range values {
		if v != float64(i+1) {
			t.Errorf("values[%d] = %v, want %d", i, v, i+1)
		}
	}
}

func TestDatasetNotFound(t *testing.T) {
	w := &fileBuilder{}
	w.reserve(96)
	dsHeader := objectHeaderV1(
		msgV1(msgDataspace, dataspaceV1(1)),
		msgV1(msgDatatype, datatypeFixed(4, false)),
		msgV1(msgLayout, layoutContiguousMsg(0, 4)),
	)
	dsAddr := w.add(dsHeader)
	rootAddr := w.add(symbolTableGroup(w, "data", uint64(dsAddr)))
	writeSuperblockV0(w, uint64(rootAddr))

	f, err := NewReader(bytes.NewReader(w.b))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := f.Dataset("/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNotHDF5(t *testing.T) {
	if _, err := NewReader(bytes.NewReader([]byte("this is not an hdf5 file at all"))); !errors.Is(err, ErrNotHDF5) {
		t.Errorf("expected ErrNotHDF5, got %v", err)
	}
}

// chunkKey renders a version-1 chunk B-tree key.
func chunkKey(size uint32, offsets ...uint64) []byte {
	out := u32(size)
	out = append(out, u32(0)...) // filter mask
	for _, o := range offsets {
		out = append(out, u64(o)...)
	}
	return out
}

func TestChunkedDatasetWithFilters(t *testing.T) {
	// 4x4 int32 dataset in 2x2 chunks, each chunk shuffled + deflated.
	w := &fileBuilder{}
	w.reserve(96)

	full := make([]int32, 16)
	for i := range full {
		full[i] = int32(i * 10)
	}

	encodeChunk := func(r0, c0 int) (addr int, size uint32) {
		raw := make([]byte, 16)
		for r := 0; r < 2; r++ {
			for c := 0; c < 2; c++ {
				v := full[(r0+r)*4+(c0+c)]
				binary.LittleEndian.PutUint32(raw[(r*2+c)*4:], uint32(v))
			}
		}
		shuffled, err := filters.Shuffle(raw, 4)
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write(shuffled)
		zw.Close()
		return w.add(buf.Bytes()), uint32(buf.Len())
	}

	type chunk struct {
		addr int
		size uint32
		r, c uint64
	}
	var chunks []chunk
	for _, rc := range [][2]int{{0, 0}, {0, 2}, {2, 0}, {2, 2}} {
		addr, size := encodeChunk(rc[0], rc[1])
		chunks = append(chunks, chunk{addr: addr, size: size, r: uint64(rc[0]), c: uint64(rc[1])})
	}

	// Chunk B-tree leaf with 4 entries. Key size = 8 + 8*3.
	tree := []byte("TREE")
	tree = append(tree, 1, 0) // type 1, level 0
	tree = append(tree, u16(4)...)
	tree = append(tree, u64(undefinedAddress)...)
	tree = append(tree, u64(undefinedAddress)...)
	for _, ch := range chunks {
		tree = append(tree, chunkKey(ch.size, ch.r, ch.c, 0)...)
		tree = append(tree, u64(uint64(ch.addr))...)
	}
	tree = append(tree, chunkKey(0, 4, 4, 0)...) // final key
	treeAddr := w.add(tree)

	// Pipeline: shuffle then deflate.
	pipeline := []byte{1, 2, 0, 0, 0, 0, 0, 0}
	pipeline = append(pipeline, u16(filters.IDShuffle)...)
	pipeline = append(pipeline, u16(0)...) // name length
	pipeline = append(pipeline, u16(0)...) // flags
	pipeline = append(pipeline, u16(1)...) // 1 client value
	pipeline = append(pipeline, u32(4)...)
	pipeline = append(pipeline, u32(0)...) // odd-count pad
	pipeline = append(pipeline, u16(filters.IDDeflate)...)
	pipeline = append(pipeline, u16(0)...)
	pipeline = append(pipeline, u16(0)...)
	pipeline = append(pipeline, u16(1)...)
	pipeline = append(pipeline, u32(6)...) // compression level
	pipeline = append(pipeline, u32(0)...)

	dsHeader := objectHeaderV1(
		msgV1(msgDataspace, dataspaceV1(4, 4)),
		msgV1(msgDatatype, datatypeFixed(4, true)),
		msgV1(msgFilters, pipeline),
		msgV1(msgLayout, layoutChunkedMsg(uint64(treeAddr), 2, 2, 4)),
	)
	dsAddr := w.add(dsHeader)
	rootAddr := w.add(symbolTableGroup(w, "frame", uint64(dsAddr)))
	writeSuperblockV0(w, uint64(rootAddr))

	f, err := NewReader(bytes.NewReader(w.b))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	ds, err := f.Dataset("/frame")
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	values, dims, err := ds.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if dims[0] != 4 || dims[1] != 4 {
		t.Fatalf("dims = %v, want [4 4]", dims)
	}
	for i, v := range values {
		if v != float64(full[i]) {
			t.Errorf("values[%d] = %v, want %d", i, v, full[i])
		}
	}
}

func TestReadFrame3D(t *testing.T) {
	// 2x2x3 uint16 stack, chunked one frame at a time.
	w := &fileBuilder{}
	w.reserve(96)

	frameBytes := func(base int) []byte {
		raw := make([]byte, 6*2)
		for i := 0; i < 6; i++ {
			binary.LittleEndian.PutUint16(raw[i*2:], uint16(base+i))
		}
		return raw
	}
	f0 := w.add(frameBytes(100))
	f1 := w.add(frameBytes(200))

	tree := []byte("TREE")
	tree = append(tree, 1, 0)
	tree = append(tree, u16(2)...)
	tree = append(tree, u64(undefinedAddress)...)
	tree = append(tree, u64(undefinedAddress)...)
	tree = append(tree, chunkKey(12, 0, 0, 0, 0)...)
	tree = append(tree, u64(uint64(f0))...)
	tree = append(tree, chunkKey(12, 1, 0, 0, 0)...)
	tree = append(tree, u64(uint64(f1))...)
	tree = append(tree, chunkKey(0, 2, 0, 0, 0)...)
	treeAddr := w.add(tree)

	dsHeader := objectHeaderV1(
		msgV1(msgDataspace, dataspaceV1(2, 2, 3)),
		msgV1(msgDatatype, datatypeFixed(2, false)),
		msgV1(msgLayout, layoutChunkedMsg(uint64(treeAddr), 1, 2, 3, 2)),
	)
	dsAddr := w.add(dsHeader)
	rootAddr := w.add(symbolTableGroup(w, "data", uint64(dsAddr)))
	writeSuperblockV0(w, uint64(rootAddr))

	f, err := NewReader(bytes.NewReader(w.b))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	ds, err := f.Dataset("/data")
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}

	frame, err := ds.ReadFrame(1)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if len(frame) != 6 {
		t.Fatalf("frame length = %d, want 6", len(frame))
	}
	for i, v := range frame {
		if v != float64(200+i) {
			t.Errorf("frame[%d] = %v, want %d", i, v, 200+i)
		}
	}

	if _, err := ds.ReadFrame(2); err == nil {
		t.Error("expected out-of-range error for frame 2")
	}
	if _, err := ds.ReadFrame(-1); err == nil {
		t.Error("expected out-of-range error for frame -1")
	}
}

func TestParseDatatype(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		want   datatype
		hasErr bool
	}{
		{
			name: "uint32 little endian",
			body: datatypeFixed(4, false),
			want: datatype{class: classFixed, size: 4},
		},
		{
			name: "int16 little endian",
			body: datatypeFixed(2, true),
			want: datatype{class: classFixed, size: 2, signed: true},
		},
		{
			name: "float32",
			body: append([]byte{0x11, 0x20, 0x3f, 0x00}, u32(4)...),
			want: datatype{class: classFloat, size: 4},
		},
		{
			name:   "string class rejected",
			body:   append([]byte{0x13, 0, 0, 0}, u32(8)...),
			hasErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDatatype(tt.body)
			if tt.hasErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDatatype: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseDatatype = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLink(t *testing.T) {
	// Version 1, flags: 1-byte name length field.
	body := []byte{1, 0, 4}
	body = append(body, []byte("data")...)
	body = append(body, u64(4242)...)

	l, err := parseLink(body)
	if err != nil {
		t.Fatalf("parseLink: %v", err)
	}
	if l.name != "data" || !l.hard || l.address != 4242 {
		t.Errorf("parseLink = %+v", l)
	}
}

func TestCopyRegionEdgeChunk(t *testing.T) {
	// 3x3 destination, 2x2 chunk anchored at (2,2): only one element
	// overlaps.
	dst := make([]byte, 9)
	src := []byte{1, 2, 3, 4}
	copyRegion(dst, []uint64{0, 0}, []uint64{3, 3}, src, []uint64{2, 2}, []uint64{2, 2}, 1)

	want := make([]byte, 9)
	want[8] = 1
	if !bytes.Equal(dst, want) {
		t.Errorf("dst = %v, want %v", dst, want)
	}
}

func TestCopyRegionInterior(t *testing.T) {
	// Destination is the middle row of a 3x4 source.
	src := []byte{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	}
	dst := make([]byte, 4)
	copyRegion(dst, []uint64{1, 0}, []uint64{1, 4}, src, []uint64{0, 0}, []uint64{3, 4}, 1)
	if !bytes.Equal(dst, []byte{4, 5, 6, 7}) {
		t.Errorf("dst = %v", dst)
	}
}
