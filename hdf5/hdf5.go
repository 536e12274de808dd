package hdf5

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// undefinedAddress marks an address field that is unset in the file.
const undefinedAddress = ^uint64(0)

var (
	// ErrNotHDF5 indicates the file signature was not found.
	ErrNotHDF5 = errors.New("hdf5: file signature not found")
	// ErrNotFound indicates a named object does not exist.
	ErrNotFound = errors.New("hdf5: object not found")
	// ErrUnsupported indicates a file feature outside the supported subset.
	ErrUnsupported = errors.New("hdf5: unsupported file feature")
	// ErrCorrupt indicates structurally invalid file content.
	ErrCorrupt = errors.New("hdf5: corrupt file")
)

// File provides read access to an HDF5 file.
type File struct {
	r      io.ReaderAt
	closer io.Closer
	sb     superblock
}

// Open opens an HDF5 file by path.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.closer = fh
	return f, nil
}

// NewReader opens an HDF5 file from an io.ReaderAt. The caller retains
// ownership of the underlying reader.
func NewReader(r io.ReaderAt) (*File, error) {
	sb, err := readSuperblock(r)
	if err != nil {
		return nil, err
	}
	return &File{r: r, sb: sb}, nil
}

// Close releases the underlying file handle if this File owns one.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// readAt reads exactly len(buf) bytes at the given file address,
// applying the superblock base address.
func (f *File) readAt(buf []byte, addr uint64) error {
	if addr == undefinedAddress {
		return fmt.Errorf("%w: read at undefined address", ErrCorrupt)
	}
	_, err := f.r.ReadAt(buf, int64(f.sb.baseAddress+addr))
	if err != nil && err != io.EOF {
		return err
	}
	if err == io.EOF {
		return fmt.Errorf("%w: truncated read at address %d", ErrCorrupt, addr)
	}
	return nil
}

// Dataset resolves a dataset by absolute path, e.g. "/entry/data/data".
func (f *File) Dataset(path string) (*Dataset, error) {
	hdr, err := f.resolvePath(path)
	if err != nil {
		return nil, err
	}
	return newDataset(f, path, hdr)
}

// buffer is a little cursor over a byte slice for sequential decoding.
type buffer struct {
	data []byte
	off  int
}

func (b *buffer) remaining() int { return len(b.data) - b.off }

func (b *buffer) skip(n int) error {
	if b.remaining() < n {
		return fmt.Errorf("%w: truncated structure", ErrCorrupt)
	}
	b.off += n
	return nil
}

func (b *buffer) bytes(n int) ([]byte, error) {
	if b.remaining() < n {
		return nil, fmt.Errorf("%w: truncated structure", ErrCorrupt)
	}
	out := b.data[b.off : b.off+n]
	b.off += n
	return out, nil
}

func (b *buffer) uint8() (uint8, error) {
	p, err := b.bytes(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *buffer) uint16() (uint16, error) {
	p, err := b.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (b *buffer) uint32() (uint32, error) {
	p, err := b.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (b *buffer) uint64() (uint64, error) {
	p, err := b.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// varUint reads an unsigned integer of 1, 2, 4 or 8 bytes.
func (b *buffer) varUint(size int) (uint64, error) {
	p, err := b.bytes(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(p[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(p)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(p)), nil
	case 8:
		return binary.LittleEndian.Uint64(p), nil
	default:
		return 0, fmt.Errorf("%w: invalid field width %d", ErrCorrupt, size)
	}
}
