package hdf5

import (
	"bytes"
	"fmt"
	"io"
)

var signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// superblock holds the fields needed to locate the root group.
type superblock struct {
	version     uint8
	sizeOffsets int
	sizeLengths int
	baseAddress uint64
	rootAddress uint64 // root group object header
}

// readSuperblock locates and parses the superblock. The signature may
// sit at offset 0 or, when a userblock is present, at any power-of-two
// offset from 512 bytes up.
func readSuperblock(r io.ReaderAt) (superblock, error) {
	var sigOffset uint64
	buf := make([]byte, 8)
	for off := uint64(0); ; {
		if _, err := r.ReadAt(buf, int64(off)); err != nil {
			return superblock{}, ErrNotHDF5
		}
		if bytes.Equal(buf, signature) {
			sigOffset = off
			break
		}
		if off == 0 {
			off = 512
		} else {
			off *= 2
		}
		if off > 1<<26 {
			return superblock{}, ErrNotHDF5
		}
	}

	// The superblock proper is at most 56 bytes past the signature in
	// every supported version.
	raw := make([]byte, 96)
	n, err := r.ReadAt(raw, int64(sigOffset)+8)
	if err != nil && err != io.EOF {
		return superblock{}, err
	}
	b := &buffer{data: raw[:n]}

	version, err := b.uint8()
	if err != nil {
		return superblock{}, err
	}
	switch version {
	case 0, 1:
		return readSuperblockV0(b, version, sigOffset)
	case 2, 3:
		return readSuperblockV2(b, version, sigOffset)
	default:
		return superblock{}, fmt.Errorf("%w: superblock version %d", ErrUnsupported, version)
	}
}

func readSuperblockV0(b *buffer, version uint8, sigOffset uint64) (superblock, error) {
	// free space version, root group version, reserved, shared header version
	if err := b.skip(4); err != nil {
		return superblock{}, err
	}
	sizeOffsets, err := b.uint8()
	if err != nil {
		return superblock{}, err
	}
	sizeLengths, err := b.uint8()
	if err != nil {
		return superblock{}, err
	}
	if sizeOffsets != 8 || sizeLengths != 8 {
		return superblock{}, fmt.Errorf("%w: offset/length size %d/%d", ErrUnsupported, sizeOffsets, sizeLengths)
	}
	// reserved + group leaf k + group internal k + consistency flags
	if err := b.skip(1 + 2 + 2 + 4); err != nil {
		return superblock{}, err
	}
	if version == 1 {
		// indexed storage k + reserved
		if err := b.skip(4); err != nil {
			return superblock{}, err
		}
	}
	base, err := b.uint64()
	if err != nil {
		return superblock{}, err
	}
	// free space address, end of file address, driver info address
	if err := b.skip(24); err != nil {
		return superblock{}, err
	}
	// Root group symbol table entry: link name offset, object header
	// address, cache type, reserved, scratch.
	if err := b.skip(8); err != nil {
		return superblock{}, err
	}
	root, err := b.uint64()
	if err != nil {
		return superblock{}, err
	}
	if base == undefinedAddress {
		base = sigOffset
	}
	return superblock{
		version:     version,
		sizeOffsets: 8,
		sizeLengths: 8,
		baseAddress: base,
		rootAddress: root,
	}, nil
}

func readSuperblockV2(b *buffer, version uint8, sigOffset uint64) (superblock, error) {
	sizeOffsets, err := b.uint8()
	if err != nil {
		return superblock{}, err
	}
	sizeLengths, err := b.uint8()
	if err != nil {
		return superblock{}, err
	}
	if sizeOffsets != 8 || sizeLengths != 8 {
		return superblock{}, fmt.Errorf("%w: offset/length size %d/%d", ErrUnsupported, sizeOffsets, sizeLengths)
	}
	// file consistency flags
	if err := b.skip(1); err != nil {
		return superblock{}, err
	}
	base, err := b.uint64()
	if err != nil {
		return superblock{}, err
	}
	// superblock extension address, end of file address
	if err := b.skip(16); err != nil {
		return superblock{}, err
	}
	root, err := b.uint64()
	if err != nil {
		return superblock{}, err
	}
	if base == undefinedAddress {
		base = sigOffset
	}
	return superblock{
		version:     version,
		sizeOffsets: 8,
		sizeLengths: 8,
		baseAddress: base,
		rootAddress: root,
	}, nil
}
