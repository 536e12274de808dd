package hdf5

import (
	"bytes"
	"fmt"
)

// btreeNode is a decoded version-1 B-tree node. keys holds entriesUsed+1
// raw keys; children holds entriesUsed child addresses.
type btreeNode struct {
	typ      uint8
	level    uint8
	keys     [][]byte
	children []uint64
}

// readBTreeNode reads a version-1 B-tree node. keySize is the
// type-specific key size in bytes; group nodes (type 0) pass 0 to use
// the length size from the superblock.
func (f *File) readBTreeNode(addr uint64, keySize int) (*btreeNode, error) {
	head := make([]byte, 24)
	if err := f.readAt(head, addr); err != nil {
		return nil, err
	}
	if !bytes.Equal(head[:4], treeSignature) {
		return nil, fmt.Errorf("%w: B-tree node signature missing at address %d", ErrCorrupt, addr)
	}
	b := &buffer{data: head}
	b.skip(4)
	typ, _ := b.uint8()
	level, _ := b.uint8()
	entries, _ := b.uint16()
	// left and right sibling addresses are not needed for a walk.

	if keySize == 0 {
		keySize = f.sb.sizeLengths
	}
	childSize := f.sb.sizeOffsets
	bodyLen := int(entries)*(keySize+childSize) + keySize
	body := make([]byte, bodyLen)
	if err := f.readAt(body, addr+24); err != nil {
		return nil, err
	}

	node := &btreeNode{
		typ:      typ,
		level:    level,
		keys:     make([][]byte, 0, entries+1),
		children: make([]uint64, 0, entries),
	}
	bb := &buffer{data: body}
	for i := 0; i < int(entries); i++ {
		key, err := bb.bytes(keySize)
		if err != nil {
			return nil, err
		}
		child, err := bb.varUint(childSize)
		if err != nil {
			return nil, err
		}
		node.keys = append(node.keys, key)
		node.children = append(node.children, child)
	}
	key, err := bb.bytes(keySize)
	if err != nil {
		return nil, err
	}
	node.keys = append(node.keys, key)
	return node, nil
}

// chunkInfo locates one stored chunk of a chunked dataset.
type chunkInfo struct {
	size       uint32 // stored (possibly compressed) byte count
	filterMask uint32
	offsets    []uint64 // logical element offsets, one per chunk dim
	address    uint64
}

// walkChunkBTree visits every chunk beneath a version-1 chunk B-tree.
// ndims is the chunk dimensionality including the element-size
// dimension.
func (f *File) walkChunkBTree(addr uint64, ndims int, visit func(chunkInfo) error) error {
	keySize := 8 + 8*ndims
	node, err := f.readBTreeNode(addr, keySize)
	if err != nil {
		return err
	}
	if node.typ != 1 {
		return fmt.Errorf("%w: expected chunk B-tree node, got type %d", ErrCorrupt, node.typ)
	}
	for i, child := range node.children {
		if node.level > 0 {
			if err := f.walkChunkBTree(child, ndims, visit); err != nil {
				return err
			}
			continue
		}
		ci, err := parseChunkKey(node.keys[i], ndims)
		if err != nil {
			return err
		}
		ci.address = child
		if err := visit(ci); err != nil {
			return err
		}
	}
	return nil
}

func parseChunkKey(key []byte, ndims int) (chunkInfo, error) {
	b := &buffer{data: key}
	size, err := b.uint32()
	if err != nil {
		return chunkInfo{}, err
	}
	mask, err := b.uint32()
	if err != nil {
		return chunkInfo{}, err
	}
	offsets := make([]uint64, ndims)
	for i := range offsets {
		if offsets[i], err = b.uint64(); err != nil {
			return chunkInfo{}, err
		}
	}
	return chunkInfo{size: size, filterMask: mask, offsets: offsets}, nil
}
