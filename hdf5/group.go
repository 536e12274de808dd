package hdf5

import (
	"bytes"
	"fmt"
	"strings"
)

// resolvePath walks the group hierarchy from the root group to the
// object header at the given absolute path.
func (f *File) resolvePath(path string) (*objectHeader, error) {
	hdr, err := f.readObjectHeader(f.sb.rootAddress)
	if err != nil {
		return nil, err
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		addr, err := f.lookupChild(hdr, part)
		if err != nil {
			return nil, fmt.Errorf("%q in %q: %w", part, path, err)
		}
		if hdr, err = f.readObjectHeader(addr); err != nil {
			return nil, err
		}
	}
	return hdr, nil
}

// lookupChild finds a named child of a group, whichever storage the
// group uses: compact link messages or a version-1 symbol table.
func (f *File) lookupChild(hdr *objectHeader, name string) (uint64, error) {
	for _, body := range hdr.findAll(msgLink) {
		l, err := parseLink(body)
		if err != nil {
			return 0, err
		}
		if l.name == name {
			if !l.hard {
				return 0, fmt.Errorf("%w: soft link %q", ErrUnsupported, name)
			}
			return l.address, nil
		}
	}

	if body := hdr.find(msgSymbolTable); body != nil {
		st, err := parseSymbolTable(body)
		if err != nil {
			return 0, err
		}
		return f.lookupSymbolTable(st, name)
	}

	// A link-info message with a defined fractal heap address means the
	// group stores links densely, which this reader does not walk.
	if body := hdr.find(msgLinkInfo); body != nil {
		if denseLinkStorage(body) {
			return 0, fmt.Errorf("%w: dense link storage", ErrUnsupported)
		}
	}
	return 0, ErrNotFound
}

// denseLinkStorage reports whether a link-info message carries a
// defined fractal heap address.
func denseLinkStorage(body []byte) bool {
	b := &buffer{data: body}
	b.skip(1) // version
	flags, err := b.uint8()
	if err != nil {
		return false
	}
	if flags&0x01 != 0 {
		b.skip(8) // maximum creation index
	}
	heap, err := b.uint64()
	if err != nil {
		return false
	}
	return heap != undefinedAddress
}

// localHeap resolves string offsets in a version-1 group local heap.
type localHeap struct {
	data []byte
}

var heapSignature = []byte("HEAP")
var snodSignature = []byte("SNOD")
var treeSignature = []byte("TREE")

func (f *File) readLocalHeap(addr uint64) (*localHeap, error) {
	raw := make([]byte, 32)
	if err := f.readAt(raw, addr); err != nil {
		return nil, err
	}
	if !bytes.Equal(raw[:4], heapSignature) {
		return nil, fmt.Errorf("%w: local heap signature missing", ErrCorrupt)
	}
	b := &buffer{data: raw}
	b.skip(8) // signature, version, reserved
	size, _ := b.uint64()
	b.skip(8) // free list head
	dataAddr, err := b.uint64()
	if err != nil {
		return nil, err
	}

	data := make([]byte, size)
	if err := f.readAt(data, dataAddr); err != nil {
		return nil, err
	}
	return &localHeap{data: data}, nil
}

func (h *localHeap) name(offset uint64) (string, error) {
	if offset >= uint64(len(h.data)) {
		return "", fmt.Errorf("%w: heap offset %d beyond heap size %d", ErrCorrupt, offset, len(h.data))
	}
	return string(trimNul(h.data[offset:])), nil
}

// lookupSymbolTable searches a symbol-table group for a name by walking
// the group B-tree down to its SNOD leaves. Group fan-outs in detector
// files are small, so a linear scan is sufficient.
func (f *File) lookupSymbolTable(st symbolTable, name string) (uint64, error) {
	heap, err := f.readLocalHeap(st.heapAddress)
	if err != nil {
		return 0, err
	}
	var found uint64 = undefinedAddress
	err = f.walkGroupBTree(st.btreeAddress, func(nameOffset, objAddr uint64) (bool, error) {
		n, err := heap.name(nameOffset)
		if err != nil {
			return false, err
		}
		if n == name {
			found = objAddr
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return 0, err
	}
	if found == undefinedAddress {
		return 0, ErrNotFound
	}
	return found, nil
}

// walkGroupBTree visits every symbol table entry beneath a version-1
// group B-tree node. visit returns true to stop the walk.
func (f *File) walkGroupBTree(addr uint64, visit func(nameOffset, objAddr uint64) (bool, error)) error {
	node, err := f.readBTreeNode(addr, 0)
	if err != nil {
		return err
	}
	for _, child := range node.children {
		if node.level > 0 {
			if err := f.walkGroupBTree(child, visit); err != nil {
				return err
			}
			continue
		}
		stop, err := f.walkSymbolNode(child, visit)
		if err != nil || stop {
			return err
		}
	}
	return nil
}

// walkSymbolNode scans one SNOD block of symbol table entries.
func (f *File) walkSymbolNode(addr uint64, visit func(nameOffset, objAddr uint64) (bool, error)) (bool, error) {
	head := make([]byte, 8)
	if err := f.readAt(head, addr); err != nil {
		return false, err
	}
	if !bytes.Equal(head[:4], snodSignature) {
		return false, fmt.Errorf("%w: symbol table node signature missing", ErrCorrupt)
	}
	b := &buffer{data: head}
	b.skip(6) // signature, version, reserved
	nsyms, err := b.uint16()
	if err != nil {
		return false, err
	}

	const entrySize = 40
	entries := make([]byte, int(nsyms)*entrySize)
	if err := f.readAt(entries, addr+8); err != nil {
		return false, err
	}
	eb := &buffer{data: entries}
	for i := 0; i < int(nsyms); i++ {
		nameOffset, _ := eb.uint64()
		objAddr, _ := eb.uint64()
		if err := eb.skip(entrySize - 16); err != nil {
			return false, err
		}
		stop, err := visit(nameOffset, objAddr)
		if err != nil || stop {
			return stop, err
		}
	}
	return false, nil
}
