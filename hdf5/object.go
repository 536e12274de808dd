package hdf5

import (
	"bytes"
	"fmt"
)

// Header message types used by this reader.
const (
	msgNil          uint16 = 0x0000
	msgDataspace    uint16 = 0x0001
	msgLinkInfo     uint16 = 0x0002
	msgDatatype     uint16 = 0x0003
	msgFillOld      uint16 = 0x0004
	msgFill         uint16 = 0x0005
	msgLink         uint16 = 0x0006
	msgLayout       uint16 = 0x0008
	msgGroupInfo    uint16 = 0x000A
	msgFilters      uint16 = 0x000B
	msgAttribute    uint16 = 0x000C
	msgContinuation uint16 = 0x0010
	msgSymbolTable  uint16 = 0x0011
	msgModified     uint16 = 0x0012
)

// message is a raw object header message.
type message struct {
	typ  uint16
	body []byte
}

// objectHeader is a parsed object header: the flat message list across
// all continuation blocks.
type objectHeader struct {
	address  uint64
	messages []message
}

// find returns the first message of the given type, or nil.
func (h *objectHeader) find(typ uint16) []byte {
	for _, m := range h.messages {
		if m.typ == typ {
			return m.body
		}
	}
	return nil
}

// findAll returns the bodies of every message of the given type.
func (h *objectHeader) findAll(typ uint16) [][]byte {
	var out [][]byte
	for _, m := range h.messages {
		if m.typ == typ {
			out = append(out, m.body)
		}
	}
	return out
}

var ohdrSignature = []byte("OHDR")
var ochkSignature = []byte("OCHK")

// readObjectHeader parses the object header at addr, following
// continuation messages.
func (f *File) readObjectHeader(addr uint64) (*objectHeader, error) {
	probe := make([]byte, 4)
	if err := f.readAt(probe, addr); err != nil {
		return nil, err
	}
	hdr := &objectHeader{address: addr}
	var err error
	if bytes.Equal(probe, ohdrSignature) {
		err = f.readObjectHeaderV2(addr, hdr)
	} else if probe[0] == 1 {
		err = f.readObjectHeaderV1(addr, hdr)
	} else {
		err = fmt.Errorf("%w: object header version %d at address %d", ErrUnsupported, probe[0], addr)
	}
	if err != nil {
		return nil, err
	}
	return hdr, nil
}

func (f *File) readObjectHeaderV1(addr uint64, hdr *objectHeader) error {
	prefix := make([]byte, 16)
	if err := f.readAt(prefix, addr); err != nil {
		return err
	}
	b := &buffer{data: prefix}
	b.skip(2) // version, reserved
	nmsgs, _ := b.uint16()
	b.skip(4) // reference count
	size, _ := b.uint32()
	// Messages start after the prefix, which is padded to 8 bytes.

	block := make([]byte, size)
	if err := f.readAt(block, addr+16); err != nil {
		return err
	}
	return f.parseMessagesV1(block, int(nmsgs), hdr)
}

// parseMessagesV1 walks version-1 message blocks, recursing into
// continuation blocks until the expected message count is reached.
func (f *File) parseMessagesV1(block []byte, nmsgs int, hdr *objectHeader) error {
	b := &buffer{data: block}
	for len(hdr.messages) < nmsgs && b.remaining() >= 8 {
		typ, _ := b.uint16()
		size, _ := b.uint16()
		b.skip(4) // flags + reserved
		body, err := b.bytes(int(size))
		if err != nil {
			return err
		}
		if typ == msgContinuation {
			cb := &buffer{data: body}
			off, _ := cb.uint64()
			length, err := cb.uint64()
			if err != nil {
				return err
			}
			cont := make([]byte, length)
			if err := f.readAt(cont, off); err != nil {
				return err
			}
			// Count the continuation itself toward the message total.
			hdr.messages = append(hdr.messages, message{typ: typ, body: body})
			if err := f.parseMessagesV1(cont, nmsgs, hdr); err != nil {
				return err
			}
			continue
		}
		hdr.messages = append(hdr.messages, message{typ: typ, body: body})
	}
	return nil
}

func (f *File) readObjectHeaderV2(addr uint64, hdr *objectHeader) error {
	prefix := make([]byte, 16)
	if err := f.readAt(prefix, addr); err != nil {
		return err
	}
	b := &buffer{data: prefix}
	b.skip(4) // OHDR
	version, _ := b.uint8()
	if version != 2 {
		return fmt.Errorf("%w: OHDR version %d", ErrUnsupported, version)
	}
	flags, _ := b.uint8()

	headerLen := 6
	if flags&0x20 != 0 {
		headerLen += 16 // access/mod/change/birth times
	}
	if flags&0x10 != 0 {
		headerLen += 4 // attribute phase change
	}
	sizeLen := 1 << (flags & 0x03)
	full := make([]byte, headerLen+sizeLen)
	if err := f.readAt(full, addr); err != nil {
		return err
	}
	fb := &buffer{data: full}
	fb.skip(headerLen)
	chunkSize, err := fb.varUint(sizeLen)
	if err != nil {
		return err
	}

	block := make([]byte, chunkSize)
	if err := f.readAt(block, addr+uint64(headerLen+sizeLen)); err != nil {
		return err
	}
	return f.parseMessagesV2(block, flags, hdr)
}

// parseMessagesV2 walks a version-2 message block. The trailing 4-byte
// checksum of each chunk lies outside the stored chunk size.
func (f *File) parseMessagesV2(block []byte, flags uint8, hdr *objectHeader) error {
	b := &buffer{data: block}
	for b.remaining() >= 4 {
		typ8, _ := b.uint8()
		size, _ := b.uint16()
		b.skip(1) // message flags
		if flags&0x04 != 0 {
			if err := b.skip(2); err != nil { // creation order
				return err
			}
		}
		body, err := b.bytes(int(size))
		if err != nil {
			return err
		}
		typ := uint16(typ8)
		if typ == msgContinuation {
			cb := &buffer{data: body}
			off, _ := cb.uint64()
			length, err := cb.uint64()
			if err != nil {
				return err
			}
			cont := make([]byte, length)
			if err := f.readAt(cont, off); err != nil {
				return err
			}
			if len(cont) < 8 || !bytes.Equal(cont[:4], ochkSignature) {
				return fmt.Errorf("%w: continuation block missing OCHK signature", ErrCorrupt)
			}
			// Strip signature and trailing checksum.
			hdr.messages = append(hdr.messages, message{typ: typ, body: body})
			if err := f.parseMessagesV2(cont[4:len(cont)-4], flags, hdr); err != nil {
				return err
			}
			continue
		}
		hdr.messages = append(hdr.messages, message{typ: typ, body: body})
	}
	return nil
}
