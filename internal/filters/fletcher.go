package filters

import (
	"encoding/binary"
	"fmt"
)

// Fletcher32 verifies and strips the trailing 4-byte checksum appended
// by the HDF5 fletcher32 filter (filter 3).
func Fletcher32(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("data too short for fletcher32 checksum: %d bytes", len(data))
	}
	payload := data[:len(data)-4]
	stored := binary.LittleEndian.Uint32(data[len(data)-4:])
	if sum := fletcher32(payload); sum != stored {
		return nil, fmt.Errorf("fletcher32 checksum mismatch: computed %08x, stored %08x", sum, stored)
	}
	return payload, nil
}

// fletcher32 computes the checksum the way the HDF5 library does:
// big-endian 16-bit words, partial sums folded every 360 words, an odd
// trailing byte padded into the high half of a final word.
func fletcher32(data []byte) uint32 {
	var s1, s2 uint32
	i := 0
	for words := len(data) / 2; words > 0; {
		tlen := words
		if tlen > 360 {
			tlen = 360
		}
		words -= tlen
		for ; tlen > 0; tlen-- {
			s1 += uint32(data[i])<<8 | uint32(data[i+1])
			s2 += s1
			i += 2
		}
		s1 = (s1 & 0xffff) + (s1 >> 16)
		s2 = (s2 & 0xffff) + (s2 >> 16)
	}
	if len(data)%2 != 0 {
		s1 += uint32(data[len(data)-1]) << 8
		s2 += s1
		s1 = (s1 & 0xffff) + (s1 >> 16)
		s2 = (s2 & 0xffff) + (s2 >> 16)
	}
	// Second fold guarantees both halves fit in 16 bits.
	s1 = (s1 & 0xffff) + (s1 >> 16)
	s2 = (s2 & 0xffff) + (s2 >> 16)
	return s2<<16 | s1
}
