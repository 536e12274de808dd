package filters

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// container is the block framing shared by the hdf5plugin LZ4 and
// bitshuffle filters: an 8-byte big-endian total uncompressed size and
// a 4-byte block size, followed by the block stream.
type container struct {
	total     int
	blockSize int
	stream    []byte
}

func parseContainer(data []byte) (container, error) {
	if len(data) < 12 {
		return container{}, fmt.Errorf("truncated header: %d bytes", len(data))
	}
	total := binary.BigEndian.Uint64(data[0:8])
	blockSize := binary.BigEndian.Uint32(data[8:12])
	if total > 1<<40 {
		return container{}, fmt.Errorf("implausible uncompressed size %d", total)
	}
	return container{
		total:     int(total),
		blockSize: int(blockSize),
		stream:    data[12:],
	}, nil
}

// nextBlock reads the 4-byte big-endian compressed length prefix and
// returns the block payload and the remaining stream.
func nextBlock(stream []byte) (block, rest []byte, err error) {
	if len(stream) < 4 {
		return nil, nil, fmt.Errorf("truncated block header: %d bytes", len(stream))
	}
	n := int(binary.BigEndian.Uint32(stream[0:4]))
	if n < 0 || n > len(stream)-4 {
		return nil, nil, fmt.Errorf("block length %d exceeds remaining %d bytes", n, len(stream)-4)
	}
	return stream[4 : 4+n], stream[4+n:], nil
}

// LZ4 decodes the hdf5plugin LZ4 filter (32004).
func LZ4(data []byte) ([]byte, error) {
	c, err := parseContainer(data)
	if err != nil {
		return nil, err
	}
	blockSize := c.blockSize
	if blockSize <= 0 {
		blockSize = 1 << 30 // single block
	}

	out := make([]byte, 0, c.total)
	stream := c.stream
	for remaining := c.total; remaining > 0; {
		want := blockSize
		if want > remaining {
			want = remaining
		}
		block, rest, err := nextBlock(stream)
		if err != nil {
			return nil, err
		}
		stream = rest
		if len(block) == want {
			// Incompressible blocks are stored raw.
			out = append(out, block...)
		} else {
			dst := make([]byte, want)
			n, err := lz4.UncompressBlock(block, dst)
			if err != nil {
				return nil, fmt.Errorf("lz4 block: %w", err)
			}
			if n != want {
				return nil, fmt.Errorf("lz4 block decoded to %d bytes, want %d", n, want)
			}
			out = append(out, dst[:n]...)
		}
		remaining -= want
	}
	return out, nil
}

// BitshuffleLZ4 decodes the hdf5plugin bitshuffle filter (32008) with
// LZ4 block compression. Blocks hold a whole number of 8-element
// groups; up to 7 trailing elements are stored raw after the block
// stream, unshuffled and uncompressed.
func BitshuffleLZ4(data []byte, elemSize int) ([]byte, error) {
	if elemSize <= 0 {
		return nil, fmt.Errorf("invalid element size %d", elemSize)
	}
	c, err := parseContainer(data)
	if err != nil {
		return nil, err
	}
	if c.total%elemSize != 0 {
		return nil, fmt.Errorf("total size %d is not a multiple of element size %d", c.total, elemSize)
	}

	blockBytes := c.blockSize
	if blockBytes <= 0 {
		blockBytes = defaultBitshuffleBlock(elemSize)
	}
	if blockBytes%(8*elemSize) != 0 {
		return nil, fmt.Errorf("block size %d is not a multiple of 8 elements", blockBytes)
	}

	nelem := c.total / elemSize
	leftover := (nelem % 8) * elemSize
	blocked := c.total - leftover

	out := make([]byte, 0, c.total)
	stream := c.stream
	for processed := 0; processed < blocked; {
		want := blockBytes
		if want > blocked-processed {
			want = blocked - processed
		}
		block, rest, err := nextBlock(stream)
		if err != nil {
			return nil, err
		}
		stream = rest
		dst := make([]byte, want)
		n, err := lz4.UncompressBlock(block, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 block: %w", err)
		}
		if n != want {
			return nil, fmt.Errorf("lz4 block decoded to %d bytes, want %d", n, want)
		}
		plain, err := bitUnshuffle(dst, elemSize)
		if err != nil {
			return nil, err
		}
		out = append(out, plain...)
		processed += want
	}

	if leftover > 0 {
		if len(stream) < leftover {
			return nil, fmt.Errorf("truncated trailing elements: have %d bytes, want %d", len(stream), leftover)
		}
		out = append(out, stream[:leftover]...)
	}
	return out, nil
}

// defaultBitshuffleBlock mirrors the bitshuffle default block sizing
// when the stored block size is zero: 8192 bytes scaled to a multiple
// of 8 elements.
func defaultBitshuffleBlock(elemSize int) int {
	block := 8192 / elemSize
	block = (block / 8) * 8
	if block < 8 {
		block = 8
	}
	return block * elemSize
}
