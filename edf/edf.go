// Package edf reads ESRF Data Format images, the container used for
// beamline mask files. An EDF file is an ASCII header block delimited
// by braces and padded to a multiple of 512 bytes, followed by raw
// binary pixel data.
package edf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/hampusnasstrom/myspot-analysis/frame"
)

// headerBlock is the alignment unit of the EDF header section.
const headerBlock = 512

// maxHeaderSize bounds the header scan; real headers are a few blocks.
const maxHeaderSize = 1 << 20

// Load reads an EDF file from disk.
func Load(path string) (*frame.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	fr, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fr, nil
}

// Read parses an EDF image from a reader.
func Read(r io.Reader) (*frame.Frame, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	dim1, err := intField(header, "Dim_1") // fast dimension (columns)
	if err != nil {
		return nil, err
	}
	dim2, err := intField(header, "Dim_2") // slow dimension (rows)
	if err != nil {
		return nil, err
	}
	if dim1 <= 0 || dim2 <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", dim1, dim2)
	}

	dataType := header["DataType"]
	elemSize, ok := elemSizes[dataType]
	if !ok {
		return nil, fmt.Errorf("unsupported DataType %q", dataType)
	}

	var order binary.ByteOrder = binary.LittleEndian
	switch header["ByteOrder"] {
	case "", "LowByteFirst":
	case "HighByteFirst":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("unsupported ByteOrder %q", header["ByteOrder"])
	}

	raw := make([]byte, dim1*dim2*elemSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading %dx%d %s pixels: %w", dim1, dim2, dataType, err)
	}

	data, err := decodePixels(raw, dataType, order)
	if err != nil {
		return nil, err
	}
	return &frame.Frame{
		Width:  dim1,
		Height: dim2,
		Data:   data,
		Header: header,
	}, nil
}

// readHeader consumes the brace-delimited header section including its
// 512-byte padding and returns the key/value pairs.
func readHeader(r io.Reader) (map[string]string, error) {
	buf := make([]byte, 0, headerBlock)
	block := make([]byte, headerBlock)
	closing := -1
	for closing < 0 {
		if len(buf) > maxHeaderSize {
			return nil, fmt.Errorf("header exceeds %d bytes", maxHeaderSize)
		}
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		buf = append(buf, block...)
		closing = strings.IndexByte(string(buf), '}')
	}

	text := string(buf[:closing])
	open := strings.IndexByte(text, '{')
	if open < 0 {
		return nil, fmt.Errorf("header missing opening brace")
	}

	header := make(map[string]string)
	for _, line := range strings.Split(text[open+1:], ";") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		header[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return header, nil
}

func intField(header map[string]string, key string) (int, error) {
	v, ok := header[key]
	if !ok {
		return 0, fmt.Errorf("header missing %s", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("header %s=%q: %w", key, v, err)
	}
	return n, nil
}

var elemSizes = map[string]int{
	"UnsignedByte":    1,
	"SignedByte":      1,
	"UnsignedShort":   2,
	"SignedShort":     2,
	"UnsignedInteger": 4,
	"SignedInteger":   4,
	"UnsignedLong":    4,
	"SignedLong":      4,
	"FloatValue":      4,
	"DoubleValue":     8,
}

func decodePixels(raw []byte, dataType string, order binary.ByteOrder) ([]float64, error) {
	size := elemSizes[dataType]
	n := len(raw) / size
	out := make([]float64, n)
	switch dataType {
	case "UnsignedByte":
		for i := range out {
			out[i] = float64(raw[i])
		}
	case "SignedByte":
		for i := range out {
			out[i] = float64(int8(raw[i]))
		}
	case "UnsignedShort":
		for i := range out {
			out[i] = float64(order.Uint16(raw[i*2:]))
		}
	case "SignedShort":
		for i := range out {
			out[i] = float64(int16(order.Uint16(raw[i*2:])))
		}
	case "UnsignedInteger", "UnsignedLong":
		for i := range out {
			out[i] = float64(order.Uint32(raw[i*4:]))
		}
	case "SignedInteger", "SignedLong":
		for i := range out {
			out[i] = float64(int32(order.Uint32(raw[i*4:])))
		}
	case "FloatValue":
		for i := range out {
			out[i] = float64(math.Float32frombits(order.Uint32(raw[i*4:])))
		}
	case "DoubleValue":
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	default:
		return nil, fmt.Errorf("unsupported DataType %q", dataType)
	}
	return out, nil
}
