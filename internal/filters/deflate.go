package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Deflate decompresses a zlib-wrapped deflate stream (HDF5 filter 1).
func Deflate(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return buf.Bytes(), nil
}
