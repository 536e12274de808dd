// Package format provides detector image file format detection.
package format

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format represents a supported detector image format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// HDF5 indicates an HDF5 container (Eiger data files).
	HDF5
	// TIFF indicates a TIFF image.
	TIFF
	// EDF indicates an ESRF data format image.
	EDF
)

// hdf5Signature is the 8-byte HDF5 file signature.
var hdf5Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case HDF5:
		return "HDF5"
	case TIFF:
		return "TIFF"
	case EDF:
		return "EDF"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case HDF5:
		return ".h5"
	case TIFF:
		return ".tiff"
	case EDF:
		return ".edf"
	default:
		return ""
	}
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".h5", ".hdf5", ".nxs":
		return HDF5
	case ".tif", ".tiff":
		return TIFF
	case ".edf":
		return EDF
	default:
		return Unknown
	}
}

// DetectFromMagic checks file magic bytes to determine format.
// This is more reliable than extension-based detection.
// Returns Unknown if the format cannot be determined.
func DetectFromMagic(data []byte) Format {
	if len(data) < 4 {
		return Unknown
	}

	// HDF5 signature: \x89HDF\r\n\x1a\n
	if len(data) >= 8 && bytes.Equal(data[:8], hdf5Signature) {
		return HDF5
	}

	// TIFF magic: II*\0 (little endian) or MM\0* (big endian)
	if data[0] == 'I' && data[1] == 'I' && data[2] == 0x2A && data[3] == 0x00 {
		return TIFF
	}
	if data[0] == 'M' && data[1] == 'M' && data[2] == 0x00 && data[3] == 0x2A {
		return TIFF
	}

	// EDF files open with a '{' header block, possibly after whitespace.
	if detectEDFMagic(data) {
		return EDF
	}

	return Unknown
}

// detectEDFMagic checks if the data looks like an EDF header block.
func detectEDFMagic(data []byte) bool {
	start := 0
	for start < len(data) && (data[start] == ' ' || data[start] == '\t' || data[start] == '\n' || data[start] == '\r') {
		start++
	}
	return start < len(data) && data[start] == '{'
}

// DetectFromReader reads the leading bytes of r to determine the format.
// Note that HDF5 permits the signature at offsets 512, 1024, 2048, ...;
// userblock offsets up to 4096 bytes are checked.
func DetectFromReader(r io.ReaderAt) (Format, error) {
	magic := make([]byte, 16)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	if f := DetectFromMagic(magic[:n]); f != Unknown {
		return f, nil
	}

	// Userblock-offset HDF5 signatures.
	buf := make([]byte, 8)
	for off := int64(512); off <= 4096; off *= 2 {
		if _, err := r.ReadAt(buf, off); err != nil {
			break
		}
		if bytes.Equal(buf, hdf5Signature) {
			return HDF5, nil
		}
	}

	return Unknown, nil
}
