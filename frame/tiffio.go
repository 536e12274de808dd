package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"golang.org/x/image/tiff"
)

// TIFF sample formats.
const (
	sampleFormatUint  = 1
	sampleFormatFloat = 3
)

// LoadTIFF reads a TIFF file into a frame.
func LoadTIFF(path string) (*Frame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fr, err := DecodeTIFF(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fr, nil
}

// DecodeTIFF decodes grayscale TIFF data. Integer images go through
// golang.org/x/image/tiff; IEEE float images (SampleFormat 3), which
// that package does not handle, use the native float reader.
func DecodeTIFF(r io.Reader) (*Frame, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if isFloatTIFF(raw) {
		return decodeFloatTIFF(raw)
	}

	img, err := tiff.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("tiff decode: %w", err)
	}
	return fromImage(img)
}

func fromImage(img image.Image) (*Frame, error) {
	bounds := img.Bounds()
	fr := New(bounds.Dx(), bounds.Dy())
	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < fr.Height; y++ {
			for x := 0; x < fr.Width; x++ {
				fr.Set(x, y, float64(im.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y))
			}
		}
	case *image.Gray16:
		for y := 0; y < fr.Height; y++ {
			for x := 0; x < fr.Width; x++ {
				fr.Set(x, y, float64(im.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
			}
		}
	default:
		return nil, fmt.Errorf("unsupported TIFF pixel format %T", img)
	}
	return fr, nil
}

// WriteFloatTIFF writes the frame as a single-strip little-endian
// 32-bit IEEE float TIFF, the layout tifffile produces for float data.
func WriteFloatTIFF(path string, fr *Frame) error {
	var buf bytes.Buffer
	if err := EncodeFloatTIFF(&buf, fr); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// tiffTag identifiers used by the float codec.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagSampleFormat    = 339
)

// EncodeFloatTIFF encodes the frame as float32 grayscale TIFF.
func EncodeFloatTIFF(w io.Writer, fr *Frame) error {
	if fr.Width <= 0 || fr.Height <= 0 || len(fr.Data) != fr.Width*fr.Height {
		return fmt.Errorf("invalid frame geometry %dx%d with %d pixels", fr.Width, fr.Height, len(fr.Data))
	}

	type entry struct {
		tag, typ uint16
		count    uint32
		value    uint32
	}
	const (
		typeShort = 3
		typeLong  = 4
	)
	dataSize := uint32(4 * fr.Width * fr.Height)
	// Header (8) + entry count (2) + 10 entries (120) + next offset (4),
	// padded to a word boundary.
	dataOffset := uint32(136)
	entries := []entry{
		{tagImageWidth, typeLong, 1, uint32(fr.Width)},
		{tagImageLength, typeLong, 1, uint32(fr.Height)},
		{tagBitsPerSample, typeShort, 1, 32},
		{tagCompression, typeShort, 1, 1},
		{tagPhotometric, typeShort, 1, 1},
		{tagStripOffsets, typeLong, 1, dataOffset},
		{tagSamplesPerPixel, typeShort, 1, 1},
		{tagRowsPerStrip, typeLong, 1, uint32(fr.Height)},
		{tagStripByteCounts, typeLong, 1, dataSize},
		{tagSampleFormat, typeShort, 1, sampleFormatFloat},
	}

	out := make([]byte, 0, int(dataOffset)+int(dataSize))
	out = append(out, 'I', 'I', 0x2A, 0x00)
	out = binary.LittleEndian.AppendUint32(out, 8) // IFD offset
	out = binary.LittleEndian.AppendUint16(out, uint16(len(entries)))
	for _, e := range entries {
		out = binary.LittleEndian.AppendUint16(out, e.tag)
		out = binary.LittleEndian.AppendUint16(out, e.typ)
		out = binary.LittleEndian.AppendUint32(out, e.count)
		out = binary.LittleEndian.AppendUint32(out, e.value)
	}
	out = binary.LittleEndian.AppendUint32(out, 0) // no next IFD
	for uint32(len(out)) < dataOffset {
		out = append(out, 0)
	}
	for _, v := range fr.Data {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
	}

	_, err := w.Write(out)
	return err
}

// isFloatTIFF sniffs a little-endian TIFF whose first IFD declares
// SampleFormat 3.
func isFloatTIFF(raw []byte) bool {
	ifd, order, ok := firstIFD(raw)
	if !ok {
		return false
	}
	v, ok := ifdValue(raw, ifd, order, tagSampleFormat)
	return ok && v == sampleFormatFloat
}

// firstIFD locates the first image file directory.
func firstIFD(raw []byte) (offset uint32, order binary.ByteOrder, ok bool) {
	if len(raw) < 8 {
		return 0, nil, false
	}
	switch {
	case raw[0] == 'I' && raw[1] == 'I' && raw[2] == 0x2A && raw[3] == 0:
		order = binary.LittleEndian
	case raw[0] == 'M' && raw[1] == 'M' && raw[2] == 0 && raw[3] == 0x2A:
		order = binary.BigEndian
	default:
		return 0, nil, false
	}
	return order.Uint32(raw[4:8]), order, true
}

// ifdValue returns the inline value of a tag with count 1.
func ifdValue(raw []byte, ifd uint32, order binary.ByteOrder, tag uint16) (uint32, bool) {
	if int(ifd)+2 > len(raw) {
		return 0, false
	}
	n := int(order.Uint16(raw[ifd : ifd+2]))
	for i := 0; i < n; i++ {
		off := int(ifd) + 2 + i*12
		if off+12 > len(raw) {
			return 0, false
		}
		if order.Uint16(raw[off:]) != tag {
			continue
		}
		typ := order.Uint16(raw[off+2:])
		count := order.Uint32(raw[off+4:])
		if count != 1 {
			return 0, false
		}
		switch typ {
		case 3: // SHORT
			return uint32(order.Uint16(raw[off+8:])), true
		case 4: // LONG
			return order.Uint32(raw[off+8:]), true
		}
		return 0, false
	}
	return 0, false
}

// ifdValues returns a tag's values, following the offset pointer for
// counts that do not fit inline.
func ifdValues(raw []byte, ifd uint32, order binary.ByteOrder, tag uint16) ([]uint32, bool) {
	if int(ifd)+2 > len(raw) {
		return nil, false
	}
	n := int(order.Uint16(raw[ifd : ifd+2]))
	for i := 0; i < n; i++ {
		off := int(ifd) + 2 + i*12
		if off+12 > len(raw) {
			return nil, false
		}
		if order.Uint16(raw[off:]) != tag {
			continue
		}
		typ := order.Uint16(raw[off+2:])
		count := int(order.Uint32(raw[off+4:]))
		var width int
		switch typ {
		case 3:
			width = 2
		case 4:
			width = 4
		default:
			return nil, false
		}
		valueOff := off + 8
		if count*width > 4 {
			valueOff = int(order.Uint32(raw[off+8:]))
		}
		if valueOff+count*width > len(raw) {
			return nil, false
		}
		out := make([]uint32, count)
		for j := 0; j < count; j++ {
			if typ == 3 {
				out[j] = uint32(order.Uint16(raw[valueOff+j*2:]))
			} else {
				out[j] = order.Uint32(raw[valueOff+j*4:])
			}
		}
		return out, true
	}
	return nil, false
}

// decodeFloatTIFF reads an uncompressed grayscale IEEE float TIFF
// (32- or 64-bit samples).
func decodeFloatTIFF(raw []byte) (*Frame, error) {
	ifd, order, ok := firstIFD(raw)
	if !ok {
		return nil, fmt.Errorf("not a TIFF file")
	}

	width, ok := ifdValue(raw, ifd, order, tagImageWidth)
	if !ok {
		return nil, fmt.Errorf("float tiff: missing ImageWidth")
	}
	height, ok := ifdValue(raw, ifd, order, tagImageLength)
	if !ok {
		return nil, fmt.Errorf("float tiff: missing ImageLength")
	}
	bits, ok := ifdValue(raw, ifd, order, tagBitsPerSample)
	if !ok || (bits != 32 && bits != 64) {
		return nil, fmt.Errorf("float tiff: unsupported bits per sample %d", bits)
	}
	if comp, ok := ifdValue(raw, ifd, order, tagCompression); ok && comp != 1 {
		return nil, fmt.Errorf("float tiff: unsupported compression %d", comp)
	}
	offsets, ok := ifdValues(raw, ifd, order, tagStripOffsets)
	if !ok {
		return nil, fmt.Errorf("float tiff: missing StripOffsets")
	}
	counts, ok := ifdValues(raw, ifd, order, tagStripByteCounts)
	if !ok || len(counts) != len(offsets) {
		return nil, fmt.Errorf("float tiff: missing StripByteCounts")
	}

	fr := New(int(width), int(height))
	sampleSize := int(bits) / 8
	i := 0
	for s := range offsets {
		strip := int(offsets[s])
		end := strip + int(counts[s])
		if strip < 0 || end > len(raw) {
			return nil, fmt.Errorf("float tiff: strip %d out of bounds", s)
		}
		for p := strip; p+sampleSize <= end && i < len(fr.Data); p += sampleSize {
			if bits == 32 {
				fr.Data[i] = float64(math.Float32frombits(order.Uint32(raw[p:])))
			} else {
				fr.Data[i] = math.Float64frombits(order.Uint64(raw[p:]))
			}
			i++
		}
	}
	if i != len(fr.Data) {
		return nil, fmt.Errorf("float tiff: decoded %d of %d pixels", i, len(fr.Data))
	}
	return fr, nil
}
