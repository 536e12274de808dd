package frame

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"golang.org/x/image/tiff"
)

func TestSetAbove(t *testing.T) {
	fr := New(3, 1)
	fr.Data = []float64{1, 500, 2e6}

	n := fr.SetAbove(1e5, 0)
	if n != 1 {
		t.Errorf("replaced %d pixels, want 1", n)
	}
	if fr.Data[0] != 1 || fr.Data[1] != 500 || fr.Data[2] != 0 {
		t.Errorf("Data = %v", fr.Data)
	}
}

func TestAverage(t *testing.T) {
	a := New(2, 2)
	a.Data = []float64{1, 2, 3, 4}
	b := New(2, 2)
	b.Data = []float64{3, 2, 1, 0}

	avg, err := Average([]*Frame{a, b})
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	want := []float64{2, 2, 2, 2}
	for i := range want {
		if avg.Data[i] != want[i] {
			t.Errorf("Data[%d] = %v, want %v", i, avg.Data[i], want[i])
		}
	}
}

func TestAverageSizeMismatch(t *testing.T) {
	if _, err := Average([]*Frame{New(2, 2), New(3, 2)}); err == nil {
		t.Error("expected error for mismatched frames")
	}
	if _, err := Average(nil); err == nil {
		t.Error("expected error for empty stack")
	}
}

func TestMinMax(t *testing.T) {
	fr := New(2, 2)
	fr.Data = []float64{3, math.NaN(), -1, math.Inf(1)}
	lo, hi := fr.MinMax()
	if lo != -1 || hi != 3 {
		t.Errorf("MinMax = %v, %v, want -1, 3", lo, hi)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	fr := New(1, 1)
	fr.Data[0] = 7
	fr.Header = map[string]string{"k": "v"}

	cp := fr.Clone()
	cp.Data[0] = 9
	cp.Header["k"] = "w"
	if fr.Data[0] != 7 || fr.Header["k"] != "v" {
		t.Error("Clone shares storage with original")
	}
}

func TestFloatTIFFRoundTrip(t *testing.T) {
	fr := New(3, 2)
	fr.Data = []float64{0, 1.5, -2, 1e6, -0.25, 42}

	var buf bytes.Buffer
	if err := EncodeFloatTIFF(&buf, fr); err != nil {
		t.Fatalf("EncodeFloatTIFF: %v", err)
	}

	got, err := DecodeTIFF(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DecodeTIFF: %v", err)
	}
	if got.Width != 3 || got.Height != 2 {
		t.Fatalf("decoded %dx%d, want 3x2", got.Width, got.Height)
	}
	for i := range fr.Data {
		if got.Data[i] != fr.Data[i] {
			t.Errorf("Data[%d] = %v, want %v", i, got.Data[i], fr.Data[i])
		}
	}
}

func TestDecodeGray16TIFF(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	values := []uint16{0, 100, 60000, 7}
	for i, v := range values {
		img.SetGray16(i%2, i/2, color.Gray16{Y: v})
	}

	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("tiff.Encode: %v", err)
	}
	fr, err := DecodeTIFF(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DecodeTIFF: %v", err)
	}
	for i, v := range values {
		if fr.At(i%2, i/2) != float64(v) {
			t.Errorf("pixel %d = %v, want %d", i, fr.At(i%2, i/2), v)
		}
	}
}

func TestDecodeTIFFGarbage(t *testing.T) {
	if _, err := DecodeTIFF(bytes.NewReader([]byte("not a tiff"))); err == nil {
		t.Error("expected error for invalid TIFF data")
	}
}
