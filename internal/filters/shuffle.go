package filters

import "fmt"

// Unshuffle reverses the HDF5 shuffle filter (filter 2), a byte
// transposition that stores the n-th byte of every element
// contiguously. Data whose length is not a multiple of elemSize is
// rejected.
func Unshuffle(data []byte, elemSize int) ([]byte, error) {
	if elemSize <= 1 {
		return data, nil
	}
	if len(data)%elemSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of element size %d", len(data), elemSize)
	}

	n := len(data) / elemSize
	out := make([]byte, len(data))
	for p := 0; p < elemSize; p++ {
		plane := data[p*n : (p+1)*n]
		for e, b := range plane {
			out[e*elemSize+p] = b
		}
	}
	return out, nil
}

// Shuffle applies the forward byte transposition. It exists for
// round-trip testing; reading only ever unshuffles.
func Shuffle(data []byte, elemSize int) ([]byte, error) {
	if elemSize <= 1 {
		return data, nil
	}
	if len(data)%elemSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of element size %d", len(data), elemSize)
	}

	n := len(data) / elemSize
	out := make([]byte, len(data))
	for e := 0; e < n; e++ {
		for p := 0; p < elemSize; p++ {
			out[p*n+e] = data[e*elemSize+p]
		}
	}
	return out, nil
}

// bitUnshuffle reverses the bitshuffle transform on a block of complete
// 8-element groups: bit b of element e was stored at packed bit
// position b*n + e. len(data) must be n*elemSize with n a multiple of 8.
func bitUnshuffle(data []byte, elemSize int) ([]byte, error) {
	if elemSize <= 0 || len(data)%elemSize != 0 {
		return nil, fmt.Errorf("invalid bitshuffle block: %d bytes, element size %d", len(data), elemSize)
	}
	n := len(data) / elemSize
	if n%8 != 0 {
		return nil, fmt.Errorf("bitshuffle block of %d elements is not a multiple of 8", n)
	}

	nbits := elemSize * 8
	rowBytes := n / 8
	out := make([]byte, len(data))
	for b := 0; b < nbits; b++ {
		row := data[b*rowBytes : (b+1)*rowBytes]
		p := b / 8
		shift := uint(b % 8)
		for j, rb := range row {
			if rb == 0 {
				continue
			}
			for i := 0; i < 8; i++ {
				if rb&(1<<uint(i)) != 0 {
					e := j*8 + i
					out[e*elemSize+p] |= 1 << shift
				}
			}
		}
	}
	return out, nil
}

// bitShuffle applies the forward bit transposition, for round-trip
// testing.
func bitShuffle(data []byte, elemSize int) ([]byte, error) {
	if elemSize <= 0 || len(data)%elemSize != 0 {
		return nil, fmt.Errorf("invalid bitshuffle block: %d bytes, element size %d", len(data), elemSize)
	}
	n := len(data) / elemSize
	if n%8 != 0 {
		return nil, fmt.Errorf("bitshuffle block of %d elements is not a multiple of 8", n)
	}

	rowBytes := n / 8
	out := make([]byte, len(data))
	for e := 0; e < n; e++ {
		elem := data[e*elemSize : (e+1)*elemSize]
		for p, eb := range elem {
			if eb == 0 {
				continue
			}
			for k := 0; k < 8; k++ {
				if eb&(1<<uint(k)) != 0 {
					b := p*8 + k
					out[b*rowBytes+e/8] |= 1 << uint(e%8)
				}
			}
		}
	}
	return out, nil
}
