package filters

import "fmt"

// Filter identifiers as registered with the HDF Group.
const (
	IDDeflate    uint16 = 1
	IDShuffle    uint16 = 2
	IDFletcher32 uint16 = 3
	IDLZ4        uint16 = 32004
	IDBitshuffle uint16 = 32008
)

// Entry describes one filter in a dataset's filter pipeline.
type Entry struct {
	ID         uint16
	Name       string
	ClientData []uint32
}

// Decode runs a raw chunk through the pipeline in reverse declaration
// order, as required when reading. elemSize is the dataset element size
// in bytes, needed by the shuffle and bitshuffle filters. filterMask has
// bit i set when the i-th pipeline entry was skipped at write time.
func Decode(data []byte, pipeline []Entry, elemSize int, filterMask uint32) ([]byte, error) {
	var err error
	for i := len(pipeline) - 1; i >= 0; i-- {
		if filterMask&(1<<uint(i)) != 0 {
			continue
		}
		f := pipeline[i]
		switch f.ID {
		case IDDeflate:
			data, err = Deflate(data)
		case IDShuffle:
			data, err = Unshuffle(data, elemSize)
		case IDFletcher32:
			data, err = Fletcher32(data)
		case IDLZ4:
			data, err = LZ4(data)
		case IDBitshuffle:
			data, err = BitshuffleLZ4(data, bitshuffleElemSize(f, elemSize))
		default:
			return nil, fmt.Errorf("unsupported filter %d (%s)", f.ID, f.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", f.ID, err)
		}
	}
	return data, nil
}

// bitshuffleElemSize extracts the element size the bitshuffle filter was
// configured with. The hdf5plugin filter stores it in client data word 2;
// fall back to the dataset element size when absent.
func bitshuffleElemSize(f Entry, elemSize int) int {
	if len(f.ClientData) > 2 && f.ClientData[2] > 0 {
		return int(f.ClientData[2])
	}
	return elemSize
}
