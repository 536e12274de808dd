// Package filters provides HDF5 filter pipeline decoding.
//
// Chunked HDF5 datasets pass each chunk through a pipeline of filters
// before it is written; reading reverses the pipeline. This package
// implements the filters emitted by the mySpot acquisition stack.
//
// # Supported Filters
//
// Deflate (filter 1, zlib):
//
//	decoded, err := filters.Deflate(data)
//
// Shuffle (filter 2), a byte transposition that groups the n-th byte of
// every element together:
//
//	decoded, err := filters.Unshuffle(data, elemSize)
//
// Fletcher32 (filter 3), a trailing checksum which is verified and
// stripped:
//
//	decoded, err := filters.Fletcher32(data)
//
// LZ4 (filter 32004) and bitshuffle+LZ4 (filter 32008) as produced by
// the hdf5plugin registered filters. Both wrap LZ4 blocks in the same
// container framing: an 8-byte big-endian total uncompressed size, a
// 4-byte block size, then per block a 4-byte compressed length followed
// by the LZ4 block data.
//
// # Pipeline decoding
//
// A whole pipeline is decoded in reverse declaration order through
// Decode:
//
//	decoded, err := filters.Decode(chunk, pipeline, elemSize, filterMask)
package filters
