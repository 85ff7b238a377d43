// Package layout reads and writes dataset raw data for the compact,
// contiguous and chunked storage classes.
//
// Readers return raw bytes in row-major order for the whole dataset
// ([Layout.Read]) or for a hyperslab ([Layout.ReadSlice]). Conversion to Go
// values is left to package dtype.
//
// For chunked datasets [ChunkWriter] pushes each chunk through the filter
// pipeline, appends it to the file and records it for the B-tree index that
// [ChunkWriter.WriteIndex] emits once all chunks are known.
package layout
