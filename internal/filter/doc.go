// Package filter implements the HDF5 filter pipeline for chunked data.
//
// Filters run in pipeline order when a chunk is written and in reverse when
// it is read. Each chunk carries a filter mask; bit i set means filter i was
// skipped for that chunk.
//
// # Filters
//
//   - DEFLATE (ID 1): zlib streams via [Deflate], backed by
//     github.com/klauspost/compress/zlib.
//   - Shuffle (ID 2): byte transposition via [Shuffle]. It groups the n-th
//     byte of every element together, which helps float data compress.
//   - Fletcher32 (ID 3): a checksum appended to the chunk via [Fletcher32].
//   - LZ4 (ID 32004): the registered HDF5 LZ4 plugin format via [LZ4],
//     backed by github.com/pierrec/lz4/v4.
//   - Zstandard (ID 32015): one zstd frame per chunk via [Zstd], backed by
//     github.com/klauspost/compress/zstd.
//
// Pipelines with other filters cannot be read unless those filters are
// marked optional, in which case they are skipped.
package filter
