// Package heap reads and writes HDF5 global heap collections.
//
// Variable-length strings are not stored in the dataset itself. Each element
// holds a 4-byte length and a heap ID (collection address plus object index),
// and the bytes live as an object in a "GCOL" collection:
//
//	"GCOL" | version 1 | 3 reserved | collection size (L)
//	objects: index (2) | refcount (2) | 4 reserved | size (L) | data, 8-aligned
//	free space: an object with index 0 spanning the rest of the collection
//
// Collections are at least 4096 bytes.
package heap
