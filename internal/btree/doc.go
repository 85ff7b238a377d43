// Package btree reads and writes version 1 B-trees that index the chunks of
// a chunked dataset.
//
// Every node starts with "TREE", a node type (1 for chunk indexes), its
// level, the number of entries in use and the addresses of its siblings.
// Keys and child pointers alternate, beginning and ending with a key:
//
//	key0 child0 key1 child1 ... keyN
//
// A chunk key is the filtered chunk size, the filter mask and one 8-byte
// offset per dimension plus a trailing zero for the element size axis. Leaf
// children are chunk addresses; internal children are nodes one level down.
// The final key of a node bounds the chunks below it.
//
// Nodes hold at most 2K entries with K = 32, the HDF5 default for chunk
// indexes. The writer always allocates full-size nodes.
package btree
