// Package object reads and writes version 2 HDF5 object headers.
//
// A version 2 header starts with "OHDR", a version byte and flags, then the
// size of chunk #0 followed by the messages and a lookup3 checksum:
//
//	Offset  Size  Field
//	0       4     signature "OHDR"
//	4       1     version (2)
//	5       1     flags; bits 0-1 give the width of the chunk size field
//	6       1-8   size of chunk #0, excluding the checksum
//	...           messages: type (1), size (2), flags (1), body
//	...     4     checksum
//
// Further messages may live in "OCHK" continuation blocks referenced by a
// continuation message. The reader follows them; the writer always emits a
// single chunk.
//
// Space left over in a chunk is filled with a NIL message, or with zero bytes
// when fewer than four remain. Writers use this to rewrite a header in place
// with [WriteHeaderWithMinChunk] as long as the new messages fit.
package object
