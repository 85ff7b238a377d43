// Package superblock reads and writes the HDF5 superblock.
//
// Only versions 2 and 3 are supported. Both reference the root group by
// object header address and carry a lookup3 checksum:
//
//	Offset  Size  Field
//	0       8     signature 89 48 44 46 0D 0A 1A 0A
//	8       1     version
//	9       1     size of offsets (O)
//	10      1     size of lengths
//	11      1     file consistency flags
//	12      O     base address
//	12+O    O     superblock extension address
//	12+2O   O     end of file address
//	12+3O   O     root group object header address
//	12+4O   4     checksum
//
// [Read] searches for the signature at 0, 512, 1024 and 2048 bytes.
// Files written by volpack always place it at 0.
package superblock
