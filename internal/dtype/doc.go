// Package dtype converts between raw HDF5 element bytes and Go values.
//
// Numeric classes (fixed-point and IEEE float, either byte order) decode to
// any Go numeric type through [Numbers]; strings, fixed-length or
// variable-length, decode through [Strings]. Variable-length strings need a
// [HeapReader] to resolve their global heap references.
//
// [DatatypeOf] and [EncodeNumbers] go the other way for the numeric types
// volpack writes. Strings are always written variable-length, which needs
// heap space, so their encoding lives with the file writer.
package dtype
