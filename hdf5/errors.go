// Package hdf5 reads and writes the subset of HDF5 that volpack produces:
// a flat root group holding scalar string datasets and growable chunked
// datasets with filters and attributes.
//
// Files written here open in h5py and the HDF5 tools. The reader also copes
// with nested groups and the common superblock v2/v3 layouts other writers
// produce.
package hdf5

import "errors"

// Common errors
var (
	ErrNotFound      = errors.New("object not found")
	ErrExists        = errors.New("object already exists")
	ErrNotDataset    = errors.New("object is not a dataset")
	ErrNotGroup      = errors.New("object is not a group")
	ErrUnsupported   = errors.New("unsupported feature")
	ErrClosed        = errors.New("file is closed")
	ErrReadOnly      = errors.New("file is not writable")
	ErrShapeMismatch = errors.New("data does not match dataset shape")
)
