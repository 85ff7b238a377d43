// Package convert writes a Decathlon dataset into one HDF5 container: the
// Writer owns the container layout and Run drives the four-step pipeline.
package convert

import "errors"

var (
	// ErrSampleRead wraps a failure to read an image or label file.
	ErrSampleRead = errors.New("reading sample")
	// ErrOutputPathConflict is returned when the output file exists and
	// replacing it is not allowed.
	ErrOutputPathConflict = errors.New("output file already exists")
	// ErrDirectoryCreate wraps a failure to create the output directory.
	ErrDirectoryCreate = errors.New("creating output directory")
)
