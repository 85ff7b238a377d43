package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/volpack/internal/dtype"
	"github.com/robert-malhotra/volpack/internal/filter"
	"github.com/robert-malhotra/volpack/internal/layout"
	"github.com/robert-malhotra/volpack/internal/message"
	"github.com/robert-malhotra/volpack/internal/object"
)

// Dataset represents an HDF5 dataset opened for reading.
type Dataset struct {
	file      *File
	path      string
	header    *object.Header
	dataspace *message.Dataspace
	datatype  *message.Datatype
	layout    layout.Layout
}

// newDataset creates a Dataset from an object header.
func newDataset(f *File, path string, header *object.Header) (*Dataset, error) {
	ds := &Dataset{
		file:      f,
		path:      path,
		header:    header,
		dataspace: header.Dataspace(),
		datatype:  header.Datatype(),
	}
	if ds.dataspace == nil {
		return nil, fmt.Errorf("dataset %s missing dataspace message", path)
	}
	if ds.datatype == nil {
		return nil, fmt.Errorf("dataset %s missing datatype message", path)
	}

	var err error
	ds.layout, err = layout.New(header.DataLayout(), ds.dataspace, ds.datatype, header.FilterPipeline(), f.reader)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// Name returns the dataset name (last component of path).
func (d *Dataset) Name() string {
	return path.Base(d.path)
}

// Path returns the full path to this dataset.
func (d *Dataset) Path() string {
	return d.path
}

// Shape returns the dimensions of the dataset; nil for a scalar.
func (d *Dataset) Shape() []uint64 {
	if d.dataspace.IsScalar() {
		return nil
	}
	return d.dataspace.Dimensions
}

// MaxShape returns the maximum dimensions. message.Unlimited marks an
// unlimited axis.
func (d *Dataset) MaxShape() []uint64 {
	return d.dataspace.MaxShape()
}

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int {
	return d.dataspace.Rank()
}

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() uint64 {
	return d.dataspace.NumElements()
}

// IsScalar returns true if the dataset is a scalar (single value).
func (d *Dataset) IsScalar() bool {
	return d.dataspace.IsScalar()
}

// Dtype describes the element type, e.g. "float64" or "vlen string".
func (d *Dataset) Dtype() string {
	return d.datatype.String()
}

// Layout returns the storage class of the dataset.
func (d *Dataset) Layout() message.LayoutClass {
	return d.layout.Class()
}

// ChunkShape returns the chunk dimensions of a chunked dataset, or nil.
func (d *Dataset) ChunkShape() []uint64 {
	if c, ok := d.layout.(*layout.Chunked); ok {
		return c.ChunkShape()
	}
	return nil
}

// StoredBytes is the on-disk size of a chunked dataset's chunks.
func (d *Dataset) StoredBytes() uint64 {
	if c, ok := d.layout.(*layout.Chunked); ok {
		return c.StoredBytes()
	}
	return 0
}

// Filters names the filters in the dataset's pipeline, in order.
func (d *Dataset) Filters() []string {
	fp := d.header.FilterPipeline()
	if fp == nil {
		return nil
	}
	names := make([]string, len(fp.Filters))
	for i, info := range fp.Filters {
		names[i] = filter.Name(info.ID)
	}
	return names
}

// Read reads all data from the dataset into dest, which must be a pointer
// to a []float64, []float32, []int64, []int32, []uint8 or []string.
func (d *Dataset) Read(dest any) error {
	raw, err := d.layout.Read()
	if err != nil {
		return fmt.Errorf("reading %s: %w", d.path, err)
	}
	return d.decode(raw, d.NumElements(), dest)
}

func (d *Dataset) decode(raw []byte, n uint64, dest any) error {
	var err error
	switch p := dest.(type) {
	case *[]float64:
		*p, err = dtype.Numbers[float64](d.datatype, raw, n)
	case *[]float32:
		*p, err = dtype.Numbers[float32](d.datatype, raw, n)
	case *[]int64:
		*p, err = dtype.Numbers[int64](d.datatype, raw, n)
	case *[]int32:
		*p, err = dtype.Numbers[int32](d.datatype, raw, n)
	case *[]uint8:
		*p, err = dtype.Numbers[uint8](d.datatype, raw, n)
	case *[]string:
		*p, err = dtype.Strings(d.datatype, raw, n, d.file.offsetSize(), d.file)
	default:
		return fmt.Errorf("%w: read into %T", ErrUnsupported, dest)
	}
	if err != nil {
		return fmt.Errorf("decoding %s: %w", d.path, err)
	}
	return nil
}

// ReadFloat64 reads the whole dataset as float64 values.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	var result []float64
	err := d.Read(&result)
	return result, err
}

// ReadSlice reads the hyperslab starting at start with count elements per
// axis, as float64 values in row-major order.
func (d *Dataset) ReadSlice(start, count []uint64) ([]float64, error) {
	raw, err := d.layout.ReadSlice(start, count)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	n := uint64(1)
	for _, c := range count {
		n *= c
	}
	var result []float64
	if err := d.decode(raw, n, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ReadString reads a scalar string dataset.
func (d *Dataset) ReadString() (string, error) {
	var vals []string
	if err := d.Read(&vals); err != nil {
		return "", err
	}
	if len(vals) != 1 {
		return "", fmt.Errorf("%w: %s holds %d strings", ErrShapeMismatch, d.path, len(vals))
	}
	return vals[0], nil
}

// Attr returns the named attribute, or nil.
func (d *Dataset) Attr(name string) *Attribute {
	return findAttr(d.file, d.header.Attributes(), name)
}

// Attrs returns every attribute on the dataset.
func (d *Dataset) Attrs() []*Attribute {
	return wrapAttrs(d.file, d.header.Attributes())
}
