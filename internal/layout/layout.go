package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/volpack/internal/binary"
	"github.com/robert-malhotra/volpack/internal/message"
)

// ErrOutOfBounds is returned when a hyperslab extends past the dataset.
var ErrOutOfBounds = errors.New("selection out of bounds")

// Layout reads the raw data of one dataset.
type Layout interface {
	Read() ([]byte, error)
	ReadSlice(start, count []uint64) ([]byte, error)
	Class() message.LayoutClass
}

// New returns a reader for the dataset described by the given messages.
func New(layout *message.DataLayout, ds *message.Dataspace, dt *message.Datatype,
	fp *message.FilterPipeline, r *binary.Reader) (Layout, error) {
	if layout == nil {
		return nil, errors.New("dataset has no layout message")
	}
	switch layout.Class {
	case message.LayoutCompact:
		return &Compact{data: layout.CompactData, dims: dims(ds), elemSize: uint64(dt.Size)}, nil
	case message.LayoutContiguous:
		return newContiguous(layout, ds, dt, r), nil
	case message.LayoutChunked:
		return newChunked(layout, ds, dt, fp, r)
	}
	return nil, fmt.Errorf("%w: class %d", message.ErrUnsupportedLayout, layout.Class)
}

func dims(ds *message.Dataspace) []uint64 {
	if ds == nil || ds.IsScalar() {
		return nil
	}
	return ds.Dimensions
}

func product(v []uint64) uint64 {
	n := uint64(1)
	for _, x := range v {
		n *= x
	}
	return n
}

func checkSlice(shape, start, count []uint64) error {
	if len(start) != len(shape) || len(count) != len(shape) {
		return fmt.Errorf("%w: selection rank %d/%d, dataset rank %d", ErrOutOfBounds, len(start), len(count), len(shape))
	}
	for d := range shape {
		if start[d]+count[d] > shape[d] {
			return fmt.Errorf("%w: axis %d [%d, %d) exceeds %d", ErrOutOfBounds, d, start[d], start[d]+count[d], shape[d])
		}
	}
	return nil
}

// copyBox copies a box of size count from src (shaped srcShape, box origin
// srcAt) into dst (shaped dstShape, box origin dstAt).
func copyBox(dst []byte, dstShape, dstAt []uint64, src []byte, srcShape, srcAt []uint64, count []uint64, elemSize uint64) {
	rank := len(count)
	if rank == 0 {
		copy(dst[:elemSize], src[:elemSize])
		return
	}
	if product(count) == 0 {
		return
	}

	strides := func(shape []uint64) []uint64 {
		s := make([]uint64, rank)
		s[rank-1] = elemSize
		for d := rank - 2; d >= 0; d-- {
			s[d] = s[d+1] * shape[d+1]
		}
		return s
	}
	ss, ds := strides(srcShape), strides(dstShape)
	run := count[rank-1] * elemSize

	// idx walks every position of the box except the innermost axis.
	idx := make([]uint64, rank)
	for {
		var so, do uint64
		for d := 0; d < rank; d++ {
			so += (srcAt[d] + idx[d]) * ss[d]
			do += (dstAt[d] + idx[d]) * ds[d]
		}
		copy(dst[do:do+run], src[so:so+run])

		d := rank - 2
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < count[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}

// sliceOf cuts a hyperslab out of a fully materialized array.
func sliceOf(data []byte, shape, start, count []uint64, elemSize uint64) ([]byte, error) {
	if err := checkSlice(shape, start, count); err != nil {
		return nil, err
	}
	out := make([]byte, product(count)*elemSize)
	copyBox(out, count, make([]uint64, len(count)), data, shape, start, count, elemSize)
	return out, nil
}

// Compact data lives inside the object header.
type Compact struct {
	data     []byte
	dims     []uint64
	elemSize uint64
}

func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

func (c *Compact) Read() ([]byte, error) {
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out, nil
}

func (c *Compact) ReadSlice(start, count []uint64) ([]byte, error) {
	return sliceOf(c.data, c.dims, start, count, c.elemSize)
}

// Contiguous data is one block in the file.
type Contiguous struct {
	address  uint64
	size     uint64
	dims     []uint64
	elemSize uint64
	reader   *binary.Reader
}

func newContiguous(layout *message.DataLayout, ds *message.Dataspace, dt *message.Datatype, r *binary.Reader) *Contiguous {
	size := layout.Size
	if size == 0 && ds != nil {
		size = ds.NumElements() * uint64(dt.Size)
	}
	return &Contiguous{address: layout.Address, size: size, dims: dims(ds), elemSize: uint64(dt.Size), reader: r}
}

func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

// Read returns zeros when storage was never allocated.
func (c *Contiguous) Read() ([]byte, error) {
	if c.reader.IsUndefinedOffset(c.address) {
		return make([]byte, c.size), nil
	}
	data, err := c.reader.At(int64(c.address)).ReadBytes(int(c.size))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data at %d: %w", c.address, err)
	}
	return data, nil
}

func (c *Contiguous) ReadSlice(start, count []uint64) ([]byte, error) {
	data, err := c.Read()
	if err != nil {
		return nil, err
	}
	return sliceOf(data, c.dims, start, count, c.elemSize)
}
