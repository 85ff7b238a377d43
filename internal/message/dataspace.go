package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// DataspaceType is the kind of dataspace.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Unlimited is the maximum dimension size of an extendible axis.
const Unlimited = ^uint64(0)

// Dataspace is the dataspace message (0x0001).
type Dataspace struct {
	Version    uint8
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil when equal to Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// Rank is the number of dimensions.
func (m *Dataspace) Rank() int { return len(m.Dimensions) }

// NumElements is the product of the dimensions.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

func (m *Dataspace) IsScalar() bool { return m.SpaceType == DataspaceScalar }

// MaxShape returns the maximum dimensions, falling back to the current ones.
func (m *Dataspace) MaxShape() []uint64 {
	if m.MaxDims != nil {
		return m.MaxDims
	}
	return m.Dimensions
}

func parseDataspace(data []byte, r *binpkg.Reader) (*Dataspace, error) {
	d := newDecoder(data)
	ds := &Dataspace{Version: d.u8()}
	rank := int(d.u8())
	flags := d.u8()

	switch ds.Version {
	case 1:
		d.skip(5)
		ds.SpaceType = DataspaceSimple
		if rank == 0 {
			ds.SpaceType = DataspaceScalar
		}
	case 2:
		ds.SpaceType = DataspaceType(d.u8())
	default:
		return nil, fmt.Errorf("unsupported dataspace version %d", ds.Version)
	}
	if ds.SpaceType != DataspaceSimple {
		return ds, d.err
	}

	ds.Dimensions = make([]uint64, rank)
	for i := range ds.Dimensions {
		ds.Dimensions[i] = d.uint(r.LengthSize())
	}
	if flags&0x01 != 0 {
		ds.MaxDims = make([]uint64, rank)
		for i := range ds.MaxDims {
			ds.MaxDims[i] = d.uint(r.LengthSize())
		}
	}
	return ds, d.err
}

// Serialize writes a version 2 dataspace.
func (m *Dataspace) Serialize(w *binpkg.Writer) error {
	e := &encoder{w: w}
	var flags uint8
	if m.MaxDims != nil {
		flags |= 0x01
	}
	e.u8(2)
	e.u8(uint8(len(m.Dimensions)))
	e.u8(flags)
	e.u8(uint8(m.SpaceType))
	for _, d := range m.Dimensions {
		e.length(d)
	}
	for _, d := range m.MaxDims {
		e.length(d)
	}
	return e.err
}

func (m *Dataspace) SerializedSize(w *binpkg.Writer) int {
	n := 4 + len(m.Dimensions)*w.LengthSize()
	if m.MaxDims != nil {
		n += len(m.MaxDims) * w.LengthSize()
	}
	return n
}

// NewDataspace returns a simple dataspace. maxDims may be nil.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceSimple, Dimensions: dims, MaxDims: maxDims}
}

// NewScalarDataspace returns a dataspace holding a single element.
func NewScalarDataspace() *Dataspace {
	return &Dataspace{Version: 2, SpaceType: DataspaceScalar}
}
