package message

import (
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// LayoutClass is the storage layout class.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
)

func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	}
	return fmt.Sprintf("layout(%d)", uint8(c))
}

// ErrUnsupportedLayout is returned for layout versions and chunk indexes
// this package cannot interpret.
var ErrUnsupportedLayout = errors.New("unsupported data layout")

// DataLayout is the data layout message (0x0008), version 3.
//
// For chunked storage ChunkDims carries one more entry than the dataset rank:
// the trailing entry is the element size in bytes.
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Address is the raw data for contiguous storage or the B-tree root
	// for chunked storage.
	Address uint64
	Size    uint64

	CompactData []byte
	ChunkDims   []uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// ChunkShape returns the chunk dimensions without the element size entry.
func (m *DataLayout) ChunkShape() []uint64 {
	if len(m.ChunkDims) == 0 {
		return nil
	}
	shape := make([]uint64, len(m.ChunkDims)-1)
	for i := range shape {
		shape[i] = uint64(m.ChunkDims[i])
	}
	return shape
}

func parseDataLayout(data []byte, r *binpkg.Reader) (*DataLayout, error) {
	d := newDecoder(data)
	m := &DataLayout{Version: d.u8()}
	if m.Version != 3 && m.Version != 4 {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedLayout, m.Version)
	}
	m.Class = LayoutClass(d.u8())

	switch m.Class {
	case LayoutCompact:
		m.CompactData = d.bytes(int(d.u16()))
		m.Size = uint64(len(m.CompactData))
	case LayoutContiguous:
		m.Address = d.uint(r.OffsetSize())
		m.Size = d.uint(r.LengthSize())
	case LayoutChunked:
		if m.Version == 4 {
			return nil, fmt.Errorf("%w: version 4 chunk index", ErrUnsupportedLayout)
		}
		ndims := int(d.u8())
		m.Address = d.uint(r.OffsetSize())
		m.ChunkDims = make([]uint32, ndims)
		for i := range m.ChunkDims {
			m.ChunkDims[i] = d.u32()
		}
	default:
		return nil, fmt.Errorf("%w: class %d", ErrUnsupportedLayout, m.Class)
	}
	return m, d.err
}

// Serialize writes a version 3 layout message.
func (m *DataLayout) Serialize(w *binpkg.Writer) error {
	e := &encoder{w: w}
	e.u8(3)
	e.u8(uint8(m.Class))
	switch m.Class {
	case LayoutCompact:
		e.u16(uint16(len(m.CompactData)))
		e.bytes(m.CompactData)
	case LayoutContiguous:
		e.offset(m.Address)
		e.length(m.Size)
	case LayoutChunked:
		e.u8(uint8(len(m.ChunkDims)))
		e.offset(m.Address)
		for _, d := range m.ChunkDims {
			e.u32(d)
		}
	}
	return e.err
}

func (m *DataLayout) SerializedSize(w *binpkg.Writer) int {
	switch m.Class {
	case LayoutCompact:
		return 4 + len(m.CompactData)
	case LayoutContiguous:
		return 2 + w.OffsetSize() + w.LengthSize()
	case LayoutChunked:
		return 3 + w.OffsetSize() + 4*len(m.ChunkDims)
	}
	return 2
}

// NewContiguousLayout describes size bytes of raw data at addr.
func NewContiguousLayout(addr, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: addr, Size: size}
}

// NewChunkedLayout describes chunked storage indexed by the B-tree at addr.
func NewChunkedLayout(addr uint64, chunk []uint64, elemSize uint32) *DataLayout {
	dims := make([]uint32, len(chunk)+1)
	for i, c := range chunk {
		dims[i] = uint32(c)
	}
	dims[len(chunk)] = elemSize
	return &DataLayout{Version: 3, Class: LayoutChunked, Address: addr, ChunkDims: dims}
}
