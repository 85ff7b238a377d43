package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// Space allocation times.
const (
	AllocEarly       uint8 = 1
	AllocLate        uint8 = 2
	AllocIncremental uint8 = 3
)

// Fill value write times.
const (
	FillOnAlloc uint8 = 0
	FillNever   uint8 = 1
	FillIfSet   uint8 = 2
)

// FillValue is the fill value message (0x0005).
type FillValue struct {
	Version        uint8
	SpaceAllocTime uint8
	FillWriteTime  uint8
	IsDefined      bool
	Value          []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

func parseFillValue(data []byte) (*FillValue, error) {
	d := newDecoder(data)
	fv := &FillValue{Version: d.u8()}

	switch fv.Version {
	case 1, 2:
		fv.SpaceAllocTime = d.u8()
		fv.FillWriteTime = d.u8()
		fv.IsDefined = d.u8() != 0
		if fv.IsDefined || fv.Version == 1 {
			if size := d.u32(); size > 0 {
				fv.Value = d.bytes(int(size))
			}
		}
	case 3:
		flags := d.u8()
		fv.SpaceAllocTime = flags & 0x03
		fv.FillWriteTime = (flags >> 2) & 0x03
		fv.IsDefined = flags&0x20 != 0
		if fv.IsDefined {
			fv.Value = d.bytes(int(d.u32()))
		}
	default:
		return nil, fmt.Errorf("unsupported fill value version %d", fv.Version)
	}
	return fv, d.err
}

// Serialize writes a version 3 fill value message.
func (m *FillValue) Serialize(w *binpkg.Writer) error {
	e := &encoder{w: w}
	flags := m.SpaceAllocTime&0x03 | (m.FillWriteTime&0x03)<<2
	if m.IsDefined {
		flags |= 0x20
	}
	e.u8(3)
	e.u8(flags)
	if m.IsDefined {
		e.u32(uint32(len(m.Value)))
		e.bytes(m.Value)
	}
	return e.err
}

func (m *FillValue) SerializedSize(w *binpkg.Writer) int {
	if m.IsDefined {
		return 6 + len(m.Value)
	}
	return 2
}

// NewFillValue returns a fill value message with no user-defined value.
func NewFillValue(allocTime, writeTime uint8) *FillValue {
	return &FillValue{Version: 3, SpaceAllocTime: allocTime, FillWriteTime: writeTime}
}
