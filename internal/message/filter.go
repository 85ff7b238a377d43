package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// Filter identifiers. IDs of 256 and above are registered third-party filters.
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
	FilterSZIP       uint16 = 4
	FilterLZ4        uint16 = 32004
	FilterZstd       uint16 = 32015
)

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16 // bit 0: optional
	Name       string
	ClientData []uint32
}

func (f *FilterInfo) IsOptional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline is the filter pipeline message (0x000B). Filters are listed
// in the order they are applied when writing.
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// HasFilter reports whether the pipeline contains id.
func (m *FilterPipeline) HasFilter(id uint16) bool {
	for _, f := range m.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	d := newDecoder(data)
	fp := &FilterPipeline{Version: d.u8()}
	n := int(d.u8())
	switch fp.Version {
	case 1:
		d.skip(6)
	case 2:
	default:
		return nil, fmt.Errorf("unsupported filter pipeline version %d", fp.Version)
	}

	fp.Filters = make([]FilterInfo, n)
	for i := range fp.Filters {
		f := &fp.Filters[i]
		f.ID = d.u16()
		var nameLen int
		if fp.Version == 1 || f.ID >= 256 {
			nameLen = int(d.u16())
		}
		f.Flags = d.u16()
		ncd := int(d.u16())
		if nameLen > 0 {
			f.Name = d.cstring(nameLen)
			if fp.Version == 1 && nameLen%8 != 0 {
				d.skip(8 - nameLen%8)
			}
		}
		f.ClientData = make([]uint32, ncd)
		for j := range f.ClientData {
			f.ClientData[j] = d.u32()
		}
		if fp.Version == 1 && ncd%2 != 0 {
			d.skip(4)
		}
	}
	return fp, d.err
}

// Serialize writes a version 2 pipeline. Names are never written.
func (m *FilterPipeline) Serialize(w *binpkg.Writer) error {
	e := &encoder{w: w}
	e.u8(2)
	e.u8(uint8(len(m.Filters)))
	for _, f := range m.Filters {
		e.u16(f.ID)
		if f.ID >= 256 {
			e.u16(0)
		}
		e.u16(f.Flags)
		e.u16(uint16(len(f.ClientData)))
		for _, v := range f.ClientData {
			e.u32(v)
		}
	}
	return e.err
}

func (m *FilterPipeline) SerializedSize(w *binpkg.Writer) int {
	n := 2
	for _, f := range m.Filters {
		n += 6 + 4*len(f.ClientData)
		if f.ID >= 256 {
			n += 2
		}
	}
	return n
}
