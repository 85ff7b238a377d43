package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// LinkType is the kind of link.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link is the link message (0x0006) stored in compact group headers.
type Link struct {
	Version       uint8
	LinkType      LinkType
	CreationOrder uint64
	HasOrder      bool
	Charset       CharacterSet
	Name          string

	ObjectAddress uint64 // hard links
	Target        []byte // soft and external links, undecoded
}

func (m *Link) Type() Type { return TypeLink }

func (m *Link) IsHard() bool { return m.LinkType == LinkTypeHard }

func parseLink(data []byte, r *binpkg.Reader) (*Link, error) {
	d := newDecoder(data)
	l := &Link{Version: d.u8()}
	if l.Version != 1 {
		return nil, fmt.Errorf("unsupported link version %d", l.Version)
	}
	flags := d.u8()
	if flags&0x08 != 0 {
		l.LinkType = LinkType(d.u8())
	}
	if flags&0x04 != 0 {
		l.HasOrder = true
		l.CreationOrder = d.uint(8)
	}
	if flags&0x10 != 0 {
		l.Charset = CharacterSet(d.u8())
	}
	nameLen := int(d.uint(1 << (flags & 0x03)))
	l.Name = string(d.bytes(nameLen))

	switch l.LinkType {
	case LinkTypeHard:
		l.ObjectAddress = d.uint(r.OffsetSize())
	default:
		l.Target = d.bytes(int(d.u16()))
	}
	return l, d.err
}

// nameLengthSize picks the smallest width field for n.
func nameLengthSize(n int) (size int, bits uint8) {
	switch {
	case n < 1<<8:
		return 1, 0
	case n < 1<<16:
		return 2, 1
	}
	return 4, 2
}

// Serialize writes a hard link.
func (m *Link) Serialize(w *binpkg.Writer) error {
	if m.LinkType != LinkTypeHard {
		return fmt.Errorf("only hard links can be written, got type %d", m.LinkType)
	}
	e := &encoder{w: w}
	size, flags := nameLengthSize(len(m.Name))
	if m.HasOrder {
		flags |= 0x04
	}
	if m.Charset != CharsetASCII {
		flags |= 0x10
	}
	e.u8(1)
	e.u8(flags)
	if m.HasOrder {
		e.uint(m.CreationOrder, 8)
	}
	if m.Charset != CharsetASCII {
		e.u8(uint8(m.Charset))
	}
	e.uint(uint64(len(m.Name)), size)
	e.bytes([]byte(m.Name))
	e.offset(m.ObjectAddress)
	return e.err
}

func (m *Link) SerializedSize(w *binpkg.Writer) int {
	size, _ := nameLengthSize(len(m.Name))
	n := 2 + size + len(m.Name) + w.OffsetSize()
	if m.HasOrder {
		n += 8
	}
	if m.Charset != CharsetASCII {
		n++
	}
	return n
}

// NewHardLink links name to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{Version: 1, LinkType: LinkTypeHard, Name: name, ObjectAddress: addr}
}

// LinkInfo is the link info message (0x0002). Undefined heap and index
// addresses mean all links are stored compactly in the header.
type LinkInfo struct {
	Version          uint8
	Flags            uint8
	MaxCreationIndex uint64
	FractalHeapAddr  uint64
	NameIndexAddr    uint64
	OrderIndexAddr   uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// IsCompact reports whether no dense link storage is in use.
func (m *LinkInfo) IsCompact() bool {
	return m.FractalHeapAddr == binpkg.Undefined(8) || m.FractalHeapAddr == binpkg.Undefined(4)
}

func parseLinkInfo(data []byte, r *binpkg.Reader) (*LinkInfo, error) {
	d := newDecoder(data)
	li := &LinkInfo{Version: d.u8(), Flags: d.u8()}
	if li.Flags&0x01 != 0 {
		li.MaxCreationIndex = d.uint(8)
	}
	li.FractalHeapAddr = d.uint(r.OffsetSize())
	li.NameIndexAddr = d.uint(r.OffsetSize())
	if li.Flags&0x02 != 0 {
		li.OrderIndexAddr = d.uint(r.OffsetSize())
	}
	return li, d.err
}

func (m *LinkInfo) Serialize(w *binpkg.Writer) error {
	e := &encoder{w: w}
	e.u8(0)
	e.u8(m.Flags)
	if m.Flags&0x01 != 0 {
		e.uint(m.MaxCreationIndex, 8)
	}
	e.offset(m.FractalHeapAddr)
	e.offset(m.NameIndexAddr)
	if m.Flags&0x02 != 0 {
		e.offset(m.OrderIndexAddr)
	}
	return e.err
}

func (m *LinkInfo) SerializedSize(w *binpkg.Writer) int {
	n := 2 + 2*w.OffsetSize()
	if m.Flags&0x01 != 0 {
		n += 8
	}
	if m.Flags&0x02 != 0 {
		n += w.OffsetSize()
	}
	return n
}

// NewCompactLinkInfo returns link info for a group with only header links.
func NewCompactLinkInfo(offsetSize int) *LinkInfo {
	u := binpkg.Undefined(offsetSize)
	return &LinkInfo{FractalHeapAddr: u, NameIndexAddr: u, OrderIndexAddr: u}
}

// GroupInfo is the group info message (0x000A).
type GroupInfo struct {
	Version       uint8
	Flags         uint8
	MaxCompact    uint16
	MinDense      uint16
	EstNumEntries uint16
	EstNameLength uint16
}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

func parseGroupInfo(data []byte) (*GroupInfo, error) {
	d := newDecoder(data)
	gi := &GroupInfo{Version: d.u8(), Flags: d.u8()}
	if gi.Flags&0x01 != 0 {
		gi.MaxCompact = d.u16()
		gi.MinDense = d.u16()
	}
	if gi.Flags&0x02 != 0 {
		gi.EstNumEntries = d.u16()
		gi.EstNameLength = d.u16()
	}
	return gi, d.err
}

func (m *GroupInfo) Serialize(w *binpkg.Writer) error {
	e := &encoder{w: w}
	e.u8(0)
	e.u8(m.Flags)
	if m.Flags&0x01 != 0 {
		e.u16(m.MaxCompact)
		e.u16(m.MinDense)
	}
	if m.Flags&0x02 != 0 {
		e.u16(m.EstNumEntries)
		e.u16(m.EstNameLength)
	}
	return e.err
}

func (m *GroupInfo) SerializedSize(*binpkg.Writer) int {
	n := 2
	if m.Flags&0x01 != 0 {
		n += 4
	}
	if m.Flags&0x02 != 0 {
		n += 4
	}
	return n
}
