package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// Attribute is the attribute message (0x000C).
type Attribute struct {
	Version   uint8
	Name      string
	Charset   CharacterSet
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

func parseAttribute(data []byte, r *binpkg.Reader) (*Attribute, error) {
	d := newDecoder(data)
	a := &Attribute{Version: d.u8()}
	if a.Version < 1 || a.Version > 3 {
		return nil, fmt.Errorf("unsupported attribute version %d", a.Version)
	}
	d.skip(1) // flags; shared datatypes are not supported
	nameSize := int(d.u16())
	dtSize := int(d.u16())
	dsSize := int(d.u16())
	if a.Version == 3 {
		a.Charset = CharacterSet(d.u8())
	}

	// Version 1 pads each field to a multiple of 8 bytes.
	padded := func(n int) int {
		if a.Version == 1 {
			return (n + 7) &^ 7
		}
		return n
	}

	a.Name = d.cstring(padded(nameSize))
	dtBytes := d.bytes(padded(dtSize))
	dsBytes := d.bytes(padded(dsSize))
	if d.err != nil {
		return nil, d.err
	}

	dt, err := parseDatatype(dtBytes[:dtSize])
	if err != nil {
		return nil, fmt.Errorf("attribute %q datatype: %w", a.Name, err)
	}
	ds, err := parseDataspace(dsBytes[:dsSize], r)
	if err != nil {
		return nil, fmt.Errorf("attribute %q dataspace: %w", a.Name, err)
	}
	a.Datatype, a.Dataspace = dt, ds
	a.Data = d.rest()
	return a, nil
}

// Serialize writes a version 3 attribute.
func (m *Attribute) Serialize(w *binpkg.Writer) error {
	e := &encoder{w: w}
	e.u8(3)
	e.u8(0)
	e.u16(uint16(len(m.Name) + 1))
	e.u16(uint16(m.Datatype.SerializedSize(w)))
	e.u16(uint16(m.Dataspace.SerializedSize(w)))
	e.u8(uint8(m.Charset))
	e.bytes(append([]byte(m.Name), 0))
	m.Datatype.encode(e)
	e.do(func() error { return m.Dataspace.Serialize(w) })
	e.bytes(m.Data)
	return e.err
}

func (m *Attribute) SerializedSize(w *binpkg.Writer) int {
	return 9 + len(m.Name) + 1 + m.Datatype.SerializedSize(w) + m.Dataspace.SerializedSize(w) + len(m.Data)
}

// NewAttribute builds an attribute message; data must already be encoded.
func NewAttribute(name string, dt *Datatype, ds *Dataspace, data []byte) *Attribute {
	return &Attribute{Version: 3, Name: name, Charset: CharsetUTF8, Datatype: dt, Dataspace: ds, Data: data}
}
