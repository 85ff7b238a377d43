package message

import (
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// Type is an HDF5 header message type.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeDataLayout               Type = 0x0008
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectModTime            Type = 0x000E
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
	TypeAttributeInfo            Type = 0x0015
)

func (t Type) String() string {
	switch t {
	case TypeNIL:
		return "NIL"
	case TypeDataspace:
		return "Dataspace"
	case TypeLinkInfo:
		return "LinkInfo"
	case TypeDatatype:
		return "Datatype"
	case TypeFillValueOld, TypeFillValue:
		return "FillValue"
	case TypeLink:
		return "Link"
	case TypeDataLayout:
		return "DataLayout"
	case TypeGroupInfo:
		return "GroupInfo"
	case TypeFilterPipeline:
		return "FilterPipeline"
	case TypeAttribute:
		return "Attribute"
	case TypeObjectModTime:
		return "ModificationTime"
	case TypeObjectHeaderContinuation:
		return "Continuation"
	case TypeSymbolTable:
		return "SymbolTable"
	case TypeAttributeInfo:
		return "AttributeInfo"
	}
	return fmt.Sprintf("Type(0x%04x)", uint16(t))
}

// ErrTruncated is returned when a message body ends before its fields do.
var ErrTruncated = errors.New("message truncated")

// Message is implemented by all header messages.
type Message interface {
	Type() Type
}

// Serializable is implemented by messages volpack can write.
type Serializable interface {
	Message
	Serialize(w *binpkg.Writer) error
	SerializedSize(w *binpkg.Writer) int
}

// Parse decodes a header message body.
func Parse(typ Type, data []byte, r *binpkg.Reader) (Message, error) {
	var (
		m   Message
		err error
	)
	switch typ {
	case TypeDataspace:
		m, err = parseDataspace(data, r)
	case TypeLinkInfo:
		m, err = parseLinkInfo(data, r)
	case TypeDatatype:
		m, err = parseDatatype(data)
	case TypeFillValue:
		m, err = parseFillValue(data)
	case TypeLink:
		m, err = parseLink(data, r)
	case TypeDataLayout:
		m, err = parseDataLayout(data, r)
	case TypeGroupInfo:
		m, err = parseGroupInfo(data)
	case TypeFilterPipeline:
		m, err = parseFilterPipeline(data)
	case TypeAttribute:
		m, err = parseAttribute(data, r)
	case TypeObjectHeaderContinuation:
		m, err = parseContinuation(data, r)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s message: %w", typ, err)
	}
	return m, nil
}

// Unknown wraps a message type this package does not interpret.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }

// Continuation points at a further block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

func (m *Continuation) Serialize(w *binpkg.Writer) error {
	e := &encoder{w: w}
	e.offset(m.Offset)
	e.length(m.Length)
	return e.err
}

func (m *Continuation) SerializedSize(w *binpkg.Writer) int {
	return w.OffsetSize() + w.LengthSize()
}

func parseContinuation(data []byte, r *binpkg.Reader) (*Continuation, error) {
	d := newDecoder(data)
	c := &Continuation{
		Offset: d.uint(r.OffsetSize()),
		Length: d.uint(r.LengthSize()),
	}
	return c, d.err
}

// decoder walks a message body, latching the first out-of-bounds read.
type decoder struct {
	data []byte
	off  int
	err  error
}

func newDecoder(data []byte) *decoder {
	return &decoder{data: data}
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.data) {
		d.err = ErrTruncated
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) skip(n int) { d.bytes(n) }

func (d *decoder) uint(n int) uint64 {
	b := d.bytes(n)
	if b == nil {
		return 0
	}
	return binpkg.DecodeUint(b)
}

func (d *decoder) u8() uint8   { return uint8(d.uint(1)) }
func (d *decoder) u16() uint16 { return uint16(d.uint(2)) }
func (d *decoder) u32() uint32 { return uint32(d.uint(4)) }

func (d *decoder) rest() []byte {
	if d.err != nil || d.off >= len(d.data) {
		return nil
	}
	return d.data[d.off:]
}

// cstring reads a field of n bytes and returns the text before the first NUL.
func (d *decoder) cstring(n int) string {
	b := d.bytes(n)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// encoder writes fields until the first error and remembers it.
type encoder struct {
	w   *binpkg.Writer
	err error
}

func (e *encoder) do(f func() error) {
	if e.err == nil {
		e.err = f()
	}
}

func (e *encoder) u8(v uint8)          { e.do(func() error { return e.w.WriteUint8(v) }) }
func (e *encoder) u16(v uint16)        { e.do(func() error { return e.w.WriteUint16(v) }) }
func (e *encoder) u32(v uint32)        { e.do(func() error { return e.w.WriteUint32(v) }) }
func (e *encoder) offset(v uint64)     { e.do(func() error { return e.w.WriteOffset(v) }) }
func (e *encoder) length(v uint64)     { e.do(func() error { return e.w.WriteLength(v) }) }
func (e *encoder) bytes(p []byte)      { e.do(func() error { return e.w.WriteBytes(p) }) }
func (e *encoder) uint(v uint64, n int) { e.do(func() error { return e.w.WriteUintN(v, n) }) }
