package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// DatatypeClass is the HDF5 type class.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

var classNames = [...]string{
	"integer", "float", "time", "string", "bitfield", "opaque",
	"compound", "reference", "enum", "vlen", "array",
}

func (c DatatypeClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ByteOrder of numeric types.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// StringPadding is how fixed-length strings are padded.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// CharacterSet is the string encoding.
type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype is the datatype message (0x0003).
type Datatype struct {
	Version   uint8
	Class     DatatypeClass
	ClassBits uint32
	Size      uint32

	ByteOrder    ByteOrder
	Signed       bool
	BitOffset    uint16
	BitPrecision uint16

	Padding StringPadding
	CharSet CharacterSet

	// Base is the element type of a variable-length type.
	Base           *Datatype
	IsVarLenString bool

	// Properties holds the raw class-specific bytes.
	Properties []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

func (m *Datatype) IsInteger() bool { return m.Class == ClassFixedPoint }
func (m *Datatype) IsFloat() bool   { return m.Class == ClassFloatPoint }

// IsString reports fixed-length and variable-length strings.
func (m *Datatype) IsString() bool {
	return m.Class == ClassString || (m.Class == ClassVarLen && m.IsVarLenString)
}

func (m *Datatype) String() string {
	switch {
	case m.IsVarLenString:
		return "vlen string"
	case m.Class == ClassString:
		return fmt.Sprintf("string[%d]", m.Size)
	case m.Class == ClassFixedPoint && m.Signed:
		return fmt.Sprintf("int%d", m.Size*8)
	case m.Class == ClassFixedPoint:
		return fmt.Sprintf("uint%d", m.Size*8)
	case m.Class == ClassFloatPoint:
		return fmt.Sprintf("float%d", m.Size*8)
	}
	return fmt.Sprintf("%s(%d bytes)", m.Class, m.Size)
}

func parseDatatype(data []byte) (*Datatype, error) {
	dt, _, err := decodeDatatype(data)
	return dt, err
}

// decodeDatatype parses a datatype and reports how many bytes it used.
func decodeDatatype(data []byte) (*Datatype, int, error) {
	d := newDecoder(data)
	cv := d.u8()
	bits := d.bytes(3)
	size := d.u32()
	if d.err != nil {
		return nil, 0, d.err
	}

	dt := &Datatype{
		Version:   cv >> 4,
		Class:     DatatypeClass(cv & 0x0F),
		ClassBits: uint32(bits[0]) | uint32(bits[1])<<8 | uint32(bits[2])<<16,
		Size:      size,
	}

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		dt.Signed = dt.ClassBits&0x08 != 0
		dt.Properties = d.bytes(4)
		if dt.Properties != nil {
			dt.BitOffset = uint16(binpkg.DecodeUint(dt.Properties[0:2]))
			dt.BitPrecision = uint16(binpkg.DecodeUint(dt.Properties[2:4]))
		}
	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		dt.Properties = d.bytes(12)
	case ClassString:
		dt.Padding = StringPadding(dt.ClassBits & 0x0F)
		dt.CharSet = CharacterSet((dt.ClassBits >> 4) & 0x0F)
	case ClassReference:
	case ClassOpaque:
		dt.Properties = d.bytes(int(dt.ClassBits & 0xFF))
	case ClassVarLen:
		dt.IsVarLenString = dt.ClassBits&0x0F == 1
		dt.Padding = StringPadding((dt.ClassBits >> 4) & 0x0F)
		dt.CharSet = CharacterSet((dt.ClassBits >> 8) & 0x0F)
		base, n, err := decodeDatatype(d.rest())
		if err != nil {
			return nil, 0, fmt.Errorf("vlen base type: %w", err)
		}
		dt.Base = base
		d.skip(n)
	default:
		// Compound, enum, array and time types are kept opaque.
		dt.Properties = d.rest()
		d.skip(len(dt.Properties))
	}
	return dt, d.off, d.err
}

// Serialize writes a version 1 datatype.
func (m *Datatype) Serialize(w *binpkg.Writer) error {
	e := &encoder{w: w}
	m.encode(e)
	return e.err
}

func (m *Datatype) encode(e *encoder) {
	version := m.Version
	if version == 0 {
		version = 1
	}
	e.u8(uint8(m.Class) | version<<4)
	e.u8(uint8(m.ClassBits))
	e.u8(uint8(m.ClassBits >> 8))
	e.u8(uint8(m.ClassBits >> 16))
	e.u32(m.Size)

	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		e.u16(m.BitOffset)
		e.u16(m.BitPrecision)
	case ClassVarLen:
		if m.Base != nil {
			m.Base.encode(e)
		}
	default:
		e.bytes(m.Properties)
	}
}

func (m *Datatype) SerializedSize(w *binpkg.Writer) int {
	n := 8
	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		n += 4
	case ClassVarLen:
		if m.Base != nil {
			n += m.Base.SerializedSize(w)
		}
	default:
		n += len(m.Properties)
	}
	return n
}

// NewFixedPointDatatype returns a little-endian integer type.
func NewFixedPointDatatype(size uint32, signed bool) *Datatype {
	var bits uint32
	if signed {
		bits |= 0x08
	}
	return &Datatype{
		Version:      1,
		Class:        ClassFixedPoint,
		ClassBits:    bits,
		Size:         size,
		Signed:       signed,
		BitPrecision: uint16(size * 8),
	}
}

// NewFloatDatatype returns a little-endian IEEE 754 type of 4 or 8 bytes.
func NewFloatDatatype(size uint32) *Datatype {
	var sign uint32
	var props []byte
	switch size {
	case 4:
		sign = 31
		props = []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}
	case 8:
		sign = 63
		props = []byte{0, 0, 64, 0, 52, 11, 0, 52, 255, 3, 0, 0}
	default:
		props = make([]byte, 12)
	}
	// Bit 5 marks an implied leading mantissa bit; byte 1 is the sign position.
	return &Datatype{
		Version:    1,
		Class:      ClassFloatPoint,
		ClassBits:  1<<5 | sign<<8,
		Size:       size,
		Properties: props,
	}
}

// NewStringDatatype returns a fixed-length string type.
func NewStringDatatype(size uint32, padding StringPadding, charset CharacterSet) *Datatype {
	return &Datatype{
		Version:   1,
		Class:     ClassString,
		ClassBits: uint32(padding) | uint32(charset)<<4,
		Size:      size,
		Padding:   padding,
		CharSet:   charset,
	}
}

// NewVarLenStringDatatype returns a variable-length string type. Elements
// are 16 bytes on disk: a length and a global heap ID.
func NewVarLenStringDatatype(charset CharacterSet) *Datatype {
	return &Datatype{
		Version:        1,
		Class:          ClassVarLen,
		ClassBits:      1 | uint32(PadNullTerm)<<4 | uint32(charset)<<8,
		Size:           16,
		CharSet:        charset,
		Base:           NewStringDatatype(1, PadNullTerm, charset),
		IsVarLenString: true,
	}
}
