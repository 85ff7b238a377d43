package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/robert-malhotra/volpack/internal/heap"
	"github.com/robert-malhotra/volpack/internal/message"
)

var (
	ErrNotNumeric = errors.New("datatype is not numeric")
	ErrNotString  = errors.New("datatype is not a string")
	ErrShortData  = errors.New("data shorter than element count")
)

// Number is the set of Go types numeric datasets decode to.
type Number interface {
	int8 | int16 | int32 | int64 | int |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// HeapReader resolves global heap objects.
type HeapReader interface {
	HeapObject(id heap.ID) ([]byte, error)
}

// ByteOrder returns the Go byte order of a numeric datatype.
func ByteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// IsNumeric reports whether Numbers can decode dt.
func IsNumeric(dt *message.Datatype) bool {
	switch dt.Class {
	case message.ClassFixedPoint:
		return dt.Size == 1 || dt.Size == 2 || dt.Size == 4 || dt.Size == 8
	case message.ClassFloatPoint:
		return dt.Size == 4 || dt.Size == 8
	}
	return false
}

// Numbers decodes n elements of a numeric datatype.
func Numbers[T Number](dt *message.Datatype, data []byte, n uint64) ([]T, error) {
	if !IsNumeric(dt) {
		return nil, fmt.Errorf("%w: %s", ErrNotNumeric, dt)
	}
	size := uint64(dt.Size)
	if uint64(len(data)) < n*size {
		return nil, fmt.Errorf("%w: %d bytes for %d elements of %d bytes", ErrShortData, len(data), n, size)
	}
	order := ByteOrder(dt)
	out := make([]T, n)

	for i := range out {
		b := data[uint64(i)*size:]
		switch {
		case dt.Class == message.ClassFloatPoint && size == 8:
			out[i] = T(math.Float64frombits(order.Uint64(b)))
		case dt.Class == message.ClassFloatPoint:
			out[i] = T(math.Float32frombits(order.Uint32(b)))
		case dt.Signed:
			out[i] = T(signed(order, b, size))
		default:
			out[i] = T(unsigned(order, b, size))
		}
	}
	return out, nil
}

func unsigned(order binary.ByteOrder, b []byte, size uint64) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	}
	return order.Uint64(b)
}

func signed(order binary.ByteOrder, b []byte, size uint64) int64 {
	switch size {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(order.Uint16(b)))
	case 4:
		return int64(int32(order.Uint32(b)))
	}
	return int64(order.Uint64(b))
}

// Strings decodes n string elements. hr may be nil for fixed-length types.
func Strings(dt *message.Datatype, data []byte, n uint64, offsetSize int, hr HeapReader) ([]string, error) {
	switch {
	case dt.Class == message.ClassString:
		return fixedStrings(dt, data, n)
	case dt.IsVarLenString:
		return varLenStrings(data, n, offsetSize, hr)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotString, dt)
}

func fixedStrings(dt *message.Datatype, data []byte, n uint64) ([]string, error) {
	size := uint64(dt.Size)
	if uint64(len(data)) < n*size {
		return nil, ErrShortData
	}
	out := make([]string, n)
	for i := range out {
		b := data[uint64(i)*size : uint64(i+1)*size]
		switch dt.Padding {
		case message.PadSpacePad:
			end := len(b)
			for end > 0 && b[end-1] == ' ' {
				end--
			}
			b = b[:end]
		default:
			for j, c := range b {
				if c == 0 {
					b = b[:j]
					break
				}
			}
		}
		out[i] = string(b)
	}
	return out, nil
}

func varLenStrings(data []byte, n uint64, offsetSize int, hr HeapReader) ([]string, error) {
	size := uint64(heap.VLenSize(offsetSize))
	if uint64(len(data)) < n*size {
		return nil, ErrShortData
	}
	out := make([]string, n)
	for i := range out {
		v, err := heap.DecodeVLen(data[uint64(i)*size:], offsetSize)
		if err != nil {
			return nil, err
		}
		if v.Length == 0 {
			continue
		}
		if hr == nil {
			return nil, errors.New("variable-length strings need a heap reader")
		}
		obj, err := hr.HeapObject(v.ID)
		if err != nil {
			return nil, fmt.Errorf("string element %d: %w", i, err)
		}
		if int(v.Length) > len(obj) {
			return nil, fmt.Errorf("string element %d: length %d exceeds heap object of %d bytes", i, v.Length, len(obj))
		}
		out[i] = string(obj[:v.Length])
	}
	return out, nil
}

// DatatypeOf returns the little-endian datatype matching T.
func DatatypeOf[T Number]() *message.Datatype {
	var zero T
	switch any(zero).(type) {
	case int8:
		return message.NewFixedPointDatatype(1, true)
	case int16:
		return message.NewFixedPointDatatype(2, true)
	case int32:
		return message.NewFixedPointDatatype(4, true)
	case int64, int:
		return message.NewFixedPointDatatype(8, true)
	case uint8:
		return message.NewFixedPointDatatype(1, false)
	case uint16:
		return message.NewFixedPointDatatype(2, false)
	case uint32:
		return message.NewFixedPointDatatype(4, false)
	case uint64:
		return message.NewFixedPointDatatype(8, false)
	case float32:
		return message.NewFloatDatatype(4)
	}
	return message.NewFloatDatatype(8)
}

// EncodeNumbers encodes vals with the datatype DatatypeOf[T] returns.
func EncodeNumbers[T Number](vals []T) (*message.Datatype, []byte) {
	dt := DatatypeOf[T]()
	size := int(dt.Size)
	out := make([]byte, len(vals)*size)
	for i, v := range vals {
		b := out[i*size:]
		switch x := any(v).(type) {
		case float64:
			binary.LittleEndian.PutUint64(b, math.Float64bits(x))
		case float32:
			binary.LittleEndian.PutUint32(b, math.Float32bits(x))
		default:
			putInt(b, size, uint64(int64(v)))
		}
	}
	return dt, out
}

// PutFloat64s encodes vals as little-endian float64 into dst.
func PutFloat64s(dst []byte, vals []float64) {
	for i, v := range vals {
		binary.LittleEndian.PutUint64(dst[8*i:], math.Float64bits(v))
	}
}

func putInt(b []byte, size int, v uint64) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}
