package heap

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/volpack/internal/binary"
)

var signature = []byte("GCOL")

// MinCollectionSize is the smallest collection HDF5 will read.
const MinCollectionSize = 4096

var ErrObjectNotFound = errors.New("global heap object not found")

// Collection is a parsed global heap collection.
type Collection struct {
	Address uint64
	Size    uint64
	objects map[uint16][]byte
}

// ID locates one object in a collection.
type ID struct {
	Collection uint64
	Index      uint32
}

// VLen is a variable-length element as stored in a dataset.
type VLen struct {
	Length uint32
	ID
}

// VLenSize is the encoded size of a VLen for the given offset width.
func VLenSize(offsetSize int) int {
	return 4 + offsetSize + 4
}

// DecodeVLen parses a variable-length element.
func DecodeVLen(data []byte, offsetSize int) (VLen, error) {
	if len(data) < VLenSize(offsetSize) {
		return VLen{}, fmt.Errorf("vlen element: need %d bytes, have %d", VLenSize(offsetSize), len(data))
	}
	return VLen{
		Length: uint32(binary.DecodeUint(data[0:4])),
		ID: ID{
			Collection: binary.DecodeUint(data[4 : 4+offsetSize]),
			Index:      uint32(binary.DecodeUint(data[4+offsetSize : 8+offsetSize])),
		},
	}, nil
}

// ReadCollection parses the collection at address.
func ReadCollection(r *binary.Reader, address uint64) (*Collection, error) {
	if r.IsUndefinedOffset(address) || address == 0 {
		return nil, fmt.Errorf("invalid global heap address %d", address)
	}
	hr := r.At(int64(address))

	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading global heap: %w", err)
	}
	if string(sig) != string(signature) {
		return nil, fmt.Errorf("invalid global heap signature %q at %d", sig, address)
	}
	version, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("unsupported global heap version %d", version)
	}
	hr.Skip(3)
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}

	c := &Collection{Address: address, Size: size, objects: make(map[uint16][]byte)}
	end := int64(address + size)
	objHeader := int64(8 + r.LengthSize())

	for hr.Pos()+objHeader <= end {
		index, err := hr.ReadUint16()
		if err != nil {
			return nil, err
		}
		if index == 0 {
			break
		}
		hr.Skip(6)
		n, err := hr.ReadLength()
		if err != nil {
			return nil, err
		}
		data, err := hr.ReadBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("reading heap object %d: %w", index, err)
		}
		c.objects[index] = data
		hr.Skip(int64(align8(int(n)) - int(n)))
	}
	return c, nil
}

// Object returns the bytes of object index.
func (c *Collection) Object(index uint32) ([]byte, error) {
	data, ok := c.objects[uint16(index)]
	if !ok || index > 0xFFFF {
		return nil, fmt.Errorf("%w: index %d in collection %d", ErrObjectNotFound, index, c.Address)
	}
	return data, nil
}

// Len is the number of objects in the collection.
func (c *Collection) Len() int { return len(c.objects) }

func align8(n int) int { return (n + 7) &^ 7 }
