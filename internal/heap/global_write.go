package heap

import (
	"github.com/robert-malhotra/volpack/internal/binary"
)

// Writer accumulates objects for a single collection.
type Writer struct {
	objects [][]byte
}

// Add queues data and returns its object index.
func (hw *Writer) Add(data []byte) uint32 {
	hw.objects = append(hw.objects, data)
	return uint32(len(hw.objects))
}

// Len is the number of queued objects.
func (hw *Writer) Len() int { return len(hw.objects) }

// Size is the collection size Write will allocate.
func (hw *Writer) Size(lengthSize int) uint64 {
	n := 8 + lengthSize
	for _, obj := range hw.objects {
		n += 8 + lengthSize + align8(len(obj))
	}
	return uint64(max(n, MinCollectionSize))
}

// Write writes the collection at addr, which must have Size bytes reserved.
func (hw *Writer) Write(w *binary.Writer, addr uint64) error {
	lengthSize := w.LengthSize()
	size := hw.Size(lengthSize)
	cw := w.At(int64(addr))

	var buf binary.Buffer
	bw := binary.NewWriter(&buf, w.Config())
	steps := []func() error{
		func() error { return bw.WriteBytes(signature) },
		func() error { return bw.WriteUint8(1) },
		func() error { return bw.WriteZeros(3) },
		func() error { return bw.WriteLength(size) },
	}
	for i, obj := range hw.objects {
		index := uint16(i + 1)
		steps = append(steps,
			func() error { return bw.WriteUint16(index) },
			func() error { return bw.WriteZeros(6) },
			func() error { return bw.WriteLength(uint64(len(obj))) },
			func() error { return bw.WriteBytes(obj) },
			func() error { return bw.WriteZeros(align8(len(obj)) - len(obj)) },
		)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	// The free space object covers everything left, header included.
	free := size - uint64(bw.Pos())
	if free >= uint64(8+lengthSize) {
		if err := bw.WriteUint16(0); err != nil {
			return err
		}
		if err := bw.WriteZeros(6); err != nil {
			return err
		}
		if err := bw.WriteLength(free); err != nil {
			return err
		}
	}
	if err := bw.WriteZeros(int(size) - int(bw.Pos())); err != nil {
		return err
	}
	return cw.WriteBytes(buf.Bytes())
}

// EncodeVLen encodes a variable-length element referencing object index in
// the collection at addr.
func EncodeVLen(w *binary.Writer, length uint32, addr uint64, index uint32) error {
	if err := w.WriteUint32(length); err != nil {
		return err
	}
	if err := w.WriteOffset(addr); err != nil {
		return err
	}
	return w.WriteUint32(index)
}
