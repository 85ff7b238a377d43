package filter

import (
	"encoding/binary"
	"errors"
	"math/bits"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
	"github.com/robert-malhotra/volpack/internal/message"
)

var ErrChecksumMismatch = errors.New("fletcher32 checksum mismatch")

// Fletcher32 appends a 4-byte checksum to each chunk.
type Fletcher32 struct{}

func NewFletcher32([]uint32) *Fletcher32 { return &Fletcher32{} }

func (f *Fletcher32) ID() uint16 { return message.FilterFletcher32 }

func (f *Fletcher32) Encode(input []byte) ([]byte, error) {
	out := make([]byte, len(input)+4)
	copy(out, input)
	binary.LittleEndian.PutUint32(out[len(input):], binpkg.Fletcher32(input))
	return out, nil
}

// Decode verifies and strips the checksum. Files from old HDF5 releases
// stored it with the bytes of each half swapped, so that form is accepted.
func (f *Fletcher32) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, errors.New("fletcher32: chunk shorter than checksum")
	}
	n := len(input) - 4
	stored := binary.LittleEndian.Uint32(input[n:])
	sum := binpkg.Fletcher32(input[:n])
	if stored != sum {
		swapped := uint32(bits.ReverseBytes16(uint16(sum>>16)))<<16 | uint32(bits.ReverseBytes16(uint16(sum)))
		if stored != swapped {
			return nil, ErrChecksumMismatch
		}
	}
	return input[:n], nil
}
