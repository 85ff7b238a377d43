package filter

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/robert-malhotra/volpack/internal/message"
)

// defaultLZ4Block is the block size the HDF5 LZ4 plugin uses when the
// client data leaves it unset.
const defaultLZ4Block = 1 << 30

var errLZ4Corrupt = errors.New("lz4: corrupt chunk")

// LZ4 implements filter 32004. A chunk is an 8-byte big-endian original size
// and a 4-byte block size, then one record per block: a 4-byte big-endian
// length and the block bytes. A block whose length equals its original size
// is stored uncompressed.
type LZ4 struct {
	blockSize int
}

func NewLZ4(clientData []uint32) *LZ4 {
	size := defaultLZ4Block
	if len(clientData) > 0 && clientData[0] > 0 {
		size = int(clientData[0])
	}
	return &LZ4{blockSize: size}
}

func (f *LZ4) ID() uint16 { return message.FilterLZ4 }

func (f *LZ4) Encode(input []byte) ([]byte, error) {
	block := min(f.blockSize, len(input))
	out := make([]byte, 12, 12+lz4.CompressBlockBound(len(input))+4)
	binary.BigEndian.PutUint64(out[0:8], uint64(len(input)))
	binary.BigEndian.PutUint32(out[8:12], uint32(block))

	scratch := make([]byte, lz4.CompressBlockBound(block))
	for src := input; len(src) > 0; {
		n := min(block, len(src))
		c, err := lz4.CompressBlock(src[:n], scratch, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		out = binary.BigEndian.AppendUint32(out, 0)
		if c == 0 || c >= n {
			binary.BigEndian.PutUint32(out[len(out)-4:], uint32(n))
			out = append(out, src[:n]...)
		} else {
			binary.BigEndian.PutUint32(out[len(out)-4:], uint32(c))
			out = append(out, scratch[:c]...)
		}
		src = src[n:]
	}
	return out, nil
}

func (f *LZ4) Decode(input []byte) ([]byte, error) {
	if len(input) < 12 {
		return nil, errLZ4Corrupt
	}
	total := binary.BigEndian.Uint64(input[0:8])
	block := int(binary.BigEndian.Uint32(input[8:12]))
	if block <= 0 {
		block = int(total)
	}
	in := input[12:]
	out := make([]byte, total)

	for pos := 0; pos < int(total); {
		if len(in) < 4 {
			return nil, errLZ4Corrupt
		}
		c := int(binary.BigEndian.Uint32(in[0:4]))
		in = in[4:]
		n := min(block, int(total)-pos)
		if c > len(in) {
			return nil, errLZ4Corrupt
		}
		if c == n {
			copy(out[pos:], in[:c])
		} else {
			got, err := lz4.UncompressBlock(in[:c], out[pos:pos+n])
			if err != nil {
				return nil, fmt.Errorf("lz4 decompress: %w", err)
			}
			if got != n {
				return nil, errLZ4Corrupt
			}
		}
		in = in[c:]
		pos += n
	}
	return out, nil
}
