package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// Signature is the 8-byte HDF5 format signature.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

// Superblock holds the fields of a version 2 or 3 superblock.
type Superblock struct {
	Version              uint8
	OffsetSize           uint8
	LengthSize           uint8
	FileConsistencyFlags uint8

	BaseAddress                uint64
	SuperblockExtensionAddress uint64
	EOFAddress                 uint64
	RootGroupAddress           uint64

	// FileOffset is where the signature was found.
	FileOffset int64
}

// NewSuperblock returns a version 3 superblock with 8-byte fields and no
// extension. EOFAddress and RootGroupAddress are filled in by the writer.
func NewSuperblock() *Superblock {
	return &Superblock{
		Version:                    3,
		OffsetSize:                 8,
		LengthSize:                 8,
		SuperblockExtensionAddress: binpkg.Undefined(8),
	}
}

// Read locates and parses the superblock.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature)+1)
	for _, off := range searchOffsets {
		if _, err := r.ReadAt(sig, off); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:8], Signature) {
			continue
		}
		switch v := sig[8]; v {
		case 2, 3:
			sb, err := readV2(r, off)
			if err != nil {
				return nil, err
			}
			sb.FileOffset = off
			return sb, nil
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
		}
	}
	return nil, ErrNotHDF5
}

func readV2(r io.ReaderAt, off int64) (*Superblock, error) {
	fixed := make([]byte, 12)
	if _, err := r.ReadAt(fixed, off); err != nil {
		return nil, err
	}
	osize := int(fixed[9])
	if osize != 2 && osize != 4 && osize != 8 {
		return nil, fmt.Errorf("%w: offset size %d", ErrInvalidSuperblock, osize)
	}

	buf := make([]byte, 12+4*osize+4)
	if _, err := r.ReadAt(buf, off); err != nil {
		return nil, err
	}
	body := buf[:len(buf)-4]
	stored := binary.LittleEndian.Uint32(buf[len(buf)-4:])
	if binpkg.Lookup3Checksum(body) != stored {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}

	field := func(i int) uint64 {
		start := 12 + i*osize
		return binpkg.DecodeUint(buf[start : start+osize])
	}
	return &Superblock{
		Version:                    fixed[8],
		OffsetSize:                 fixed[9],
		LengthSize:                 fixed[10],
		FileConsistencyFlags:       fixed[11],
		BaseAddress:                field(0),
		SuperblockExtensionAddress: field(1),
		EOFAddress:                 field(2),
		RootGroupAddress:           field(3),
	}, nil
}

// ReaderConfig returns the binary config for reading the rest of the file.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Size is the encoded size including the checksum.
func (sb *Superblock) Size() int {
	o := int(sb.OffsetSize)
	if o == 0 {
		o = 8
	}
	return 12 + 4*o + 4
}

// Write encodes the superblock at the writer's position.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	var buf binpkg.Buffer
	bw := binpkg.NewWriter(&buf, w.Config())

	version := sb.Version
	if version < 2 {
		version = 3
	}
	ext := sb.SuperblockExtensionAddress
	if ext == 0 {
		ext = bw.UndefinedOffset()
	}

	steps := []func() error{
		func() error { return bw.WriteBytes(Signature) },
		func() error { return bw.WriteUint8(version) },
		func() error { return bw.WriteUint8(uint8(w.OffsetSize())) },
		func() error { return bw.WriteUint8(uint8(w.LengthSize())) },
		func() error { return bw.WriteUint8(sb.FileConsistencyFlags) },
		func() error { return bw.WriteOffset(sb.BaseAddress) },
		func() error { return bw.WriteOffset(ext) },
		func() error { return bw.WriteOffset(sb.EOFAddress) },
		func() error { return bw.WriteOffset(sb.RootGroupAddress) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	if err := bw.WriteUint32(binpkg.Lookup3Checksum(buf.Bytes())); err != nil {
		return err
	}
	return w.WriteBytes(buf.Bytes())
}
