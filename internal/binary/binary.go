// Package binary provides positioned readers and writers for HDF5 structures
// whose address and length fields have a file-specific width.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrInvalidSize is returned when an offset or length width is not 2, 4 or 8.
var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// Config carries the sizing rules from the superblock.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// DefaultConfig is what volpack writes: little-endian, 8-byte fields.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
}

// Validate reports whether the field widths are usable.
func (c Config) Validate() error {
	for _, n := range []int{c.OffsetSize, c.LengthSize} {
		if n != 2 && n != 4 && n != 8 {
			return ErrInvalidSize
		}
	}
	return nil
}

// Undefined returns the all-ones value HDF5 uses for an unset field of n bytes.
func Undefined(n int) uint64 {
	if n >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(8*uint(n)) - 1
}

func putUint(order binary.ByteOrder, buf []byte, v uint64) {
	switch len(buf) {
	case 1:
		buf[0] = uint8(v)
	case 2:
		order.PutUint16(buf, uint16(v))
	case 4:
		order.PutUint32(buf, uint32(v))
	case 8:
		order.PutUint64(buf, v)
	default:
		for i := range buf {
			buf[i] = byte(v >> (8 * i))
		}
	}
}

func getUint(order binary.ByteOrder, buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

// DecodeUint decodes a little-endian unsigned integer of len(buf) bytes.
func DecodeUint(buf []byte) uint64 {
	return getUint(binary.LittleEndian, buf)
}

// Reader reads from an io.ReaderAt at a private cursor.
type Reader struct {
	r   io.ReaderAt
	cfg Config
	pos int64
}

// NewReader creates a reader positioned at offset 0.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{r: r, cfg: cfg}
}

// At returns a reader sharing the source, positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, cfg: r.cfg, pos: offset}
}

func (r *Reader) Pos() int64                  { return r.pos }
func (r *Reader) Skip(n int64)                { r.pos += n }
func (r *Reader) OffsetSize() int             { return r.cfg.OffsetSize }
func (r *Reader) LengthSize() int             { return r.cfg.LengthSize }
func (r *Reader) ByteOrder() binary.ByteOrder { return r.cfg.ByteOrder }

// Peek reads n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadBytes reads n bytes and advances.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUintN reads an n-byte unsigned integer.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return getUint(r.cfg.ByteOrder, buf), nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.ReadUintN(1)
	return uint8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	return r.ReadUintN(8)
}

// ReadOffset reads a file address.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadUintN(r.cfg.OffsetSize)
}

// ReadLength reads a length field.
func (r *Reader) ReadLength() (uint64, error) {
	return r.ReadUintN(r.cfg.LengthSize)
}

// IsUndefinedOffset reports whether addr is the unset address.
func (r *Reader) IsUndefinedOffset(addr uint64) bool {
	return addr == Undefined(r.cfg.OffsetSize)
}

// DecodeUint decodes an integer of len(buf) bytes in the reader's byte order.
func (r *Reader) DecodeUint(buf []byte) uint64 {
	return getUint(r.cfg.ByteOrder, buf)
}

// Writer writes to an io.WriterAt at a private cursor.
type Writer struct {
	w   io.WriterAt
	cfg Config
	pos int64
}

// NewWriter creates a writer positioned at offset 0.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{w: w, cfg: cfg}
}

// At returns a writer sharing the sink, positioned at offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, cfg: w.cfg, pos: offset}
}

func (w *Writer) Pos() int64                  { return w.pos }
func (w *Writer) Config() Config              { return w.cfg }
func (w *Writer) OffsetSize() int             { return w.cfg.OffsetSize }
func (w *Writer) LengthSize() int             { return w.cfg.LengthSize }
func (w *Writer) ByteOrder() binary.ByteOrder { return w.cfg.ByteOrder }

// UndefinedOffset is the unset address for this file.
func (w *Writer) UndefinedOffset() uint64 {
	return Undefined(w.cfg.OffsetSize)
}

// WriteBytes writes p and advances.
func (w *Writer) WriteBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(p, w.pos)
	w.pos += int64(n)
	return err
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// WriteUintN writes v in n bytes.
func (w *Writer) WriteUintN(v uint64, n int) error {
	buf := make([]byte, n)
	putUint(w.cfg.ByteOrder, buf, v)
	return w.WriteBytes(buf)
}

func (w *Writer) WriteUint8(v uint8) error   { return w.WriteUintN(uint64(v), 1) }
func (w *Writer) WriteUint16(v uint16) error { return w.WriteUintN(uint64(v), 2) }
func (w *Writer) WriteUint32(v uint32) error { return w.WriteUintN(uint64(v), 4) }
func (w *Writer) WriteUint64(v uint64) error { return w.WriteUintN(v, 8) }

// WriteOffset writes a file address.
func (w *Writer) WriteOffset(v uint64) error {
	return w.WriteUintN(v, w.cfg.OffsetSize)
}

// WriteLength writes a length field.
func (w *Writer) WriteLength(v uint64) error {
	return w.WriteUintN(v, w.cfg.LengthSize)
}

// Buffer is a growable in-memory io.WriterAt, used to assemble structures
// that need a checksum before they hit the file.
type Buffer struct {
	buf []byte
}

func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(b.buf) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// Bytes returns the assembled contents.
func (b *Buffer) Bytes() []byte { return b.buf }
