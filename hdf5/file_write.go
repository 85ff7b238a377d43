package hdf5

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/robert-malhotra/volpack/internal/alloc"
	binpkg "github.com/robert-malhotra/volpack/internal/binary"
	"github.com/robert-malhotra/volpack/internal/heap"
	"github.com/robert-malhotra/volpack/internal/message"
	"github.com/robert-malhotra/volpack/internal/object"
	"github.com/robert-malhotra/volpack/internal/superblock"
)

// Create creates a new HDF5 file at the given path, truncating any existing
// file. The file has a version 3 superblock and version 2 object headers.
func Create(path string, opts ...FileOption) (*File, error) {
	options := defaultFileOptions()
	for _, opt := range opts {
		opt(options)
	}

	osFile, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	cfg := binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: options.offsetSize,
		LengthSize: options.lengthSize,
	}
	writer := binpkg.NewWriter(osFile, cfg)

	sb := superblock.NewSuperblock()
	sb.OffsetSize = uint8(options.offsetSize)
	sb.LengthSize = uint8(options.lengthSize)
	sb.SuperblockExtensionAddress = binpkg.Undefined(options.offsetSize)

	f := &File{
		path:       path,
		file:       osFile,
		reader:     binpkg.NewReader(osFile, cfg),
		superblock: sb,
		writable:   true,
		writer:     writer,
		allocator:  alloc.New(uint64(sb.Size())),
	}
	f.root = &Group{file: f, path: "/"}

	if err := f.root.writeHeader(); err != nil {
		osFile.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing root group: %w", err)
	}
	if err := f.writeSuperblock(); err != nil {
		osFile.Close()
		os.Remove(path)
		return nil, err
	}
	return f, nil
}

// Flush materialises every growable dataset's chunk index and dimensions,
// then rewrites the superblock and syncs the file.
func (f *File) Flush() error {
	if f.closed {
		return ErrClosed
	}
	if !f.writable {
		return nil
	}
	for _, g := range f.growables {
		if err := g.flush(); err != nil {
			return fmt.Errorf("flushing %s: %w", g.name, err)
		}
	}
	if err := f.writeSuperblock(); err != nil {
		return err
	}
	return f.file.Sync()
}

func (f *File) writeSuperblock() error {
	f.superblock.RootGroupAddress = f.root.slot.addr
	f.superblock.EOFAddress = f.allocator.EOFAddr()
	if err := f.superblock.Write(f.writer.At(0)); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

// SetAttr attaches an attribute to the root group.
func (f *File) SetAttr(name string, value any) error {
	return f.root.SetAttr(name, value)
}

// AllocStats returns allocation statistics.
func (f *File) AllocStats() alloc.Stats {
	if f.allocator == nil {
		return alloc.Stats{}
	}
	return f.allocator.Stats()
}

func (f *File) checkWritable() error {
	switch {
	case f.closed:
		return ErrClosed
	case !f.writable:
		return ErrReadOnly
	}
	return nil
}

// headerSlot is where an object header lives and how much room it has.
type headerSlot struct {
	addr  uint64
	chunk uint64
	size  uint64
}

// writeObjectHeader writes msgs into slot, in place when they fit and at a
// new address otherwise. A relocated header gets half its size again as
// room to grow. Reports whether the address changed.
func (f *File) writeObjectHeader(slot *headerSlot, msgs []message.Serializable, minChunk int) (bool, error) {
	if slot.size > 0 && object.Fits(f.writer, msgs, slot.chunk) {
		_, err := object.WriteHeaderWithMinChunk(f.writer.At(int64(slot.addr)), msgs, int(slot.chunk))
		return false, err
	}

	used := object.MessagesSize(f.writer, msgs)
	chunk := max(used+used/2, minChunk)
	if slot.size == 0 {
		chunk = max(used, minChunk)
	}
	size := uint64(object.HeaderSize(f.writer, msgs, chunk))

	moved := slot.size > 0
	if moved {
		f.allocator.Abandon(slot.size)
	}
	addr := f.allocator.Alloc(size)
	if _, err := object.WriteHeaderWithMinChunk(f.writer.At(int64(addr)), msgs, chunk); err != nil {
		return false, err
	}
	*slot = headerSlot{addr: addr, chunk: uint64(chunk), size: size}
	return moved, nil
}

// writeStrings stores vals in a new global heap collection and returns their
// variable-length element encoding. Empty strings are stored as null
// references.
func (f *File) writeStrings(vals []string) ([]byte, error) {
	var hw heap.Writer
	ids := make([]uint32, len(vals))
	for i, s := range vals {
		if s != "" {
			ids[i] = hw.Add([]byte(s))
		}
	}

	var addr uint64
	if hw.Len() > 0 {
		addr = f.allocator.Alloc(hw.Size(f.writer.LengthSize()))
		if err := hw.Write(f.writer, addr); err != nil {
			return nil, fmt.Errorf("writing global heap: %w", err)
		}
	}

	var buf binpkg.Buffer
	bw := binpkg.NewWriter(&buf, f.writer.Config())
	for i, s := range vals {
		collection := addr
		if s == "" {
			collection = 0
		}
		if err := heap.EncodeVLen(bw, uint32(len(s)), collection, ids[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
