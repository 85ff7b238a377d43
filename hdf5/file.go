package hdf5

import (
	"fmt"
	"os"
	"sync"

	"github.com/robert-malhotra/volpack/internal/alloc"
	"github.com/robert-malhotra/volpack/internal/binary"
	"github.com/robert-malhotra/volpack/internal/heap"
	"github.com/robert-malhotra/volpack/internal/object"
	"github.com/robert-malhotra/volpack/internal/superblock"
)

// File represents an open HDF5 file.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool

	heapMu sync.Mutex
	heaps  map[uint64]*heap.Collection

	// Write support fields
	writable  bool
	writer    *binary.Writer
	allocator *alloc.Allocator
	growables []*Growable
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	sb, err := superblock.Read(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	hdf := &File{
		path:       path,
		file:       f,
		reader:     binary.NewReader(f, sb.ReaderConfig()),
		superblock: sb,
	}

	root, err := hdf.openGroupAt(sb.RootGroupAddress, "/")
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	hdf.root = root

	return hdf, nil
}

// Close flushes a writable file and releases the handle. The handle is
// released even when the flush fails.
func (f *File) Close() error {
	if f.closed {
		return nil
	}

	var flushErr error
	if f.writable {
		flushErr = f.Flush()
	}
	f.closed = true

	if err := f.file.Close(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}

// Root returns the root group of the file.
func (f *File) Root() *Group {
	return f.root
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// OpenDataset opens a dataset by path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

// Attr returns a root group attribute, or nil.
func (f *File) Attr(name string) *Attribute {
	return f.root.Attr(name)
}

// Attrs returns every root group attribute.
func (f *File) Attrs() []*Attribute {
	return f.root.Attrs()
}

// openGroupAt opens a group at the given address.
func (f *File) openGroupAt(address uint64, path string) (*Group, error) {
	header, err := object.Read(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	if !header.IsGroup() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotGroup)
	}
	g := &Group{file: f, path: path, header: header}
	g.slot = headerSlot{addr: address, chunk: header.ChunkSize, size: header.Size}
	return g, nil
}

// HeapObject resolves a global heap reference. Collections are cached.
func (f *File) HeapObject(id heap.ID) ([]byte, error) {
	f.heapMu.Lock()
	defer f.heapMu.Unlock()

	coll, ok := f.heaps[id.Collection]
	if !ok {
		var err error
		coll, err = heap.ReadCollection(f.reader, id.Collection)
		if err != nil {
			return nil, err
		}
		if f.heaps == nil {
			f.heaps = make(map[uint64]*heap.Collection)
		}
		f.heaps[id.Collection] = coll
	}
	return coll.Object(id.Index)
}

func (f *File) offsetSize() int {
	return int(f.superblock.OffsetSize)
}
