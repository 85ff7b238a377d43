package layout

import (
	"fmt"

	"github.com/robert-malhotra/volpack/internal/binary"
	"github.com/robert-malhotra/volpack/internal/btree"
	"github.com/robert-malhotra/volpack/internal/filter"
	"github.com/robert-malhotra/volpack/internal/message"
)

// Chunked reads data stored as filtered chunks under a v1 B-tree.
type Chunked struct {
	dims     []uint64
	chunk    []uint64
	elemSize uint64
	pipeline *filter.Pipeline
	index    *btree.ChunkIndex
	reader   *binary.Reader
}

func newChunked(layout *message.DataLayout, ds *message.Dataspace, dt *message.Datatype,
	fp *message.FilterPipeline, r *binary.Reader) (*Chunked, error) {
	chunk := layout.ChunkShape()
	d := dims(ds)
	if len(chunk) != len(d) {
		return nil, fmt.Errorf("chunk rank %d does not match dataset rank %d", len(chunk), len(d))
	}
	pipeline, err := filter.NewPipeline(fp)
	if err != nil {
		return nil, err
	}
	index, err := btree.ReadChunkIndex(r, layout.Address, len(d))
	if err != nil {
		return nil, fmt.Errorf("reading chunk index: %w", err)
	}
	return &Chunked{
		dims:     d,
		chunk:    chunk,
		elemSize: uint64(dt.Size),
		pipeline: pipeline,
		index:    index,
		reader:   r,
	}, nil
}

func (c *Chunked) Class() message.LayoutClass { return message.LayoutChunked }

// NumChunks is the number of chunks actually stored.
func (c *Chunked) NumChunks() int { return len(c.index.Entries) }

// ChunkShape is the chunk size in elements per axis.
func (c *Chunked) ChunkShape() []uint64 { return c.chunk }

// StoredBytes is the total size of all chunks after filtering.
func (c *Chunked) StoredBytes() uint64 {
	var n uint64
	for _, e := range c.index.Entries {
		n += uint64(e.Size)
	}
	return n
}

func (c *Chunked) Read() ([]byte, error) {
	return c.ReadSlice(make([]uint64, len(c.dims)), c.dims)
}

// ReadSlice decodes only the chunks that overlap the selection. Elements in
// chunks that were never written read as zero.
func (c *Chunked) ReadSlice(start, count []uint64) ([]byte, error) {
	if err := checkSlice(c.dims, start, count); err != nil {
		return nil, err
	}
	out := make([]byte, product(count)*c.elemSize)
	if product(count) == 0 {
		return out, nil
	}
	rank := len(c.dims)

	for i := range c.index.Entries {
		e := &c.index.Entries[i]

		// Intersect the chunk with the selection.
		lo := make([]uint64, rank)
		n := make([]uint64, rank)
		overlap := true
		for d := 0; d < rank; d++ {
			a := max(e.Offset[d], start[d])
			b := min(e.Offset[d]+c.chunk[d], start[d]+count[d])
			if a >= b {
				overlap = false
				break
			}
			lo[d], n[d] = a, b-a
		}
		if !overlap {
			continue
		}

		raw, err := c.readChunk(e)
		if err != nil {
			return nil, err
		}
		srcAt := make([]uint64, rank)
		dstAt := make([]uint64, rank)
		for d := 0; d < rank; d++ {
			srcAt[d] = lo[d] - e.Offset[d]
			dstAt[d] = lo[d] - start[d]
		}
		copyBox(out, count, dstAt, raw, c.chunk, srcAt, n, c.elemSize)
	}
	return out, nil
}

func (c *Chunked) readChunk(e *btree.ChunkEntry) ([]byte, error) {
	stored, err := c.reader.At(int64(e.Address)).ReadBytes(int(e.Size))
	if err != nil {
		return nil, fmt.Errorf("reading chunk %v at %d: %w", e.Offset, e.Address, err)
	}
	raw, err := c.pipeline.Decode(stored, e.FilterMask)
	if err != nil {
		return nil, fmt.Errorf("chunk %v: %w", e.Offset, err)
	}
	if want := product(c.chunk) * c.elemSize; uint64(len(raw)) != want {
		return nil, fmt.Errorf("chunk %v decoded to %d bytes, expected %d", e.Offset, len(raw), want)
	}
	return raw, nil
}
