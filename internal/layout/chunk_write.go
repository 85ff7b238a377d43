package layout

import (
	"fmt"

	"github.com/robert-malhotra/volpack/internal/alloc"
	"github.com/robert-malhotra/volpack/internal/binary"
	"github.com/robert-malhotra/volpack/internal/btree"
	"github.com/robert-malhotra/volpack/internal/filter"
)

// ChunkWriter appends filtered chunks to the file and builds their index.
type ChunkWriter struct {
	w        *binary.Writer
	alloc    *alloc.Allocator
	pipeline *filter.Pipeline
	chunk    []uint64
	elemSize uint64

	entries     []btree.ChunkEntry
	storedBytes uint64
	indexBytes  uint64
}

func NewChunkWriter(w *binary.Writer, a *alloc.Allocator, p *filter.Pipeline, chunk []uint64, elemSize uint64) *ChunkWriter {
	return &ChunkWriter{w: w, alloc: a, pipeline: p, chunk: chunk, elemSize: elemSize}
}

// ChunkBytes is the unfiltered size of one chunk.
func (cw *ChunkWriter) ChunkBytes() uint64 {
	return product(cw.chunk) * cw.elemSize
}

// WriteChunk filters raw and stores it as the chunk starting at offset.
// Chunks must be written in ascending offset order.
func (cw *ChunkWriter) WriteChunk(offset []uint64, raw []byte) error {
	if uint64(len(raw)) != cw.ChunkBytes() {
		return fmt.Errorf("chunk %v has %d bytes, expected %d", offset, len(raw), cw.ChunkBytes())
	}
	data, mask, err := cw.pipeline.Encode(raw)
	if err != nil {
		return fmt.Errorf("filtering chunk %v: %w", offset, err)
	}
	addr := cw.alloc.AllocKind(uint64(len(data)), alloc.RawData)
	if err := cw.w.At(int64(addr)).WriteBytes(data); err != nil {
		return fmt.Errorf("writing chunk %v: %w", offset, err)
	}
	cw.entries = append(cw.entries, btree.ChunkEntry{
		Offset:     append([]uint64(nil), offset...),
		FilterMask: mask,
		Size:       uint32(len(data)),
		Address:    addr,
	})
	cw.storedBytes += uint64(len(data))
	return nil
}

// NumChunks is the number of chunks written so far.
func (cw *ChunkWriter) NumChunks() int { return len(cw.entries) }

// StoredBytes is the filtered size of all chunks written so far.
func (cw *ChunkWriter) StoredBytes() uint64 { return cw.storedBytes }

// WriteIndex writes the B-tree over every chunk so far and returns its root.
// Each call writes a fresh tree; earlier trees are abandoned.
func (cw *ChunkWriter) WriteIndex() (uint64, error) {
	if cw.indexBytes > 0 {
		cw.alloc.Abandon(cw.indexBytes)
	}
	root, err := btree.WriteChunkIndex(cw.w, cw.alloc.Alloc, cw.entries, cw.chunk)
	if err != nil {
		return 0, err
	}
	nodeSize := btree.NodeSize(cw.w.OffsetSize(), len(cw.chunk))
	cw.indexBytes = uint64(btree.NodeCount(len(cw.entries)) * nodeSize)
	return root, nil
}
