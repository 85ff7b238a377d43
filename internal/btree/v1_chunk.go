package btree

import (
	"encoding/binary"
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

var signature = []byte("TREE")

const (
	chunkNodeType = 1

	// ChunkK is half the maximum number of entries per node.
	ChunkK = 32
)

var ErrInvalidNode = errors.New("invalid B-tree node")

// ChunkEntry describes one stored chunk.
type ChunkEntry struct {
	// Offset is the element coordinate of the chunk's first element, one
	// value per dataset dimension.
	Offset     []uint64
	FilterMask uint32
	Size       uint32
	Address    uint64
}

// ChunkIndex is the flattened contents of a chunk B-tree.
type ChunkIndex struct {
	Rank    int
	Entries []ChunkEntry

	byOffset map[string]int
}

// ReadChunkIndex walks the tree rooted at addr. An undefined address yields
// an empty index.
func ReadChunkIndex(r *binpkg.Reader, addr uint64, rank int) (*ChunkIndex, error) {
	idx := &ChunkIndex{Rank: rank}
	if r.IsUndefinedOffset(addr) {
		return idx, nil
	}
	if err := idx.readNode(r, addr, -1); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *ChunkIndex) readNode(r *binpkg.Reader, addr uint64, wantLevel int) error {
	nr := r.At(int64(addr))
	sig, err := nr.ReadBytes(4)
	if err != nil {
		return fmt.Errorf("reading B-tree node at %d: %w", addr, err)
	}
	if string(sig) != string(signature) {
		return fmt.Errorf("%w: signature %q at %d", ErrInvalidNode, sig, addr)
	}
	head, err := nr.ReadBytes(4)
	if err != nil {
		return err
	}
	nodeType, level, used := head[0], int(head[1]), int(binary.LittleEndian.Uint16(head[2:4]))
	if nodeType != chunkNodeType {
		return fmt.Errorf("%w: node type %d at %d", ErrInvalidNode, nodeType, addr)
	}
	if wantLevel >= 0 && level != wantLevel {
		return fmt.Errorf("%w: level %d at %d, expected %d", ErrInvalidNode, level, addr, wantLevel)
	}
	nr.Skip(int64(2 * r.OffsetSize()))

	keySize := 8 + 8*(idx.Rank+1)
	for i := 0; i < used; i++ {
		key, err := nr.ReadBytes(keySize)
		if err != nil {
			return err
		}
		child, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		if level > 0 {
			if err := idx.readNode(r, child, level-1); err != nil {
				return err
			}
			continue
		}
		e := ChunkEntry{
			Size:       binary.LittleEndian.Uint32(key[0:4]),
			FilterMask: binary.LittleEndian.Uint32(key[4:8]),
			Offset:     make([]uint64, idx.Rank),
			Address:    child,
		}
		for d := range e.Offset {
			e.Offset[d] = binary.LittleEndian.Uint64(key[8+8*d:])
		}
		idx.Entries = append(idx.Entries, e)
	}
	return nil
}

func offsetKey(offset []uint64) string {
	b := make([]byte, 0, 8*len(offset))
	for _, o := range offset {
		b = binary.LittleEndian.AppendUint64(b, o)
	}
	return string(b)
}

// Find returns the chunk starting at offset, or nil if none was stored.
func (idx *ChunkIndex) Find(offset []uint64) *ChunkEntry {
	if idx.byOffset == nil {
		idx.byOffset = make(map[string]int, len(idx.Entries))
		for i, e := range idx.Entries {
			idx.byOffset[offsetKey(e.Offset)] = i
		}
	}
	i, ok := idx.byOffset[offsetKey(offset)]
	if !ok {
		return nil
	}
	return &idx.Entries[i]
}

// NodeSize is the on-disk size of one chunk B-tree node for a dataset of
// the given rank.
func NodeSize(offsetSize, rank int) int {
	keySize := 8 + 8*(rank+1)
	return 8 + 2*offsetSize + (2*ChunkK+1)*keySize + 2*ChunkK*offsetSize
}

// NodeCount is the number of nodes WriteChunkIndex emits for n chunks.
func NodeCount(n int) int {
	total := 0
	for n > 0 {
		n = (n + 2*ChunkK - 1) / (2 * ChunkK)
		total += n
		if n == 1 {
			break
		}
	}
	return total
}

// key is a chunk key held during tree construction.
type key struct {
	size   uint32
	mask   uint32
	offset []uint64
}

type node struct {
	addr  uint64
	keys  []key    // len(children)+1
	child []uint64 // chunk or node addresses
}

// WriteChunkIndex writes a tree over entries, which must be in ascending
// offset order, and returns the root address. chunkDims is the chunk shape.
// alloc reserves file space for each node. An empty entry list writes
// nothing and returns the undefined address.
func WriteChunkIndex(w *binpkg.Writer, alloc func(size uint64) uint64, entries []ChunkEntry, chunkDims []uint64) (uint64, error) {
	if len(entries) == 0 {
		return w.UndefinedOffset(), nil
	}
	rank := len(chunkDims)
	nodeSize := uint64(NodeSize(w.OffsetSize(), rank))

	// Leaves: one key per chunk plus the bound past the last chunk.
	var level []*node
	for start := 0; start < len(entries); start += 2 * ChunkK {
		group := entries[start:min(start+2*ChunkK, len(entries))]
		n := &node{addr: alloc(nodeSize)}
		for _, e := range group {
			n.keys = append(n.keys, key{size: e.Size, mask: e.FilterMask, offset: e.Offset})
			n.child = append(n.child, e.Address)
		}
		last := group[len(group)-1].Offset
		bound := make([]uint64, rank)
		for d := range bound {
			bound[d] = last[d] + chunkDims[d]
		}
		n.keys = append(n.keys, key{offset: bound})
		level = append(level, n)
	}

	for depth := 0; ; depth++ {
		if err := writeLevel(w, level, depth, rank); err != nil {
			return 0, err
		}
		if len(level) == 1 {
			return level[0].addr, nil
		}
		var parents []*node
		for start := 0; start < len(level); start += 2 * ChunkK {
			group := level[start:min(start+2*ChunkK, len(level))]
			p := &node{addr: alloc(nodeSize)}
			for _, c := range group {
				p.keys = append(p.keys, c.keys[0])
				p.child = append(p.child, c.addr)
			}
			lastChild := group[len(group)-1]
			p.keys = append(p.keys, lastChild.keys[len(lastChild.keys)-1])
			parents = append(parents, p)
		}
		level = parents
	}
}

func writeLevel(w *binpkg.Writer, level []*node, depth, rank int) error {
	undef := w.UndefinedOffset()
	nodeSize := NodeSize(w.OffsetSize(), rank)
	for i, n := range level {
		left, right := undef, undef
		if i > 0 {
			left = level[i-1].addr
		}
		if i+1 < len(level) {
			right = level[i+1].addr
		}

		var buf binpkg.Buffer
		bw := binpkg.NewWriter(&buf, w.Config())
		steps := []func() error{
			func() error { return bw.WriteBytes(signature) },
			func() error { return bw.WriteUint8(chunkNodeType) },
			func() error { return bw.WriteUint8(uint8(depth)) },
			func() error { return bw.WriteUint16(uint16(len(n.child))) },
			func() error { return bw.WriteOffset(left) },
			func() error { return bw.WriteOffset(right) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		for j, k := range n.keys {
			if err := writeKey(bw, k, rank); err != nil {
				return err
			}
			if j < len(n.child) {
				if err := bw.WriteOffset(n.child[j]); err != nil {
					return err
				}
			}
		}
		if err := bw.WriteZeros(nodeSize - int(bw.Pos())); err != nil {
			return err
		}
		if err := w.At(int64(n.addr)).WriteBytes(buf.Bytes()); err != nil {
			return fmt.Errorf("writing B-tree node at %d: %w", n.addr, err)
		}
	}
	return nil
}

func writeKey(w *binpkg.Writer, k key, rank int) error {
	if err := w.WriteUint32(k.size); err != nil {
		return err
	}
	if err := w.WriteUint32(k.mask); err != nil {
		return err
	}
	for d := 0; d < rank; d++ {
		if err := w.WriteUint64(k.offset[d]); err != nil {
			return err
		}
	}
	// Element size axis.
	return w.WriteUint64(0)
}
