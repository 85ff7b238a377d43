// Package alloc hands out file space for the HDF5 writer.
//
// Space is only ever appended at end of file. Blocks given up by relocated
// object headers are counted as abandoned but never reused, so an address
// handed out once stays valid for the life of the file.
package alloc

import "sync"

// Kind classifies an allocation for accounting.
type Kind int

const (
	Metadata Kind = iota // headers, heaps, index nodes
	RawData              // dataset chunks and contiguous data
)

// Stats summarises what the allocator has handed out.
type Stats struct {
	Allocations    uint64
	MetadataBytes  uint64
	RawDataBytes   uint64
	AbandonedBytes uint64
	LargestAlloc   uint64
}

// Allocator is an append-only space allocator.
type Allocator struct {
	mu    sync.Mutex
	eof   uint64
	base  uint64
	stats Stats
}

// New creates an allocator whose first block starts at base.
func New(base uint64) *Allocator {
	return &Allocator{eof: base, base: base}
}

// Alloc reserves size bytes of metadata space.
func (a *Allocator) Alloc(size uint64) uint64 {
	return a.AllocKind(size, Metadata)
}

// AllocKind reserves size bytes and accounts them under kind.
func (a *Allocator) AllocKind(size uint64, kind Kind) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.eof
	if size == 0 {
		return addr
	}
	a.eof += size

	a.stats.Allocations++
	if kind == RawData {
		a.stats.RawDataBytes += size
	} else {
		a.stats.MetadataBytes += size
	}
	if size > a.stats.LargestAlloc {
		a.stats.LargestAlloc = size
	}
	return addr
}

// Abandon records that a previously allocated block is no longer referenced.
func (a *Allocator) Abandon(size uint64) {
	a.mu.Lock()
	a.stats.AbandonedBytes += size
	a.mu.Unlock()
}

// EOFAddr is the address one past the last allocated byte.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eof
}

// BaseAddr is the address the allocator started from.
func (a *Allocator) BaseAddr() uint64 { return a.base }

// Stats returns a snapshot of the counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
