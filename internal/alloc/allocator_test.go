package alloc

import "testing"

func TestAllocAppends(t *testing.T) {
	a := New(96)

	first := a.Alloc(40)
	second := a.AllocKind(1000, RawData)
	third := a.Alloc(8)

	if first != 96 || second != 136 || third != 1136 {
		t.Fatalf("unexpected addresses: %d %d %d", first, second, third)
	}
	if a.EOFAddr() != 1144 {
		t.Errorf("EOFAddr = %d, want 1144", a.EOFAddr())
	}
	if a.BaseAddr() != 96 {
		t.Errorf("BaseAddr = %d, want 96", a.BaseAddr())
	}
}

func TestAllocZeroSize(t *testing.T) {
	a := New(10)
	if addr := a.Alloc(0); addr != 10 {
		t.Errorf("zero-size alloc returned %d", addr)
	}
	if a.Stats().Allocations != 0 {
		t.Error("zero-size alloc should not be counted")
	}
}

func TestStats(t *testing.T) {
	a := New(0)
	a.Alloc(100)
	a.AllocKind(500, RawData)
	a.AllocKind(300, RawData)
	a.Abandon(100)

	s := a.Stats()
	if s.Allocations != 3 {
		t.Errorf("Allocations = %d", s.Allocations)
	}
	if s.MetadataBytes != 100 || s.RawDataBytes != 800 {
		t.Errorf("bytes = %d metadata, %d raw", s.MetadataBytes, s.RawDataBytes)
	}
	if s.AbandonedBytes != 100 {
		t.Errorf("AbandonedBytes = %d", s.AbandonedBytes)
	}
	if s.LargestAlloc != 500 {
		t.Errorf("LargestAlloc = %d", s.LargestAlloc)
	}
}
