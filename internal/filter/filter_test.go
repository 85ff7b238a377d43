package filter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/robert-malhotra/volpack/internal/message"
)

// floatChunk returns n little-endian float64 values with a smooth pattern,
// which is what the converter writes.
func floatChunk(n int) []byte {
	buf := make([]byte, 8*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(math.Sin(float64(i)/50)))
	}
	return buf
}

func TestFiltersRoundtrip(t *testing.T) {
	data := floatChunk(4096)
	filters := []Filter{
		NewDeflate(nil),
		NewDeflate([]uint32{9}),
		NewShuffle([]uint32{8}),
		NewFletcher32(nil),
		NewLZ4(nil),
		NewLZ4([]uint32{1000}),
		NewZstd(nil),
		NewZstd([]uint32{19}),
	}
	for _, f := range filters {
		enc, err := f.Encode(data)
		if err != nil {
			t.Fatalf("%s encode: %v", Name(f.ID()), err)
		}
		dec, err := f.Decode(enc)
		if err != nil {
			t.Fatalf("%s decode: %v", Name(f.ID()), err)
		}
		if !bytes.Equal(dec, data) {
			t.Errorf("%s: roundtrip mismatch", Name(f.ID()))
		}
	}
}

func TestShuffleLayout(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	f := NewShuffle([]uint32{4})
	out, err := f.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 5, 2, 6, 3, 7, 4, 8, 9}
	if !bytes.Equal(out, want) {
		t.Errorf("shuffled = %v, want %v", out, want)
	}
	back, _ := f.Decode(out)
	if !bytes.Equal(back, in) {
		t.Errorf("unshuffled = %v", back)
	}
}

func TestFletcher32Detection(t *testing.T) {
	f := NewFletcher32(nil)
	enc, _ := f.Encode([]byte("volume slice"))

	if len(enc) != len("volume slice")+4 {
		t.Fatalf("encoded length %d", len(enc))
	}
	enc[3] ^= 0x40
	if _, err := f.Decode(enc); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestLZ4IncompressibleBlock(t *testing.T) {
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i*131 + 7)
	}
	f := NewLZ4([]uint32{32})
	enc, err := f.Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.BigEndian.Uint64(enc[0:8]); got != 64 {
		t.Errorf("original size = %d", got)
	}
	if got := binary.BigEndian.Uint32(enc[8:12]); got != 32 {
		t.Errorf("block size = %d", got)
	}
	dec, err := f.Decode(enc)
	if err != nil || !bytes.Equal(dec, data) {
		t.Errorf("roundtrip failed: %v", err)
	}
}

func TestLZ4Corrupt(t *testing.T) {
	if _, err := NewLZ4(nil).Decode([]byte{0, 0, 0}); err == nil {
		t.Error("expected error for short input")
	}
}

func TestPipelineOrder(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: message.FilterShuffle, ClientData: []uint32{8}},
		{ID: message.FilterDeflate, ClientData: []uint32{4}},
		{ID: message.FilterFletcher32},
	}}
	p, err := NewPipeline(fp)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 3 {
		t.Fatalf("Len = %d", p.Len())
	}

	data := floatChunk(1000)
	enc, mask, err := p.Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	if mask != 0 {
		t.Errorf("mask = %b", mask)
	}
	if len(enc) >= len(data) {
		t.Errorf("pipeline did not compress: %d >= %d", len(enc), len(data))
	}
	dec, err := p.Decode(enc, mask)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, data) {
		t.Error("pipeline roundtrip mismatch")
	}
}

func TestPipelineMask(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: message.FilterShuffle, ClientData: []uint32{8}},
		{ID: message.FilterDeflate},
	}}
	p, _ := NewPipeline(fp)

	// Only shuffled: the deflate bit is set in the mask.
	shuffled, _ := NewShuffle([]uint32{8}).Encode(floatChunk(10))
	dec, err := p.Decode(shuffled, 0b10)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, floatChunk(10)) {
		t.Error("masked decode mismatch")
	}
}

func TestOptionalUnknownFilter(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: 40000, Flags: 1},
		{ID: message.FilterDeflate},
	}}
	p, err := NewPipeline(fp)
	if err != nil {
		t.Fatalf("optional filter should not fail: %v", err)
	}
	enc, mask, err := p.Encode([]byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if mask != 0b01 {
		t.Errorf("mask = %b, want 01", mask)
	}
	dec, err := p.Decode(enc, mask)
	if err != nil || string(dec) != "abc" {
		t.Errorf("decode = %q, %v", dec, err)
	}
}

func TestUnsupportedMandatoryFilter(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{{ID: message.FilterSZIP}}}
	if _, err := NewPipeline(fp); !errors.Is(err, ErrUnsupportedFilter) {
		t.Errorf("expected ErrUnsupportedFilter, got %v", err)
	}
}

func TestEmptyPipeline(t *testing.T) {
	p, err := NewPipeline(nil)
	if err != nil || !p.Empty() {
		t.Fatalf("empty pipeline: %v", err)
	}
	out, mask, _ := p.Encode([]byte{1, 2})
	if mask != 0 || !bytes.Equal(out, []byte{1, 2}) {
		t.Error("empty pipeline must pass data through")
	}
}
