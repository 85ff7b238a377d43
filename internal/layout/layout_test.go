package layout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/robert-malhotra/volpack/internal/alloc"
	binpkg "github.com/robert-malhotra/volpack/internal/binary"
	"github.com/robert-malhotra/volpack/internal/filter"
	"github.com/robert-malhotra/volpack/internal/message"
)

// rowValue is the value stored at (row, i) in the test datasets.
func rowValue(row, i int) float64 { return float64(row*1000 + i) }

func encodeRow(row, n int) []byte {
	buf := make([]byte, 8*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(rowValue(row, i)))
	}
	return buf
}

func decodeFloats(b []byte) []float64 {
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out
}

// writeRows stores rows of shape (3, 2) as one chunk per row.
func writeRows(t *testing.T, rows int, fp *message.FilterPipeline) (*binpkg.Buffer, *message.DataLayout) {
	t.Helper()
	var buf binpkg.Buffer
	w := binpkg.NewWriter(&buf, binpkg.DefaultConfig())
	p, err := filter.NewPipeline(fp)
	if err != nil {
		t.Fatal(err)
	}
	cw := NewChunkWriter(w, alloc.New(0), p, []uint64{1, 3, 2}, 8)
	for r := 0; r < rows; r++ {
		if err := cw.WriteChunk([]uint64{uint64(r), 0, 0}, encodeRow(r, 6)); err != nil {
			t.Fatalf("WriteChunk: %v", err)
		}
	}
	root, err := cw.WriteIndex()
	if err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	if cw.NumChunks() != rows {
		t.Errorf("NumChunks = %d", cw.NumChunks())
	}
	return &buf, message.NewChunkedLayout(root, []uint64{1, 3, 2}, 8)
}

func openChunked(t *testing.T, buf *binpkg.Buffer, l *message.DataLayout, rows int, fp *message.FilterPipeline) Layout {
	t.Helper()
	r := binpkg.NewReader(bytes.NewReader(buf.Bytes()), binpkg.DefaultConfig())
	ds := message.NewDataspace([]uint64{uint64(rows), 3, 2}, []uint64{message.Unlimited, 3, 2})
	lay, err := New(l, ds, message.NewFloatDatatype(8), fp, r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return lay
}

func TestChunkedRoundtrip(t *testing.T) {
	pipelines := map[string]*message.FilterPipeline{
		"none": nil,
		"gzip": {Filters: []message.FilterInfo{
			{ID: message.FilterShuffle, ClientData: []uint32{8}},
			{ID: message.FilterDeflate, ClientData: []uint32{4}},
			{ID: message.FilterFletcher32},
		}},
		"lz4":  {Filters: []message.FilterInfo{{ID: message.FilterLZ4}}},
		"zstd": {Filters: []message.FilterInfo{{ID: message.FilterZstd, ClientData: []uint32{3}}}},
	}
	for name, fp := range pipelines {
		buf, l := writeRows(t, 70, fp)
		lay := openChunked(t, buf, l, 70, fp)

		data, err := lay.Read()
		if err != nil {
			t.Fatalf("%s: Read: %v", name, err)
		}
		vals := decodeFloats(data)
		if len(vals) != 70*6 {
			t.Fatalf("%s: got %d values", name, len(vals))
		}
		for r := 0; r < 70; r++ {
			for i := 0; i < 6; i++ {
				if vals[r*6+i] != rowValue(r, i) {
					t.Fatalf("%s: value (%d,%d) = %v", name, r, i, vals[r*6+i])
				}
			}
		}
	}
}

func TestChunkedReadSlice(t *testing.T) {
	buf, l := writeRows(t, 5, nil)
	lay := openChunked(t, buf, l, 5, nil)

	// Rows 2-3, middle column pair.
	data, err := lay.ReadSlice([]uint64{2, 1, 0}, []uint64{2, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	got := decodeFloats(data)
	want := []float64{rowValue(2, 2), rowValue(2, 3), rowValue(3, 2), rowValue(3, 3)}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slice = %v, want %v", got, want)
		}
	}

	if _, err := lay.ReadSlice([]uint64{4, 0, 0}, []uint64{2, 3, 2}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestChunkedMissingChunksReadZero(t *testing.T) {
	buf, l := writeRows(t, 2, nil)
	// The dataspace claims 4 rows, only 2 chunks exist.
	lay := openChunked(t, buf, l, 4, nil)
	data, err := lay.Read()
	if err != nil {
		t.Fatal(err)
	}
	vals := decodeFloats(data)
	for i := 12; i < 24; i++ {
		if vals[i] != 0 {
			t.Fatalf("unwritten value %d = %v", i, vals[i])
		}
	}
}

func TestChunkWriterRejectsWrongSize(t *testing.T) {
	var buf binpkg.Buffer
	w := binpkg.NewWriter(&buf, binpkg.DefaultConfig())
	p, _ := filter.NewPipeline(nil)
	cw := NewChunkWriter(w, alloc.New(0), p, []uint64{1, 2}, 8)
	if err := cw.WriteChunk([]uint64{0, 0}, make([]byte, 8)); err == nil {
		t.Error("expected error for short chunk")
	}
}

func TestContiguousRead(t *testing.T) {
	file := make([]byte, 256)
	copy(file[100:], encodeRow(1, 4))

	r := binpkg.NewReader(bytes.NewReader(file), binpkg.DefaultConfig())
	ds := message.NewDataspace([]uint64{2, 2}, nil)
	lay, err := New(message.NewContiguousLayout(100, 32), ds, message.NewFloatDatatype(8), nil, r)
	if err != nil {
		t.Fatal(err)
	}
	if lay.Class() != message.LayoutContiguous {
		t.Errorf("class = %s", lay.Class())
	}
	col, err := lay.ReadSlice([]uint64{0, 1}, []uint64{2, 1})
	if err != nil {
		t.Fatal(err)
	}
	got := decodeFloats(col)
	if got[0] != rowValue(1, 1) || got[1] != rowValue(1, 3) {
		t.Errorf("column = %v", got)
	}
}

func TestContiguousUnallocated(t *testing.T) {
	r := binpkg.NewReader(bytes.NewReader(nil), binpkg.DefaultConfig())
	ds := message.NewDataspace([]uint64{3}, nil)
	lay, _ := New(message.NewContiguousLayout(binpkg.Undefined(8), 0), ds, message.NewFloatDatatype(8), nil, r)
	data, err := lay.Read()
	if err != nil || len(data) != 24 {
		t.Errorf("unallocated read = %d bytes, %v", len(data), err)
	}
}

func TestCompactRead(t *testing.T) {
	l := &message.DataLayout{Version: 3, Class: message.LayoutCompact, CompactData: []byte{1, 2, 3, 4}}
	lay, err := New(l, message.NewDataspace([]uint64{4}, nil), message.NewFixedPointDatatype(1, false), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := lay.Read()
	got[0] = 0xFF
	again, _ := lay.Read()
	if again[0] != 1 {
		t.Error("Read must return a copy")
	}
	part, err := lay.ReadSlice([]uint64{1}, []uint64{2})
	if err != nil || !bytes.Equal(part, []byte{2, 3}) {
		t.Errorf("slice = %v, %v", part, err)
	}
}
