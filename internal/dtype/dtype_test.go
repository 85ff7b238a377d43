package dtype

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/robert-malhotra/volpack/internal/heap"
	"github.com/robert-malhotra/volpack/internal/message"
)

func TestNumbersFloat64(t *testing.T) {
	dt, data := EncodeNumbers([]float64{1.5, -2, math.Pi})
	if dt.String() != "float64" {
		t.Fatalf("datatype = %s", dt)
	}
	got, err := Numbers[float64](dt, data, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1.5 || got[1] != -2 || got[2] != math.Pi {
		t.Errorf("got %v", got)
	}
}

func TestNumbersBigEndianInt16(t *testing.T) {
	dt := message.NewFixedPointDatatype(2, true)
	dt.ByteOrder = message.OrderBE
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data, uint16(0xFFFE)) // -2
	binary.BigEndian.PutUint16(data[2:], 300)

	got, err := Numbers[float64](dt, data, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != -2 || got[1] != 300 {
		t.Errorf("got %v", got)
	}
}

func TestNumbersConvertsAcrossTypes(t *testing.T) {
	dt, data := EncodeNumbers([]uint8{0, 1, 255})
	got, err := Numbers[int64](dt, data, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got[2] != 255 {
		t.Errorf("uint8 255 decoded as %d", got[2])
	}

	dt, data = EncodeNumbers([]float32{0.25})
	f, err := Numbers[float64](dt, data, 1)
	if err != nil || f[0] != 0.25 {
		t.Errorf("float32 0.25 decoded as %v, err %v", f, err)
	}
}

func TestNumbersErrors(t *testing.T) {
	if _, err := Numbers[float64](message.NewStringDatatype(4, message.PadNullTerm, message.CharsetASCII), nil, 1); err == nil {
		t.Error("expected error for string datatype")
	}
	dt, data := EncodeNumbers([]int32{1})
	if _, err := Numbers[int32](dt, data, 2); err == nil {
		t.Error("expected error for short data")
	}
}

func TestFixedStrings(t *testing.T) {
	dt := message.NewStringDatatype(5, message.PadNullTerm, message.CharsetASCII)
	got, err := Strings(dt, []byte("ab\x00\x00\x00hello"), 2, 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != "ab" || got[1] != "hello" {
		t.Errorf("got %q", got)
	}

	dt = message.NewStringDatatype(4, message.PadSpacePad, message.CharsetASCII)
	got, err = Strings(dt, []byte("hi  "), 1, 8, nil)
	if err != nil || got[0] != "hi" {
		t.Errorf("space padded: %q, err %v", got, err)
	}
}

type mapHeap map[heap.ID][]byte

func (m mapHeap) HeapObject(id heap.ID) ([]byte, error) {
	if b, ok := m[id]; ok {
		return b, nil
	}
	return nil, heap.ErrObjectNotFound
}

func TestVarLenStrings(t *testing.T) {
	hr := mapHeap{
		{Collection: 4096, Index: 1}: []byte("FLAIR"),
		{Collection: 4096, Index: 2}: []byte("T1w"),
	}
	data := make([]byte, 48)
	put := func(i int, length uint32, idx uint32) {
		b := data[16*i:]
		binary.LittleEndian.PutUint32(b, length)
		binary.LittleEndian.PutUint64(b[4:], 4096)
		binary.LittleEndian.PutUint32(b[12:], idx)
	}
	put(0, 5, 1)
	put(1, 3, 2)
	put(2, 0, 0)

	dt := message.NewVarLenStringDatatype(message.CharsetUTF8)
	got, err := Strings(dt, data, 3, 8, hr)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != "FLAIR" || got[1] != "T1w" || got[2] != "" {
		t.Errorf("got %q", got)
	}

	put(2, 3, 9)
	if _, err := Strings(dt, data, 3, 8, hr); err == nil {
		t.Error("expected error for missing heap object")
	}
}

func TestDatatypeOf(t *testing.T) {
	tests := []struct {
		got  *message.Datatype
		want string
	}{
		{DatatypeOf[float64](), "float64"},
		{DatatypeOf[float32](), "float32"},
		{DatatypeOf[int](), "int64"},
		{DatatypeOf[uint16](), "uint16"},
	}
	for _, tt := range tests {
		if tt.got.String() != tt.want {
			t.Errorf("DatatypeOf = %s, want %s", tt.got, tt.want)
		}
	}
}
