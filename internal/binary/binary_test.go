package binary

import (
	"encoding/binary"
	"io"
	"testing"
)

func TestLookup3KnownValues(t *testing.T) {
	tests := []struct {
		input string
		want  uint32
	}{
		{"", 0xdeadbeef},
		{"hello", 0x34cbbc6e},
		{"Four score and seven years ago", 0x17770551},
	}
	for _, tt := range tests {
		if got := Lookup3Checksum([]byte(tt.input)); got != tt.want {
			t.Errorf("Lookup3Checksum(%q) = 0x%08x, want 0x%08x", tt.input, got, tt.want)
		}
	}
}

func TestFletcher32KnownValues(t *testing.T) {
	long := make([]byte, 2560)
	for i := range long {
		long[i] = byte(i)
	}
	tests := []struct {
		name  string
		input []byte
		want  uint32
	}{
		{"empty", nil, 0},
		{"odd length", []byte("abcde"), 0x4ff029c7},
		{"even length", []byte("abcdef"), 0x50562a2d},
		{"spans several blocks", long, 0xf0fa827d},
	}
	for _, tt := range tests {
		if got := Fletcher32(tt.input); got != tt.want {
			t.Errorf("%s: Fletcher32 = 0x%08x, want 0x%08x", tt.name, got, tt.want)
		}
	}
}

func TestWriterReaderRoundtrip(t *testing.T) {
	buf := &Buffer{}
	cfg := Config{ByteOrder: binary.LittleEndian, OffsetSize: 4, LengthSize: 8}
	w := NewWriter(buf, cfg)

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	must(w.WriteUint8(0xAB))
	must(w.WriteUint16(0x1234))
	must(w.WriteOffset(0xDEADBEEF))
	must(w.WriteLength(1 << 40))
	must(w.WriteZeros(3))
	must(w.WriteBytes([]byte("OHDR")))

	if w.Pos() != int64(1+2+4+8+3+4) {
		t.Fatalf("writer position = %d", w.Pos())
	}

	r := NewReader(bytesReaderAt(buf.Bytes()), cfg)
	if v, _ := r.ReadUint8(); v != 0xAB {
		t.Errorf("uint8 = 0x%x", v)
	}
	if v, _ := r.ReadUint16(); v != 0x1234 {
		t.Errorf("uint16 = 0x%x", v)
	}
	if v, _ := r.ReadOffset(); v != 0xDEADBEEF {
		t.Errorf("offset = 0x%x", v)
	}
	if v, _ := r.ReadLength(); v != 1<<40 {
		t.Errorf("length = %d", v)
	}
	r.Skip(3)
	sig, err := r.ReadBytes(4)
	if err != nil || string(sig) != "OHDR" {
		t.Errorf("signature = %q, err = %v", sig, err)
	}
}

func TestUndefined(t *testing.T) {
	if Undefined(8) != ^uint64(0) {
		t.Error("8-byte undefined must be all ones")
	}
	if Undefined(4) != 0xFFFFFFFF {
		t.Error("4-byte undefined must be 0xFFFFFFFF")
	}
	r := NewReader(bytesReaderAt(nil), DefaultConfig())
	if !r.IsUndefinedOffset(^uint64(0)) {
		t.Error("IsUndefinedOffset should accept all ones")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := Config{ByteOrder: binary.LittleEndian, OffsetSize: 3, LengthSize: 8}
	if err := bad.Validate(); err != ErrInvalidSize {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
