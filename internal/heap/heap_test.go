package heap

import (
	"bytes"
	"errors"
	"testing"

	"github.com/robert-malhotra/volpack/internal/binary"
)

func TestWriteReadCollection(t *testing.T) {
	var hw Writer
	first := hw.Add([]byte("BRATS"))
	second := hw.Add([]byte("4D MRI of brain gliomas with segmentation labels"))
	empty := hw.Add(nil)
	if first != 1 || second != 2 || empty != 3 {
		t.Fatalf("indices = %d %d %d", first, second, empty)
	}

	var buf binary.Buffer
	w := binary.NewWriter(&buf, binary.DefaultConfig())
	const addr = 512
	if err := hw.Write(w, addr); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := len(buf.Bytes()) - addr; got != MinCollectionSize {
		t.Errorf("collection occupies %d bytes, want %d", got, MinCollectionSize)
	}

	r := binary.NewReader(bytes.NewReader(buf.Bytes()), binary.DefaultConfig())
	c, err := ReadCollection(r, addr)
	if err != nil {
		t.Fatalf("ReadCollection: %v", err)
	}
	if c.Size != MinCollectionSize || c.Len() != 3 {
		t.Errorf("size=%d objects=%d", c.Size, c.Len())
	}
	obj, err := c.Object(second)
	if err != nil || string(obj) != "4D MRI of brain gliomas with segmentation labels" {
		t.Errorf("object 2 = %q, %v", obj, err)
	}
	if obj, _ := c.Object(empty); len(obj) != 0 {
		t.Errorf("empty object = %q", obj)
	}
	if _, err := c.Object(9); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLargeCollection(t *testing.T) {
	var hw Writer
	big := bytes.Repeat([]byte("x"), 5000)
	hw.Add(big)

	size := hw.Size(8)
	if size != 16+16+5000+0 {
		t.Fatalf("Size = %d", size)
	}

	var buf binary.Buffer
	w := binary.NewWriter(&buf, binary.DefaultConfig())
	if err := hw.Write(w, 8); err != nil {
		t.Fatal(err)
	}
	r := binary.NewReader(bytes.NewReader(buf.Bytes()), binary.DefaultConfig())
	c, err := ReadCollection(r, 8)
	if err != nil {
		t.Fatal(err)
	}
	if obj, _ := c.Object(1); !bytes.Equal(obj, big) {
		t.Error("large object did not survive")
	}
}

func TestVLenRoundtrip(t *testing.T) {
	var buf binary.Buffer
	w := binary.NewWriter(&buf, binary.DefaultConfig())
	if err := EncodeVLen(w, 5, 0x1000, 2); err != nil {
		t.Fatal(err)
	}
	if len(buf.Bytes()) != VLenSize(8) {
		t.Fatalf("encoded %d bytes", len(buf.Bytes()))
	}
	v, err := DecodeVLen(buf.Bytes(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if v.Length != 5 || v.Collection != 0x1000 || v.Index != 2 {
		t.Errorf("vlen = %+v", v)
	}
	if _, err := DecodeVLen(buf.Bytes()[:10], 8); err == nil {
		t.Error("expected error for short element")
	}
}

func TestReadCollectionBadSignature(t *testing.T) {
	r := binary.NewReader(bytes.NewReader(make([]byte, 64)), binary.DefaultConfig())
	if _, err := ReadCollection(r, 8); err == nil {
		t.Error("expected error for missing GCOL signature")
	}
}
