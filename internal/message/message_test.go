package message

import (
	"bytes"
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
)

// roundtrip serializes m, checks the size it claimed, and parses it back.
func roundtrip(t *testing.T, m Serializable) Message {
	t.Helper()
	var buf binpkg.Buffer
	w := binpkg.NewWriter(&buf, binpkg.DefaultConfig())
	if err := m.Serialize(w); err != nil {
		t.Fatalf("Serialize %s: %v", m.Type(), err)
	}
	if got, want := len(buf.Bytes()), m.SerializedSize(w); got != want {
		t.Fatalf("%s: wrote %d bytes, SerializedSize = %d", m.Type(), got, want)
	}
	r := binpkg.NewReader(bytes.NewReader(nil), binpkg.DefaultConfig())
	parsed, err := Parse(m.Type(), buf.Bytes(), r)
	if err != nil {
		t.Fatalf("Parse %s: %v", m.Type(), err)
	}
	return parsed
}

func TestDataspaceRoundtrip(t *testing.T) {
	ds := NewDataspace([]uint64{0, 144, 144, 4}, []uint64{Unlimited, 144, 144, 4})
	got := roundtrip(t, ds).(*Dataspace)

	if got.Rank() != 4 || got.SpaceType != DataspaceSimple {
		t.Fatalf("rank=%d type=%d", got.Rank(), got.SpaceType)
	}
	if got.Dimensions[1] != 144 || got.MaxDims[0] != Unlimited {
		t.Errorf("dims=%v maxdims=%v", got.Dimensions, got.MaxDims)
	}
	if got.NumElements() != 0 {
		t.Errorf("NumElements = %d, want 0", got.NumElements())
	}

	scalar := roundtrip(t, NewScalarDataspace()).(*Dataspace)
	if !scalar.IsScalar() || scalar.NumElements() != 1 {
		t.Errorf("scalar dataspace parsed as %+v", scalar)
	}
}

func TestFloatDatatypeEncoding(t *testing.T) {
	var buf binpkg.Buffer
	w := binpkg.NewWriter(&buf, binpkg.DefaultConfig())
	if err := NewFloatDatatype(8).Serialize(w); err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x11, 0x20, 0x3f, 0x00, 8, 0, 0, 0,
		0, 0, 64, 0, 52, 11, 0, 52, 255, 3, 0, 0,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("float64 datatype = % x\nwant % x", buf.Bytes(), want)
	}
}

func TestDatatypeRoundtrip(t *testing.T) {
	tests := []struct {
		dt   *Datatype
		name string
	}{
		{NewFloatDatatype(8), "float64"},
		{NewFloatDatatype(4), "float32"},
		{NewFixedPointDatatype(2, true), "int16"},
		{NewFixedPointDatatype(1, false), "uint8"},
		{NewStringDatatype(12, PadNullPad, CharsetASCII), "string[12]"},
		{NewVarLenStringDatatype(CharsetUTF8), "vlen string"},
	}
	for _, tt := range tests {
		got := roundtrip(t, tt.dt).(*Datatype)
		if got.String() != tt.name {
			t.Errorf("String() = %q, want %q", got.String(), tt.name)
		}
		if got.Size != tt.dt.Size {
			t.Errorf("%s: size %d, want %d", tt.name, got.Size, tt.dt.Size)
		}
	}

	vl := roundtrip(t, NewVarLenStringDatatype(CharsetUTF8)).(*Datatype)
	if !vl.IsString() || vl.CharSet != CharsetUTF8 || vl.Base == nil || vl.Base.Size != 1 {
		t.Errorf("vlen string parsed as %+v", vl)
	}
}

func TestFillValueRoundtrip(t *testing.T) {
	got := roundtrip(t, NewFillValue(AllocIncremental, FillIfSet)).(*FillValue)
	if got.SpaceAllocTime != AllocIncremental || got.FillWriteTime != FillIfSet || got.IsDefined {
		t.Errorf("fill value = %+v", got)
	}

	defined := &FillValue{SpaceAllocTime: AllocEarly, IsDefined: true, Value: []byte{1, 2, 3, 4}}
	got = roundtrip(t, defined).(*FillValue)
	if !got.IsDefined || !bytes.Equal(got.Value, defined.Value) {
		t.Errorf("defined fill value = %+v", got)
	}
}

func TestChunkedLayoutRoundtrip(t *testing.T) {
	l := NewChunkedLayout(0x1234, []uint64{1, 144, 144, 4}, 8)
	got := roundtrip(t, l).(*DataLayout)

	if got.Class != LayoutChunked || got.Address != 0x1234 {
		t.Fatalf("layout = %+v", got)
	}
	if len(got.ChunkDims) != 5 || got.ChunkDims[4] != 8 {
		t.Errorf("chunk dims = %v", got.ChunkDims)
	}
	shape := got.ChunkShape()
	if len(shape) != 4 || shape[0] != 1 || shape[3] != 4 {
		t.Errorf("chunk shape = %v", shape)
	}
}

func TestContiguousLayoutRoundtrip(t *testing.T) {
	got := roundtrip(t, NewContiguousLayout(4096, 160)).(*DataLayout)
	if got.Class != LayoutContiguous || got.Address != 4096 || got.Size != 160 {
		t.Errorf("layout = %+v", got)
	}
}

func TestLayoutUnsupportedVersion(t *testing.T) {
	r := binpkg.NewReader(bytes.NewReader(nil), binpkg.DefaultConfig())
	_, err := Parse(TypeDataLayout, []byte{1, 2, 1, 0, 0, 0, 0, 0}, r)
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Errorf("expected ErrUnsupportedLayout, got %v", err)
	}
}

func TestFilterPipelineRoundtrip(t *testing.T) {
	fp := &FilterPipeline{Filters: []FilterInfo{
		{ID: FilterShuffle, ClientData: []uint32{8}},
		{ID: FilterZstd, Flags: 1, ClientData: []uint32{3}},
		{ID: FilterFletcher32},
	}}
	got := roundtrip(t, fp).(*FilterPipeline)

	if len(got.Filters) != 3 {
		t.Fatalf("got %d filters", len(got.Filters))
	}
	if got.Filters[1].ID != FilterZstd || !got.Filters[1].IsOptional() || got.Filters[1].ClientData[0] != 3 {
		t.Errorf("zstd stage = %+v", got.Filters[1])
	}
	if !got.HasFilter(FilterFletcher32) || got.HasFilter(FilterDeflate) {
		t.Error("HasFilter mismatch")
	}
}

func TestFilterPipelineV1(t *testing.T) {
	// One deflate filter named "deflate" with level 6.
	data := []byte{
		1, 1, 0, 0, 0, 0, 0, 0,
		1, 0, 8, 0, 0, 0, 1, 0,
		'd', 'e', 'f', 'l', 'a', 't', 'e', 0,
		6, 0, 0, 0, 0, 0, 0, 0,
	}
	r := binpkg.NewReader(bytes.NewReader(nil), binpkg.DefaultConfig())
	m, err := Parse(TypeFilterPipeline, data, r)
	if err != nil {
		t.Fatal(err)
	}
	f := m.(*FilterPipeline).Filters[0]
	if f.ID != FilterDeflate || f.Name != "deflate" || f.ClientData[0] != 6 {
		t.Errorf("filter = %+v", f)
	}
}

func TestLinkRoundtrip(t *testing.T) {
	got := roundtrip(t, NewHardLink("train_images", 0xABCDEF)).(*Link)
	if !got.IsHard() || got.Name != "train_images" || got.ObjectAddress != 0xABCDEF {
		t.Errorf("link = %+v", got)
	}

	utf := NewHardLink("métadonnées", 42)
	utf.Charset = CharsetUTF8
	got = roundtrip(t, utf).(*Link)
	if got.Name != "métadonnées" || got.Charset != CharsetUTF8 {
		t.Errorf("utf8 link = %+v", got)
	}
}

func TestGroupMessagesRoundtrip(t *testing.T) {
	li := roundtrip(t, NewCompactLinkInfo(8)).(*LinkInfo)
	if !li.IsCompact() {
		t.Errorf("link info not compact: %+v", li)
	}
	gi := roundtrip(t, &GroupInfo{}).(*GroupInfo)
	if gi.Flags != 0 {
		t.Errorf("group info = %+v", gi)
	}
}

func TestAttributeRoundtrip(t *testing.T) {
	data := []byte{144, 0, 0, 0, 0, 0, 0, 0}
	a := NewAttribute("resize", NewFixedPointDatatype(8, true), NewScalarDataspace(), data)
	got := roundtrip(t, a).(*Attribute)

	if got.Name != "resize" || !got.Datatype.IsInteger() || !got.Dataspace.IsScalar() {
		t.Fatalf("attribute = %+v", got)
	}
	if !bytes.Equal(got.Data, data) {
		t.Errorf("data = %v", got.Data)
	}
}

func TestAttributeV1Padding(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{1, 0, 3, 0, 12, 0, 8, 0})
	buf.Write([]byte{'a', 'b', 0, 0, 0, 0, 0, 0})
	buf.Write([]byte{0x10, 0x08, 0, 0, 4, 0, 0, 0, 0, 0, 32, 0, 0, 0, 0, 0})
	buf.Write([]byte{1, 0, 0, 0, 0, 0, 0, 0})
	buf.Write([]byte{7, 0, 0, 0})

	r := binpkg.NewReader(bytes.NewReader(nil), binpkg.DefaultConfig())
	m, err := Parse(TypeAttribute, buf.Bytes(), r)
	if err != nil {
		t.Fatal(err)
	}
	a := m.(*Attribute)
	if a.Name != "ab" || a.Datatype.String() != "int32" || !a.Dataspace.IsScalar() {
		t.Errorf("attribute = %+v", a)
	}
	if !bytes.Equal(a.Data, []byte{7, 0, 0, 0}) {
		t.Errorf("data = %v", a.Data)
	}
}

func TestTruncatedMessage(t *testing.T) {
	r := binpkg.NewReader(bytes.NewReader(nil), binpkg.DefaultConfig())
	_, err := Parse(TypeDataspace, []byte{2, 2, 0, 1, 5, 0}, r)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestUnknownMessage(t *testing.T) {
	r := binpkg.NewReader(bytes.NewReader(nil), binpkg.DefaultConfig())
	m, err := Parse(Type(0x0099), []byte{1, 2, 3}, r)
	if err != nil {
		t.Fatal(err)
	}
	u, ok := m.(*Unknown)
	if !ok || u.Type() != 0x0099 || len(u.Data()) != 3 {
		t.Errorf("unknown = %#v", m)
	}
}
