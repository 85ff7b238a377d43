// Package nifti reads single-file NIfTI-1 volumes (.nii and .nii.gz) and
// writes float32 ones for fixtures.
package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/robert-malhotra/volpack/internal/volume"
)

const (
	HeaderSize = 348
	// MaxVoxels bounds the voxel count a header may declare.
	MaxVoxels = 1 << 30
	// DefaultVoxOffset is where Write puts voxel data: the header plus an
	// empty extension flag.
	DefaultVoxOffset = 352
)

var (
	ErrNotNIfTI            = errors.New("not a NIfTI-1 file")
	ErrUnsupportedDatatype = errors.New("unsupported NIfTI datatype")
	ErrUnsupportedFormat   = errors.New("unsupported NIfTI format")
	ErrTruncated           = errors.New("NIfTI voxel data truncated")
)

// Datatype codes.
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
	DTInt64   int16 = 1024
	DTUint64  int16 = 1280
)

var bytesPerVoxel = map[int16]int{
	DTUint8: 1, DTInt8: 1,
	DTInt16: 2, DTUint16: 2,
	DTInt32: 4, DTUint32: 4, DTFloat32: 4,
	DTInt64: 8, DTUint64: 8, DTFloat64: 8,
}

// Header holds the fields of a NIfTI-1 header volpack uses.
type Header struct {
	ByteOrder binary.ByteOrder
	Dims      []int
	Datatype  int16
	BitPix    int16
	PixDim    []float64
	VoxOffset int64
	SclSlope  float64
	SclInter  float64
	Descrip   string
}

// Image is a decoded NIfTI file. Volume has shape (dim1, ..., dimN) and
// element [x, y, z, ...] is the voxel at those indices.
type Image struct {
	Header Header
	Volume *volume.Volume
}

// Read decodes the file at path, gunzipping when it is gzip compressed.
func Read(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Voxels is the number of voxels the header declares.
func (h *Header) Voxels() int {
	n := 1
	for _, d := range h.Dims {
		n *= d
	}
	return n
}

// Decode reads a NIfTI-1 stream, plain or gzip compressed.
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		return decode(zr)
	}
	return decode(br)
}

func decode(r io.Reader) (*Image, error) {
	raw := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrNotNIfTI, err)
	}
	hdr, err := parseHeader(raw)
	if err != nil {
		return nil, err
	}

	if skip := hdr.VoxOffset - HeaderSize; skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, fmt.Errorf("%w: skipping to voxel offset %d", ErrTruncated, hdr.VoxOffset)
		}
	}

	n := hdr.Voxels()
	want := int64(n) * int64(bytesPerVoxel[hdr.Datatype])
	// The buffer grows with the data actually present, so a header that
	// overstates its size fails as truncated.
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, want); err != nil {
		return nil, fmt.Errorf("%w: want %d bytes, got %d: %v", ErrTruncated, want, buf.Len(), err)
	}
	data := buf.Bytes()

	vals := decodeVoxels(data, hdr.Datatype, hdr.ByteOrder, n)
	if hdr.SclSlope != 0 && !math.IsNaN(hdr.SclSlope) && (hdr.SclSlope != 1 || hdr.SclInter != 0) {
		for i, v := range vals {
			vals[i] = v*hdr.SclSlope + hdr.SclInter
		}
	}

	// Disk order is x fastest, i.e. row-major over the reversed shape.
	rev := make([]int, len(hdr.Dims))
	for i, d := range hdr.Dims {
		rev[len(rev)-1-i] = d
	}
	disk, err := volume.FromData(rev, vals)
	if err != nil {
		return nil, err
	}
	return &Image{Header: *hdr, Volume: volume.Transpose(disk)}, nil
}

func parseHeader(raw []byte) (*Header, error) {
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(raw) == HeaderSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw) == HeaderSize:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: sizeof_hdr is not %d", ErrNotNIfTI, HeaderSize)
	}

	switch magic := string(raw[344:347]); magic {
	case "n+1":
	case "ni1":
		return nil, fmt.Errorf("%w: separate header and image files", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: magic %q", ErrNotNIfTI, magic)
	}

	i16 := func(off int) int16 { return int16(order.Uint16(raw[off:])) }
	f32 := func(off int) float64 { return float64(math.Float32frombits(order.Uint32(raw[off:]))) }

	hdr := &Header{
		ByteOrder: order,
		Datatype:  i16(70),
		BitPix:    i16(72),
		VoxOffset: int64(f32(108)),
		SclSlope:  f32(112),
		SclInter:  f32(116),
		Descrip:   strings.TrimRight(string(raw[148:228]), "\x00"),
	}
	if _, ok := bytesPerVoxel[hdr.Datatype]; !ok {
		return nil, fmt.Errorf("%w: code %d", ErrUnsupportedDatatype, hdr.Datatype)
	}

	ndim := int(i16(40))
	if ndim < 1 || ndim > 7 {
		return nil, fmt.Errorf("%w: dim[0] = %d", ErrNotNIfTI, ndim)
	}
	voxels := 1
	for i := 1; i <= ndim; i++ {
		d := int(i16(40 + 2*i))
		if d < 1 {
			return nil, fmt.Errorf("%w: dim[%d] = %d", ErrNotNIfTI, i, d)
		}
		if voxels > MaxVoxels/d {
			return nil, fmt.Errorf("%w: dims %v exceed %d voxels", ErrNotNIfTI, append(hdr.Dims, d), MaxVoxels)
		}
		voxels *= d
		hdr.Dims = append(hdr.Dims, d)
		hdr.PixDim = append(hdr.PixDim, f32(76+4*i))
	}
	// Trailing singleton axes past z carry no data.
	for len(hdr.Dims) > 3 && hdr.Dims[len(hdr.Dims)-1] == 1 {
		hdr.Dims = hdr.Dims[:len(hdr.Dims)-1]
		hdr.PixDim = hdr.PixDim[:len(hdr.PixDim)-1]
	}
	if hdr.VoxOffset < HeaderSize {
		hdr.VoxOffset = DefaultVoxOffset
	}
	return hdr, nil
}

func decodeVoxels(data []byte, dt int16, order binary.ByteOrder, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		switch dt {
		case DTUint8:
			out[i] = float64(data[i])
		case DTInt8:
			out[i] = float64(int8(data[i]))
		case DTInt16:
			out[i] = float64(int16(order.Uint16(data[2*i:])))
		case DTUint16:
			out[i] = float64(order.Uint16(data[2*i:]))
		case DTInt32:
			out[i] = float64(int32(order.Uint32(data[4*i:])))
		case DTUint32:
			out[i] = float64(order.Uint32(data[4*i:]))
		case DTFloat32:
			out[i] = float64(math.Float32frombits(order.Uint32(data[4*i:])))
		case DTInt64:
			out[i] = float64(int64(order.Uint64(data[8*i:])))
		case DTUint64:
			out[i] = float64(order.Uint64(data[8*i:]))
		case DTFloat64:
			out[i] = math.Float64frombits(order.Uint64(data[8*i:]))
		}
	}
	return out
}

// Write stores v as a little-endian float32 NIfTI-1 file, gzip compressed
// when path ends in ".gz".
func Write(path string, v *volume.Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}

	if err := Encode(w, v); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// Encode writes v as an uncompressed float32 NIfTI-1 stream.
func Encode(w io.Writer, v *volume.Volume) error {
	if v.Rank() < 1 || v.Rank() > 7 {
		return fmt.Errorf("%w: rank %d", ErrUnsupportedFormat, v.Rank())
	}
	le := binary.LittleEndian
	hdr := make([]byte, DefaultVoxOffset)
	le.PutUint32(hdr[0:], HeaderSize)
	le.PutUint16(hdr[40:], uint16(v.Rank()))
	for i := 1; i <= 7; i++ {
		d := 1
		if i <= v.Rank() {
			d = v.Shape[i-1]
		}
		le.PutUint16(hdr[40+2*i:], uint16(d))
	}
	le.PutUint16(hdr[70:], uint16(DTFloat32))
	le.PutUint16(hdr[72:], 32)
	for i := 0; i < 8; i++ {
		le.PutUint32(hdr[76+4*i:], math.Float32bits(1))
	}
	le.PutUint32(hdr[108:], math.Float32bits(DefaultVoxOffset))
	le.PutUint32(hdr[112:], math.Float32bits(1))
	copy(hdr[344:], "n+1\x00")

	var buf bytes.Buffer
	buf.Grow(len(hdr) + 4*v.Len())
	buf.Write(hdr)
	disk := volume.Transpose(v)
	word := make([]byte, 4)
	for _, x := range disk.Data {
		le.PutUint32(word, math.Float32bits(float32(x)))
		buf.Write(word)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
