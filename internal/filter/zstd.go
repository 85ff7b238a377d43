package filter

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/robert-malhotra/volpack/internal/message"
)

// DefaultZstdLevel is used when the client data carries no level.
const DefaultZstdLevel = 3

var zstdDecoderPool sync.Pool

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Zstd implements filter 32015: each chunk is a single zstd frame.
type Zstd struct {
	level int

	once sync.Once
	enc  *zstd.Encoder
	err  error
}

func NewZstd(clientData []uint32) *Zstd {
	level := DefaultZstdLevel
	if len(clientData) > 0 && clientData[0] > 0 {
		level = int(clientData[0])
	}
	return &Zstd{level: level}
}

func (f *Zstd) ID() uint16 { return message.FilterZstd }

func (f *Zstd) Encode(input []byte) ([]byte, error) {
	f.once.Do(func() {
		f.enc, f.err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(f.level)))
	})
	if f.err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", f.err)
	}
	return f.enc.EncodeAll(input, nil), nil
}

func (f *Zstd) Decode(input []byte) ([]byte, error) {
	dec, err := getZstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer putZstdDecoder(dec)

	out, err := dec.DecodeAll(input, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
