package hdf5

import "github.com/robert-malhotra/volpack/internal/message"

// FileOption configures file creation options.
type FileOption func(*fileOptions)

type fileOptions struct {
	offsetSize int
	lengthSize int
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{
		offsetSize: 8,
		lengthSize: 8,
	}
}

// WithOffsetSize sets the size in bytes for file offsets (2, 4, or 8).
func WithOffsetSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.offsetSize = size
		}
	}
}

// WithLengthSize sets the size in bytes for lengths (2, 4, or 8).
func WithLengthSize(size int) FileOption {
	return func(o *fileOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.lengthSize = size
		}
	}
}

// DatasetOption configures a growable dataset.
type DatasetOption func(*datasetOptions)

type codec int

const (
	codecNone codec = iota
	codecDeflate
	codecLZ4
	codecZstd
)

type datasetOptions struct {
	codec      codec
	level      int
	shuffle    bool
	fletcher32 bool
	attributes []attrDef
}

type attrDef struct {
	name  string
	value any
}

// WithCompression enables deflate at level 1-9. Level 0 disables compression.
func WithCompression(level int) DatasetOption {
	return func(o *datasetOptions) {
		switch {
		case level == 0:
			o.codec = codecNone
		case level > 0 && level <= 9:
			o.codec, o.level = codecDeflate, level
		}
	}
}

// WithLZ4 compresses chunks with the LZ4 filter (ID 32004).
func WithLZ4() DatasetOption {
	return func(o *datasetOptions) {
		o.codec, o.level = codecLZ4, 0
	}
}

// WithZstd compresses chunks with the Zstandard filter (ID 32015). Level 0
// picks the default.
func WithZstd(level int) DatasetOption {
	return func(o *datasetOptions) {
		o.codec, o.level = codecZstd, level
	}
}

// WithShuffle enables the shuffle filter (improves compression).
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) {
		o.shuffle = true
	}
}

// WithFletcher32 enables Fletcher32 checksum validation.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) {
		o.fletcher32 = true
	}
}

// WithAttribute adds an attribute to the dataset header at creation.
// Values are the ones SetAttr accepts.
func WithAttribute(name string, value any) DatasetOption {
	return func(o *datasetOptions) {
		o.attributes = append(o.attributes, attrDef{name: name, value: value})
	}
}

// pipeline builds the filter pipeline message: shuffle, then the codec,
// then the checksum. Returns nil for unfiltered data.
func (o *datasetOptions) pipeline(elemSize uint32) *message.FilterPipeline {
	var filters []message.FilterInfo
	if o.shuffle {
		filters = append(filters, message.FilterInfo{
			ID: message.FilterShuffle, Flags: 1, ClientData: []uint32{elemSize},
		})
	}
	switch o.codec {
	case codecDeflate:
		filters = append(filters, message.FilterInfo{
			ID: message.FilterDeflate, Flags: 1, ClientData: []uint32{uint32(o.level)},
		})
	case codecLZ4:
		filters = append(filters, message.FilterInfo{ID: message.FilterLZ4})
	case codecZstd:
		var cd []uint32
		if o.level > 0 {
			cd = []uint32{uint32(o.level)}
		}
		filters = append(filters, message.FilterInfo{ID: message.FilterZstd, ClientData: cd})
	}
	if o.fletcher32 {
		filters = append(filters, message.FilterInfo{ID: message.FilterFletcher32})
	}
	if len(filters) == 0 {
		return nil
	}
	return &message.FilterPipeline{Version: 2, Filters: filters}
}
