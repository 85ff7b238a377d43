package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/volpack/internal/message"
)

// Filter transforms chunk bytes in both directions.
type Filter interface {
	ID() uint16
	Encode(input []byte) ([]byte, error)
	Decode(input []byte) ([]byte, error)
}

// ErrUnsupportedFilter is returned for a mandatory filter with no
// implementation.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Registry maps filter IDs to constructors taking the client data values.
var Registry = map[uint16]func([]uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
	message.FilterLZ4:        func(cd []uint32) Filter { return NewLZ4(cd) },
	message.FilterZstd:       func(cd []uint32) Filter { return NewZstd(cd) },
}

var names = map[uint16]string{
	message.FilterDeflate:    "deflate",
	message.FilterShuffle:    "shuffle",
	message.FilterFletcher32: "fletcher32",
	message.FilterSZIP:       "szip",
	message.FilterLZ4:        "lz4",
	message.FilterZstd:       "zstd",
}

// Name returns a short human-readable name for a filter ID.
func Name(id uint16) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("filter-%d", id)
}

// New returns the filter described by info. A nil filter with a nil error
// means the filter is optional and unavailable.
func New(info message.FilterInfo) (Filter, error) {
	ctor, ok := Registry[info.ID]
	if !ok {
		if info.IsOptional() {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s (ID %d)", ErrUnsupportedFilter, Name(info.ID), info.ID)
	}
	return ctor(info.ClientData), nil
}
