package object

import (
	"encoding/binary"
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
	"github.com/robert-malhotra/volpack/internal/message"
)

var (
	SignatureV2           = []byte{'O', 'H', 'D', 'R'}
	SignatureContinuation = []byte{'O', 'C', 'H', 'K'}
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
)

const (
	flagTrackOrder = 0x04
	flagPhase      = 0x10
	flagTimes      = 0x20
)

// Header is a parsed object header.
type Header struct {
	Version uint8
	Address uint64
	Flags   uint8

	// ChunkSize is the size of chunk #0 without prefix or checksum.
	ChunkSize uint64
	// Size is the total number of bytes chunk #0 occupies on disk.
	Size uint64

	Messages []message.Message
}

// Read parses the object header at address.
func Read(r *binpkg.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", address, err)
	}
	if string(sig) != string(SignatureV2) {
		if sig[0] == 1 {
			return nil, fmt.Errorf("%w: version 1 at address %d", ErrUnsupportedVersion, address)
		}
		return nil, fmt.Errorf("%w: bad signature at address %d", ErrInvalidHeader, address)
	}

	version, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	flags, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}

	hdr := &Header{Version: 2, Address: address, Flags: flags}
	if flags&flagTimes != 0 {
		hr.Skip(16)
	}
	if flags&flagPhase != 0 {
		hr.Skip(4)
	}
	hdr.ChunkSize, err = hr.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return nil, err
	}

	start := int64(address)
	prefix := hr.Pos() - start
	hdr.Size = uint64(prefix) + hdr.ChunkSize + 4

	block, err := r.At(start).ReadBytes(int(hdr.Size))
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", address, err)
	}
	if err := verify(block); err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}

	hdr.Messages, err = readMessages(r, block[prefix:len(block)-4], flags)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}
	return hdr, nil
}

func verify(block []byte) error {
	n := len(block) - 4
	if binpkg.Lookup3Checksum(block[:n]) != binary.LittleEndian.Uint32(block[n:]) {
		return ErrChecksumMismatch
	}
	return nil
}

// readMessages decodes the messages in one chunk and follows continuations.
func readMessages(r *binpkg.Reader, chunk []byte, flags uint8) ([]message.Message, error) {
	headerLen := 4
	if flags&flagTrackOrder != 0 {
		headerLen += 2
	}

	var msgs []message.Message
	for len(chunk) >= headerLen {
		typ := message.Type(chunk[0])
		size := int(binary.LittleEndian.Uint16(chunk[1:3]))
		body := chunk[headerLen:]
		if size > len(body) {
			return nil, fmt.Errorf("%w: message %s overruns chunk", ErrInvalidHeader, typ)
		}
		body, chunk = body[:size], body[size:]

		if typ == message.TypeNIL {
			continue
		}
		m, err := message.Parse(typ, body, r)
		if err != nil {
			return nil, err
		}
		if cont, ok := m.(*message.Continuation); ok {
			more, err := readContinuation(r, cont, flags)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, more...)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func readContinuation(r *binpkg.Reader, cont *message.Continuation, flags uint8) ([]message.Message, error) {
	block, err := r.At(int64(cont.Offset)).ReadBytes(int(cont.Length))
	if err != nil {
		return nil, fmt.Errorf("reading continuation at %d: %w", cont.Offset, err)
	}
	if len(block) < 8 || string(block[:4]) != string(SignatureContinuation) {
		return nil, fmt.Errorf("%w: bad continuation block at %d", ErrInvalidHeader, cont.Offset)
	}
	if err := verify(block); err != nil {
		return nil, fmt.Errorf("continuation at %d: %w", cont.Offset, err)
	}
	return readMessages(r, block[4:len(block)-4], flags)
}

// GetMessage returns the first message of type typ, or nil.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == typ {
			return m
		}
	}
	return nil
}

// GetMessages returns every message of type typ.
func (h *Header) GetMessages(typ message.Type) []message.Message {
	var out []message.Message
	for _, m := range h.Messages {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}

func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.GetMessage(message.TypeDataspace).(*message.Dataspace)
	return m
}

func (h *Header) Datatype() *message.Datatype {
	m, _ := h.GetMessage(message.TypeDatatype).(*message.Datatype)
	return m
}

func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.GetMessage(message.TypeDataLayout).(*message.DataLayout)
	return m
}

func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.GetMessage(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

// Links returns the link messages in header order.
func (h *Header) Links() []*message.Link {
	var out []*message.Link
	for _, m := range h.GetMessages(message.TypeLink) {
		out = append(out, m.(*message.Link))
	}
	return out
}

// Attributes returns the attribute messages in header order.
func (h *Header) Attributes() []*message.Attribute {
	var out []*message.Attribute
	for _, m := range h.GetMessages(message.TypeAttribute) {
		out = append(out, m.(*message.Attribute))
	}
	return out
}

// IsGroup reports whether the header describes a new-style group.
func (h *Header) IsGroup() bool {
	return h.GetMessage(message.TypeLinkInfo) != nil
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.DataLayout() != nil
}
