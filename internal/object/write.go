package object

import (
	"errors"
	"fmt"

	binpkg "github.com/robert-malhotra/volpack/internal/binary"
	"github.com/robert-malhotra/volpack/internal/message"
)

// MinGroupChunkSize leaves a new group header room for a few links so that
// adding them does not force a relocation.
const MinGroupChunkSize = 120

// ErrMessageTooLarge is returned for a message body over 65535 bytes.
var ErrMessageTooLarge = errors.New("header message too large")

// MessagesSize is the chunk #0 space the messages need, including each
// message's 4-byte prefix.
func MessagesSize(w *binpkg.Writer, msgs []message.Serializable) int {
	n := 0
	for _, m := range msgs {
		n += 4 + m.SerializedSize(w)
	}
	return n
}

// HeaderSize is the total on-disk size of a header holding msgs.
func HeaderSize(w *binpkg.Writer, msgs []message.Serializable, minChunk int) int {
	chunk := max(MessagesSize(w, msgs), minChunk)
	return 6 + sizeFieldBytes(chunk) + chunk + 4
}

// Fits reports whether msgs can be rewritten into an existing header whose
// chunk #0 is chunkSize bytes.
func Fits(w *binpkg.Writer, msgs []message.Serializable, chunkSize uint64) bool {
	return uint64(MessagesSize(w, msgs)) <= chunkSize
}

// WriteHeader writes a header sized exactly for msgs.
func WriteHeader(w *binpkg.Writer, msgs []message.Serializable) (int64, error) {
	return WriteHeaderWithMinChunk(w, msgs, 0)
}

// WriteHeaderWithMinChunk writes a header whose chunk #0 is at least
// minChunk bytes. Unused space becomes a NIL message or a short gap.
func WriteHeaderWithMinChunk(w *binpkg.Writer, msgs []message.Serializable, minChunk int) (int64, error) {
	used := MessagesSize(w, msgs)
	chunk := max(used, minChunk)
	fieldBytes := sizeFieldBytes(chunk)

	var buf binpkg.Buffer
	bw := binpkg.NewWriter(&buf, w.Config())

	if err := bw.WriteBytes(SignatureV2); err != nil {
		return 0, err
	}
	if err := bw.WriteUint8(2); err != nil {
		return 0, err
	}
	if err := bw.WriteUint8(sizeFieldFlag(fieldBytes)); err != nil {
		return 0, err
	}
	if err := bw.WriteUintN(uint64(chunk), fieldBytes); err != nil {
		return 0, err
	}

	for _, m := range msgs {
		if err := writeMessage(bw, m); err != nil {
			return 0, err
		}
	}

	if pad := chunk - used; pad >= 4 {
		if err := bw.WriteUint8(uint8(message.TypeNIL)); err != nil {
			return 0, err
		}
		if err := bw.WriteUint16(uint16(pad - 4)); err != nil {
			return 0, err
		}
		if err := bw.WriteZeros(pad - 3); err != nil {
			return 0, err
		}
	} else if err := bw.WriteZeros(pad); err != nil {
		return 0, err
	}

	if err := bw.WriteUint32(binpkg.Lookup3Checksum(buf.Bytes())); err != nil {
		return 0, err
	}

	start := w.Pos()
	if err := w.WriteBytes(buf.Bytes()); err != nil {
		return 0, err
	}
	return w.Pos() - start, nil
}

func writeMessage(w *binpkg.Writer, m message.Serializable) error {
	size := m.SerializedSize(w)
	if size > 0xFFFF {
		return fmt.Errorf("%w: %s is %d bytes", ErrMessageTooLarge, m.Type(), size)
	}
	if err := w.WriteUint8(uint8(m.Type())); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(size)); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	start := w.Pos()
	if err := m.Serialize(w); err != nil {
		return err
	}
	if got := int(w.Pos() - start); got != size {
		return fmt.Errorf("%s message wrote %d bytes, expected %d", m.Type(), got, size)
	}
	return nil
}

func sizeFieldBytes(chunk int) int {
	switch {
	case chunk <= 0xFF:
		return 1
	case chunk <= 0xFFFF:
		return 2
	case chunk <= 0xFFFFFFFF:
		return 4
	}
	return 8
}

func sizeFieldFlag(fieldBytes int) uint8 {
	switch fieldBytes {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	}
	return 3
}

// NewGroupHeader returns the messages of a compact new-style group.
func NewGroupHeader(offsetSize int, links []*message.Link, attrs []*message.Attribute) []message.Serializable {
	msgs := []message.Serializable{
		message.NewCompactLinkInfo(offsetSize),
		&message.GroupInfo{},
	}
	for _, l := range links {
		msgs = append(msgs, l)
	}
	for _, a := range attrs {
		msgs = append(msgs, a)
	}
	return msgs
}

// NewDatasetHeader returns the messages of a dataset header. pipeline may be
// nil for unfiltered data.
func NewDatasetHeader(ds *message.Dataspace, dt *message.Datatype, fill *message.FillValue,
	layout *message.DataLayout, pipeline *message.FilterPipeline, attrs []*message.Attribute) []message.Serializable {
	msgs := []message.Serializable{ds, dt, fill, layout}
	if pipeline != nil && len(pipeline.Filters) > 0 {
		msgs = append(msgs, pipeline)
	}
	for _, a := range attrs {
		msgs = append(msgs, a)
	}
	return msgs
}
