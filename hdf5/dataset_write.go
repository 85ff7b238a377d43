package hdf5

import (
	"fmt"
	"path"
	"slices"

	"github.com/robert-malhotra/volpack/internal/dtype"
	"github.com/robert-malhotra/volpack/internal/filter"
	"github.com/robert-malhotra/volpack/internal/layout"
	"github.com/robert-malhotra/volpack/internal/message"
	"github.com/robert-malhotra/volpack/internal/object"
)

// growableHeaderReserve is extra chunk #0 space given to a new growable
// dataset header, enough for a few small attributes.
const growableHeaderReserve = 256

// Growable is a chunked float64 dataset whose leading dimension grows by
// appending rows. Each row is one chunk of shape (1, rowShape...).
//
// Chunks go to disk as they are appended. The chunk index and the dataset
// dimensions are written by Flush or Close.
type Growable struct {
	file   *File
	parent *Group
	name   string

	rowShape []uint64
	rows     uint64
	datatype *message.Datatype
	pipeline *message.FilterPipeline
	chunks   *layout.ChunkWriter
	attrs    []*message.Attribute

	slot  headerSlot
	index uint64

	indexDirty  bool
	headerDirty bool
}

// CreateGrowable creates a growable dataset with dims (0, rowShape...) and
// maxdims (unlimited, rowShape...).
func (g *Group) CreateGrowable(name string, rowShape []uint64, opts ...DatasetOption) (*Growable, error) {
	if err := g.file.checkWritable(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("dataset name cannot be empty")
	}
	if g.link(name) != nil {
		return nil, fmt.Errorf("%s: %w", path.Join(g.path, name), ErrExists)
	}
	for i, d := range rowShape {
		if d == 0 {
			return nil, fmt.Errorf("%w: row axis %d has zero length", ErrShapeMismatch, i)
		}
	}

	options := &datasetOptions{}
	for _, opt := range opts {
		opt(options)
	}

	f := g.file
	dt := dtype.DatatypeOf[float64]()
	fp := options.pipeline(dt.Size)
	pipeline, err := filter.NewPipeline(fp)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}

	ds := &Growable{
		file:     f,
		parent:   g,
		name:     name,
		rowShape: slices.Clone(rowShape),
		datatype: dt,
		pipeline: fp,
		index:    f.writer.UndefinedOffset(),
	}
	ds.chunks = layout.NewChunkWriter(f.writer, f.allocator, pipeline, ds.chunkShape(), uint64(dt.Size))

	for _, a := range options.attributes {
		msg, err := f.newAttributeMessage(a.name, a.value)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
		ds.attrs = setAttr(ds.attrs, msg)
	}

	msgs := ds.headerMessages()
	reserve := object.MessagesSize(f.writer, msgs) + growableHeaderReserve
	if _, err := f.writeObjectHeader(&ds.slot, msgs, reserve); err != nil {
		return nil, fmt.Errorf("writing dataset %s header: %w", name, err)
	}
	if err := g.addLink(name, ds.slot.addr); err != nil {
		return nil, err
	}

	f.growables = append(f.growables, ds)
	return ds, nil
}

func (d *Growable) chunkShape() []uint64 {
	return append([]uint64{1}, d.rowShape...)
}

// Shape returns the current dimensions.
func (d *Growable) Shape() []uint64 {
	return append([]uint64{d.rows}, d.rowShape...)
}

// Name returns the link name of the dataset.
func (d *Growable) Name() string { return d.name }

// Rows returns the number of rows appended so far.
func (d *Growable) Rows() uint64 { return d.rows }

// RowShape returns the shape of one row.
func (d *Growable) RowShape() []uint64 { return slices.Clone(d.rowShape) }

// RowLen is the number of values in one row.
func (d *Growable) RowLen() int {
	n := 1
	for _, x := range d.rowShape {
		n *= int(x)
	}
	return n
}

// StoredBytes is the filtered size of all chunks written so far.
func (d *Growable) StoredBytes() uint64 { return d.chunks.StoredBytes() }

// Append writes n rows held back to back in rows. Rows already in the file
// are never rewritten.
func (d *Growable) Append(rows []float64, n int) error {
	if err := d.file.checkWritable(); err != nil {
		return err
	}
	rowLen := d.RowLen()
	if n < 0 || len(rows) != n*rowLen {
		return fmt.Errorf("%w: %s got %d values for %d rows of %d", ErrShapeMismatch, d.name, len(rows), n, rowLen)
	}

	raw := make([]byte, 8*rowLen)
	offset := make([]uint64, 1+len(d.rowShape))
	for i := range n {
		dtype.PutFloat64s(raw, rows[i*rowLen:(i+1)*rowLen])
		offset[0] = d.rows
		if err := d.chunks.WriteChunk(offset, raw); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		d.rows++
	}
	if n > 0 {
		d.indexDirty = true
	}
	return nil
}

// SetAttr attaches an attribute, replacing one of the same name. It is
// written with the header on the next Flush.
func (d *Growable) SetAttr(name string, value any) error {
	if err := d.file.checkWritable(); err != nil {
		return err
	}
	msg, err := d.file.newAttributeMessage(name, value)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", d.name, err)
	}
	d.attrs = setAttr(d.attrs, msg)
	d.headerDirty = true
	return nil
}

func (d *Growable) headerMessages() []message.Serializable {
	maxDims := append([]uint64{message.Unlimited}, d.rowShape...)
	return object.NewDatasetHeader(
		message.NewDataspace(d.Shape(), maxDims),
		d.datatype,
		message.NewFillValue(message.AllocIncremental, message.FillIfSet),
		message.NewChunkedLayout(d.index, d.chunkShape(), d.datatype.Size),
		d.pipeline,
		d.attrs,
	)
}

// flush writes the chunk index and header when they are stale.
func (d *Growable) flush() error {
	if d.indexDirty {
		root, err := d.chunks.WriteIndex()
		if err != nil {
			return fmt.Errorf("writing chunk index: %w", err)
		}
		d.index = root
		d.indexDirty, d.headerDirty = false, true
	}
	if !d.headerDirty {
		return nil
	}
	moved, err := d.file.writeObjectHeader(&d.slot, d.headerMessages(), 0)
	if err != nil {
		return err
	}
	d.headerDirty = false
	if moved {
		return d.parent.relink(d.name, d.slot.addr)
	}
	return nil
}
