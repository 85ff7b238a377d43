package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/volpack/internal/message"
	"github.com/robert-malhotra/volpack/internal/object"
)

// writeHeader writes the group's header, relocating it when it has outgrown
// its slot. The root group's new address reaches the superblock on Flush.
func (g *Group) writeHeader() error {
	msgs := object.NewGroupHeader(g.file.offsetSize(), g.links, g.attrs)
	_, err := g.file.writeObjectHeader(&g.slot, msgs, object.MinGroupChunkSize)
	return err
}

// addLink adds a hard link to this group and rewrites its header.
func (g *Group) addLink(name string, addr uint64) error {
	if g.link(name) != nil {
		return fmt.Errorf("%s: %w", path.Join(g.path, name), ErrExists)
	}
	g.links = append(g.links, message.NewHardLink(name, addr))
	return g.writeHeader()
}

// relink points an existing link at a relocated object.
func (g *Group) relink(name string, addr uint64) error {
	l := g.link(name)
	if l == nil {
		return fmt.Errorf("%s: %w", path.Join(g.path, name), ErrNotFound)
	}
	l.ObjectAddress = addr
	return g.writeHeader()
}

// SetAttr attaches an attribute to the group, replacing one of the same
// name.
func (g *Group) SetAttr(name string, value any) error {
	if err := g.file.checkWritable(); err != nil {
		return err
	}
	g.load()
	a, err := g.file.newAttributeMessage(name, value)
	if err != nil {
		return err
	}
	g.attrs = setAttr(g.attrs, a)
	return g.writeHeader()
}

// CreateStringDataset writes a scalar variable-length UTF-8 string dataset.
func (g *Group) CreateStringDataset(name, value string) error {
	if err := g.file.checkWritable(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("dataset name cannot be empty")
	}
	if g.link(name) != nil {
		return fmt.Errorf("%s: %w", path.Join(g.path, name), ErrExists)
	}

	f := g.file
	data, err := f.writeStrings([]string{value})
	if err != nil {
		return fmt.Errorf("dataset %s: %w", name, err)
	}
	dataAddr := f.allocator.Alloc(uint64(len(data)))
	if err := f.writer.At(int64(dataAddr)).WriteBytes(data); err != nil {
		return fmt.Errorf("writing dataset %s: %w", name, err)
	}

	msgs := object.NewDatasetHeader(
		message.NewScalarDataspace(),
		message.NewVarLenStringDatatype(message.CharsetUTF8),
		message.NewFillValue(message.AllocLate, message.FillIfSet),
		message.NewContiguousLayout(dataAddr, uint64(len(data))),
		nil, nil,
	)
	var slot headerSlot
	if _, err := f.writeObjectHeader(&slot, msgs, 0); err != nil {
		return fmt.Errorf("writing dataset %s header: %w", name, err)
	}
	return g.addLink(name, slot.addr)
}
