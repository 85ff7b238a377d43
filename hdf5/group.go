package hdf5

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/robert-malhotra/volpack/internal/message"
	"github.com/robert-malhotra/volpack/internal/object"
)

// Group represents an HDF5 group.
type Group struct {
	file   *File
	path   string
	header *object.Header
	slot   headerSlot

	links []*message.Link
	attrs []*message.Attribute
	// loaded is set once links and attrs mirror the header.
	loaded bool
}

// Name returns the group name (last component of path).
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

// Path returns the full path to this group.
func (g *Group) Path() string {
	return g.path
}

func (g *Group) load() {
	if g.loaded {
		return
	}
	g.loaded = true
	if g.header == nil {
		return
	}
	g.links = g.header.Links()
	g.attrs = g.header.Attributes()
}

// Members returns the names of the group's links in sorted order.
func (g *Group) Members() ([]string, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	g.load()
	names := make([]string, 0, len(g.links))
	for _, l := range g.links {
		names = append(names, l.Name)
	}
	slices.Sort(names)
	return names, nil
}

// Has reports whether the group has a link named name.
func (g *Group) Has(name string) bool {
	return g.link(name) != nil
}

func (g *Group) link(name string) *message.Link {
	g.load()
	for _, l := range g.links {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// open resolves a relative path to a *Group or *Dataset.
func (g *Group) open(relativePath string) (any, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	parts := strings.Split(strings.Trim(relativePath, "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		return g, nil
	}

	current := g
	for i, name := range parts {
		l := current.link(name)
		if l == nil {
			return nil, fmt.Errorf("%s: %w", path.Join(current.path, name), ErrNotFound)
		}
		if !l.IsHard() {
			return nil, fmt.Errorf("%w: %s link %q", ErrUnsupported, linkKind(l), name)
		}

		childPath := path.Join(current.path, name)
		header, err := object.Read(g.file.reader, l.ObjectAddress)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", childPath, err)
		}

		last := i == len(parts)-1
		switch {
		case header.IsDataset() && last:
			return newDataset(g.file, childPath, header)
		case header.IsDataset():
			return nil, fmt.Errorf("%s: %w", childPath, ErrNotGroup)
		case header.IsGroup():
			current = &Group{
				file:   g.file,
				path:   childPath,
				header: header,
				slot:   headerSlot{addr: l.ObjectAddress, chunk: header.ChunkSize, size: header.Size},
			}
		default:
			return nil, fmt.Errorf("%w: object %s is neither group nor dataset", ErrUnsupported, childPath)
		}
	}
	return current, nil
}

func linkKind(l *message.Link) string {
	if l.LinkType == message.LinkTypeSoft {
		return "soft"
	}
	return "external"
}

// OpenGroup opens a subgroup by relative path.
func (g *Group) OpenGroup(relativePath string) (*Group, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	group, ok := obj.(*Group)
	if !ok {
		return nil, ErrNotGroup
	}
	return group, nil
}

// OpenDataset opens a dataset by relative path.
func (g *Group) OpenDataset(relativePath string) (*Dataset, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, ErrNotDataset
	}
	return ds, nil
}

// Attr returns the named attribute, or nil.
func (g *Group) Attr(name string) *Attribute {
	g.load()
	return findAttr(g.file, g.attrs, name)
}

// Attrs returns every attribute on the group.
func (g *Group) Attrs() []*Attribute {
	g.load()
	return wrapAttrs(g.file, g.attrs)
}
