package convert

import (
	"fmt"

	"github.com/robert-malhotra/volpack/hdf5"
	"github.com/robert-malhotra/volpack/internal/manifest"
	"github.com/robert-malhotra/volpack/internal/volume"
)

// Kind names one of the four array datasets.
type Kind int

const (
	ImagesTrain Kind = iota
	ImagesTest
	MasksTrain
	MasksTest
	numKinds
)

var kindNames = [numKinds]string{"imgs_train", "imgs_test", "msks_train", "msks_test"}

// Kinds lists every array dataset in container order.
func Kinds() []Kind { return []Kind{ImagesTrain, ImagesTest, MasksTrain, MasksTest} }

// DatasetName is the link name in the container root.
func (k Kind) DatasetName() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) String() string { return k.DatasetName() }

// IsImage reports whether k holds images rather than masks.
func (k Kind) IsImage() bool { return k == ImagesTrain || k == ImagesTest }

func (k Kind) train() Kind {
	switch k {
	case ImagesTest:
		return ImagesTrain
	case MasksTest:
		return MasksTrain
	}
	return k
}

// metadataNames are the string datasets copied from the manifest, in the
// order they are written.
var metadataNames = []string{"license", "name", "description", "reference", "release"}

// WriterOptions shapes the container.
type WriterOptions struct {
	// Resize and Channels give the fallback row shape of a dataset that
	// never received a volume.
	Resize   int
	Channels int

	// Dataset options apply to every array dataset.
	Dataset []hdf5.DatasetOption
}

// Writer appends prepared volumes to the container's array datasets.
// Datasets are created lazily with the row shape of their first volume.
type Writer struct {
	file     *hdf5.File
	opts     WriterOptions
	datasets [numKinds]*hdf5.Growable
}

// OpenWriter creates the container at path, replacing any file there.
func OpenWriter(path string, opts WriterOptions) (*Writer, error) {
	f, err := hdf5.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating container %s: %w", path, err)
	}
	return &Writer{file: f, opts: opts}, nil
}

// Path is the container file path.
func (w *Writer) Path() string { return w.file.Path() }

// WriteMetadata stores the manifest's descriptive strings as scalar string
// datasets.
func (w *Writer) WriteMetadata(m *manifest.Manifest) error {
	md := m.Metadata()
	root := w.file.Root()
	for _, name := range metadataNames {
		if err := root.CreateStringDataset(name, md[name]); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// Append adds the rows of v (axis 0) to the dataset for kind.
func (w *Writer) Append(kind Kind, v *volume.Volume) error {
	ds := w.datasets[kind]
	if ds == nil {
		var err error
		if ds, err = w.create(kind, v.RowShape64()); err != nil {
			return err
		}
	}
	if err := ds.Append(v.Data, v.Rows()); err != nil {
		return fmt.Errorf("appending %v to %s: %w", v.Shape, kind, err)
	}
	return nil
}

// Ensure creates the dataset for kind if no volume has been appended to
// it. A test dataset borrows the row shape of its train counterpart;
// otherwise images use (resize, resize, channels) and masks
// (resize, resize, 1).
func (w *Writer) Ensure(kind Kind) error {
	if w.datasets[kind] != nil {
		return nil
	}
	_, err := w.create(kind, w.fallbackRowShape(kind))
	return err
}

func (w *Writer) fallbackRowShape(kind Kind) []uint64 {
	if t := w.datasets[kind.train()]; t != nil {
		return t.RowShape()
	}
	s := uint64(w.opts.Resize)
	if kind.IsImage() {
		return []uint64{s, s, uint64(max(w.opts.Channels, 1))}
	}
	return []uint64{s, s, 1}
}

func (w *Writer) create(kind Kind, rowShape []uint64) (*hdf5.Growable, error) {
	ds, err := w.file.Root().CreateGrowable(kind.DatasetName(), rowShape, w.opts.Dataset...)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", kind, err)
	}
	w.datasets[kind] = ds
	return ds, nil
}

// SetModalities attaches the ordered modality names to kind's dataset.
func (w *Writer) SetModalities(kind Kind, names []string) error {
	if err := w.Ensure(kind); err != nil {
		return err
	}
	return w.datasets[kind].SetAttr("modalities", names)
}

// SetAttr sets a root attribute.
func (w *Writer) SetAttr(name string, value any) error {
	return w.file.SetAttr(name, value)
}

// Rows is the number of rows appended to kind so far.
func (w *Writer) Rows(kind Kind) uint64 {
	if ds := w.datasets[kind]; ds != nil {
		return ds.Rows()
	}
	return 0
}

// StoredBytes is the filtered chunk size across all array datasets.
func (w *Writer) StoredBytes() uint64 {
	var n uint64
	for _, ds := range w.datasets {
		if ds != nil {
			n += ds.StoredBytes()
		}
	}
	return n
}

// Close flushes the chunk indexes and headers and closes the file.
func (w *Writer) Close() error {
	return w.file.Close()
}
